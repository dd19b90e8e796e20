package diet

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/sheetfit/sheetfit/internal/sheets"
	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultTDEE         = 2000
	defaultHistoryLimit = 90
	dateLayout          = "2006-01-02"
)

type sheetsAPI interface {
	Get(ctx context.Context, readRange string) ([][]string, error)
	Update(ctx context.Context, writeRange string, values [][]string) error
	Append(ctx context.Context, appendRange string, values [][]string) error
}

// DayMeals is one day's worth of logged meals.
type DayMeals struct {
	Date  string `json:"date"`
	Meals []Meal `json:"meals"`
}

// DeficitStatus is the recomputed calorie budget for today.
type DeficitStatus struct {
	TotalCalories float64 `json:"totalCalories"`
	Deficit       float64 `json:"deficit"`
	TDEE          float64 `json:"tdee"`
}

// DeficitEntry is one stored day on the deficit sheet.
type DeficitEntry struct {
	Date          string  `json:"date"`
	TotalCalories float64 `json:"totalCalories"`
	Deficit       float64 `json:"deficit"`
}

type Service struct {
	sheets       sheetsAPI
	foodSheet    string
	deficitSheet string
	profileSheet string

	timeNow func() time.Time
}

func NewService(sheetsClient sheetsAPI, foodSheet, deficitSheet, profileSheet string) *Service {
	return &Service{
		sheets:       sheetsClient,
		foodSheet:    foodSheet,
		deficitSheet: deficitSheet,
		profileSheet: profileSheet,
		timeNow:      time.Now,
	}
}

// TodaysMeals decodes every populated meal cell of today's food row. No row
// for today is not an error, it just means nothing was logged yet.
func (s *Service) TodaysMeals(ctx context.Context) (_ *DayMeals, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "diet.todaysMeals")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	today := s.timeNow().Format(dateLayout)
	dayMeals := &DayMeals{Date: today, Meals: []Meal{}}

	row, err := s.findDateRow(ctx, s.foodSheet, today)
	if err != nil {
		return nil, err
	}
	if row == 0 {
		return dayMeals, nil
	}

	cells, err := s.sheets.Get(ctx, fmt.Sprintf("%s!B%d:ZZ%d", s.foodSheet, row, row))
	if err != nil {
		return nil, fmt.Errorf("get meals row: %w", err)
	}
	if len(cells) == 0 {
		return dayMeals, nil
	}

	for _, cell := range cells[0] {
		if meal := DecodeMeal(cell); meal != nil {
			dayMeals.Meals = append(dayMeals.Meals, *meal)
		}
	}
	return dayMeals, nil
}

// AddMeal writes the meal into today's food row (creating the row when today
// has no meals yet) and then recomputes today's deficit. The deficit update
// is synchronous so the deficit sheet never lags the food sheet.
func (s *Service) AddMeal(ctx context.Context, meal Meal) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "diet.addMeal")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	today := s.timeNow().Format(dateLayout)
	encoded := EncodeMeal(meal)

	row, err := s.findDateRow(ctx, s.foodSheet, today)
	if err != nil {
		return err
	}

	if row == 0 {
		appendRange := fmt.Sprintf("%s!A:B", s.foodSheet)
		if err := s.sheets.Append(ctx, appendRange, [][]string{{today, encoded}}); err != nil {
			return fmt.Errorf("append food row: %w", err)
		}
	} else {
		cells, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A%d:ZZ%d", s.foodSheet, row, row))
		if err != nil {
			return fmt.Errorf("get food row: %w", err)
		}
		col := 1
		if len(cells) > 0 {
			col = len(cells[0])
		}
		cell := sheets.CellRef(s.foodSheet, col, row)
		if err := s.sheets.Update(ctx, cell, [][]string{{encoded}}); err != nil {
			return fmt.Errorf("write meal cell: %w", err)
		}
	}

	if _, err := s.UpdateDeficit(ctx); err != nil {
		return fmt.Errorf("update deficit after meal: %w", err)
	}

	log.Debugf("diet: meal [%s] logged for %s", meal.Name, today)
	return nil
}

// UpdateDeficit recomputes today's calorie total and rewrites today's deficit
// row. Idempotent per date: an existing row gets its B:C columns overwritten,
// never duplicated.
func (s *Service) UpdateDeficit(ctx context.Context) (_ *DeficitStatus, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "diet.updateDeficit")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	dayMeals, err := s.TodaysMeals(ctx)
	if err != nil {
		return nil, err
	}

	var totalCalories float64
	for _, meal := range dayMeals.Meals {
		totalCalories += meal.Calories
	}

	tdee, err := s.currentTDEE(ctx)
	if err != nil {
		return nil, err
	}

	status := &DeficitStatus{
		TotalCalories: totalCalories,
		Deficit:       tdee - totalCalories,
		TDEE:          tdee,
	}

	today := s.timeNow().Format(dateLayout)
	row, err := s.findDateRow(ctx, s.deficitSheet, today)
	if err != nil {
		return nil, err
	}

	totalStr := strconv.FormatFloat(totalCalories, 'f', -1, 64)
	deficitStr := strconv.FormatFloat(status.Deficit, 'f', -1, 64)

	if row == 0 {
		appendRange := fmt.Sprintf("%s!A:C", s.deficitSheet)
		if err := s.sheets.Append(ctx, appendRange, [][]string{{today, totalStr, deficitStr}}); err != nil {
			return nil, fmt.Errorf("append deficit row: %w", err)
		}
	} else {
		// overwrite B:C only, the date in column A stays
		writeRange := fmt.Sprintf("%s!B%d:C%d", s.deficitSheet, row, row)
		if err := s.sheets.Update(ctx, writeRange, [][]string{{totalStr, deficitStr}}); err != nil {
			return nil, fmt.Errorf("update deficit row: %w", err)
		}
	}

	return status, nil
}

// DeficitHistory returns the last limit stored days, sorted ascending by
// parsed date. The sheet's row order is not trusted, deficit updates can land
// out of order. A non-positive limit means the default of 90.
func (s *Service) DeficitHistory(ctx context.Context, limit int) (_ []DeficitEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "diet.deficitHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("limit", limit))

	if limit <= 0 {
		limit = defaultHistoryLimit
	}

	rows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A:C", s.deficitSheet))
	if err != nil {
		return nil, fmt.Errorf("get deficit rows: %w", err)
	}

	type dated struct {
		entry DeficitEntry
		date  time.Time
	}
	var entries []dated
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		date, err := time.Parse(dateLayout, row[0])
		if err != nil {
			log.Warnf("diet: skipping deficit row with bad date [%s]", row[0])
			continue
		}
		entry := DeficitEntry{Date: row[0]}
		if len(row) > 1 {
			entry.TotalCalories, _ = strconv.ParseFloat(row[1], 64)
		}
		if len(row) > 2 {
			entry.Deficit, _ = strconv.ParseFloat(row[2], 64)
		}
		entries = append(entries, dated{entry: entry, date: date})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].date.Before(entries[j].date)
	})

	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	history := make([]DeficitEntry, 0, len(entries))
	for _, e := range entries {
		history = append(history, e.entry)
	}
	return history, nil
}

// currentTDEE scans the weight history from the end for the most recent
// non-empty TDEE value, defaulting when the log has none.
func (s *Service) currentTDEE(ctx context.Context) (float64, error) {
	rows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!D2:F", s.profileSheet))
	if err != nil {
		return 0, fmt.Errorf("get weight history: %w", err)
	}

	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 3 || row[2] == "" {
			continue
		}
		tdee, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			continue
		}
		return tdee, nil
	}
	return defaultTDEE, nil
}

// findDateRow returns the 1-based row whose column A equals date, 0 when the
// sheet has no such row.
func (s *Service) findDateRow(ctx context.Context, sheetName, date string) (int, error) {
	rows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A:A", sheetName))
	if err != nil {
		return 0, fmt.Errorf("get date column of %s: %w", sheetName, err)
	}
	for i, row := range rows {
		if len(row) > 0 && row[0] == date {
			return i + 1, nil
		}
	}
	return 0, nil
}
