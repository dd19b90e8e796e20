package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// workoutCategories are the sheet-name keywords that mark a workout sheet.
var workoutCategories = []string{"push", "pull", "leg"}

// sessionDateLayouts are tried in order against free-text session labels.
// Labels are timestamps of no fixed format, so parsing is best effort and
// misses are silently dropped.
var sessionDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"2/1/2006",
	"Mon 2 Jan",
	"Mon 2 Jan 2006",
	"2 Jan",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
}

type sheetsAPI interface {
	Get(ctx context.Context, readRange string) ([][]string, error)
	SheetTitles(ctx context.Context) ([]string, error)
}

// Activities lists the distinct YYYY-MM-DD dates with at least one logged
// workout or run.
type Activities struct {
	WorkoutDates []string `json:"workoutDates"`
	RunDates     []string `json:"runDates"`
}

type Service struct {
	sheets       sheetsAPI
	runSheetName string

	timeNow func() time.Time
}

func NewService(sheetsClient sheetsAPI, runSheetName string) *Service {
	return &Service{
		sheets:       sheetsClient,
		runSheetName: runSheetName,
		timeNow:      time.Now,
	}
}

// CalendarActivities scans every workout sheet's session labels and the run
// sheet's first column for parseable dates.
func (s *Service) CalendarActivities(ctx context.Context) (_ *Activities, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "calendar.activities")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	titles, err := s.sheets.SheetTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("get sheet titles: %w", err)
	}

	workoutDates := make(map[string]struct{})
	for _, title := range titles {
		if !isWorkoutSheet(title) {
			continue
		}
		labelRows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!B1:ZZ1", title))
		if err != nil {
			return nil, fmt.Errorf("get session labels of %s: %w", title, err)
		}
		if len(labelRows) == 0 {
			continue
		}
		for _, label := range labelRows[0] {
			if date, ok := s.parseSessionDate(label); ok {
				workoutDates[date] = struct{}{}
			}
		}
	}

	runDates := make(map[string]struct{})
	runRows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A2:A", s.runSheetName))
	if err != nil {
		// a missing run sheet means no runs, not a broken calendar
		log.Warnf("calendar: run sheet unavailable: %s", err)
	} else {
		for _, row := range runRows {
			if len(row) == 0 {
				continue
			}
			if date, ok := s.parseSessionDate(row[0]); ok {
				runDates[date] = struct{}{}
			}
		}
	}

	return &Activities{
		WorkoutDates: mapKeys(workoutDates),
		RunDates:     mapKeys(runDates),
	}, nil
}

func isWorkoutSheet(title string) bool {
	lowered := strings.ToLower(title)
	for _, category := range workoutCategories {
		if strings.Contains(lowered, category) {
			return true
		}
	}
	return false
}

// parseSessionDate tries each known layout against the label. Layouts
// without a year get the current year.
func (s *Service) parseSessionDate(label string) (string, bool) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", false
	}
	for _, layout := range sessionDateLayouts {
		parsed, err := time.Parse(layout, label)
		if err != nil {
			continue
		}
		if parsed.Year() == 0 {
			parsed = parsed.AddDate(s.timeNow().Year(), 0, 0)
		}
		return parsed.Format("2006-01-02"), true
	}
	return "", false
}

func mapKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	return keys
}
