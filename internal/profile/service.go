package profile

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// activityMultiplier is fixed on purpose. The profile tracks one very active
// person, not the full Mifflin-St Jeor activity range.
const activityMultiplier = 1.9

type sheetsAPI interface {
	Get(ctx context.Context, readRange string) ([][]string, error)
	Append(ctx context.Context, appendRange string, values [][]string) error
}

// Profile holds the fixed cells of the profile block (A1:B4).
type Profile struct {
	Name        string  `json:"name"`
	DateOfBirth string  `json:"dateOfBirth"`
	GoalWeight  float64 `json:"goalWeight"`
	Height      float64 `json:"height"`
	Age         int     `json:"age"`
}

// WeightEntry is one row of the weight history block (D:F).
type WeightEntry struct {
	Date   string `json:"date"`
	Weight string `json:"weight"`
	TDEE   string `json:"tdee"`
}

// Data is the full profile payload: the fixed block plus the append-order
// weight history.
type Data struct {
	Profile       Profile       `json:"profile"`
	WeightHistory []WeightEntry `json:"weightHistory"`
}

type Service struct {
	sheets    sheetsAPI
	sheetName string

	timeNow func() time.Time
}

func NewService(sheetsClient sheetsAPI, sheetName string) *Service {
	return &Service{
		sheets:    sheetsClient,
		sheetName: sheetName,
		timeNow:   time.Now,
	}
}

// ProfileData reads the fixed profile block and every populated weight
// history row, in original append order.
func (s *Service) ProfileData(ctx context.Context) (_ *Data, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "profile.profileData")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	blockRows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A1:B4", s.sheetName))
	if err != nil {
		return nil, fmt.Errorf("get profile block: %w", err)
	}

	profile := Profile{}
	for i, row := range blockRows {
		if len(row) < 2 {
			continue
		}
		switch i {
		case 0:
			profile.Name = row[1]
		case 1:
			profile.DateOfBirth = row[1]
		case 2:
			profile.GoalWeight, _ = strconv.ParseFloat(row[1], 64)
		case 3:
			profile.Height, _ = strconv.ParseFloat(row[1], 64)
		}
	}
	if profile.DateOfBirth != "" {
		profile.Age = s.ageFromDOB(profile.DateOfBirth)
	}

	historyRows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!D2:F", s.sheetName))
	if err != nil {
		return nil, fmt.Errorf("get weight history: %w", err)
	}

	history := make([]WeightEntry, 0, len(historyRows))
	for _, row := range historyRows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		entry := WeightEntry{Date: row[0]}
		if len(row) > 1 {
			entry.Weight = row[1]
		}
		if len(row) > 2 {
			entry.TDEE = row[2]
		}
		history = append(history, entry)
	}

	return &Data{Profile: profile, WeightHistory: history}, nil
}

// SaveWeightEntry appends one [date, weight, tdee] history row and returns
// the 1-based sheet row it landed on.
func (s *Service) SaveWeightEntry(ctx context.Context, date, weight, tdee string) (row int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "profile.saveWeightEntry")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	historyRows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!D2:F", s.sheetName))
	if err != nil {
		return 0, fmt.Errorf("get weight history: %w", err)
	}
	row = len(historyRows) + 2

	appendRange := fmt.Sprintf("%s!D2:F", s.sheetName)
	if err := s.sheets.Append(ctx, appendRange, [][]string{{date, weight, tdee}}); err != nil {
		return 0, fmt.Errorf("append weight entry: %w", err)
	}

	log.Debugf("profile: weight entry [%s %s] saved to row %d", date, weight, row)
	return row, nil
}

// ageFromDOB computes full years since birth. A date containing "/" is read
// as DD/MM/YYYY, anything else goes through a generic parse.
func (s *Service) ageFromDOB(dob string) int {
	var birth time.Time
	var err error
	if strings.Contains(dob, "/") {
		birth, err = time.Parse("02/01/2006", strings.TrimSpace(dob))
	} else {
		birth, err = parseLooseDate(strings.TrimSpace(dob))
	}
	if err != nil {
		log.Warnf("profile: unparseable date of birth [%s]", dob)
		return 0
	}

	now := s.timeNow()
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() ||
		(now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}

func parseLooseDate(text string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", "2 January 2006", "January 2, 2006"} {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", text)
}

// ComputeTDEE estimates daily energy expenditure from the Mifflin-St Jeor
// BMR, scaled by the fixed activity multiplier.
func ComputeTDEE(weightKg, heightCm float64, ageYears int) int {
	bmr := 10*weightKg + 6.25*heightCm - 5*float64(ageYears) + 5
	return int(math.Round(bmr * activityMultiplier))
}
