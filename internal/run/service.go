package run

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

type sheetsAPI interface {
	Get(ctx context.Context, readRange string) ([][]string, error)
	Append(ctx context.Context, appendRange string, values [][]string) error
}

// Sessions holds the run sheet as stored: row 1 headers, everything after as
// raw rows. Trailing blank rows are a known sheet artifact callers tolerate.
type Sessions struct {
	Headers  []string   `json:"headers"`
	Sessions [][]string `json:"sessions"`
}

// Record is one run to log: free-text fields straight from the user, stored
// without interpretation.
type Record struct {
	Session  string `json:"session"`
	Distance string `json:"distance"`
	Duration string `json:"duration"`
	Pace     string `json:"pace"`
	Cadence  string `json:"cadence"`
}

// Stats aggregates the run log. TotalDistance is a 1-decimal string;
// AvgPace/AvgCadence hold "N/A" when no numeric values could be extracted,
// the run fields being free text.
type Stats struct {
	TotalDistance string `json:"totalDistance"`
	TotalRuns     int    `json:"totalRuns"`
	AvgPace       string `json:"avgPace"`
	AvgCadence    string `json:"avgCadence"`
}

// leadingNumber captures the first contiguous digit run with an optional
// decimal point. "5:06/km" therefore yields 5, not a parsed min:sec pace.
var leadingNumber = regexp.MustCompile(`\d+(?:\.\d+)?`)

type Service struct {
	sheets    sheetsAPI
	sheetName string
}

func NewService(sheetsClient sheetsAPI, sheetName string) *Service {
	return &Service{
		sheets:    sheetsClient,
		sheetName: sheetName,
	}
}

// RunSessions returns the run sheet's header row and every session row.
func (s *Service) RunSessions(ctx context.Context) (_ *Sessions, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "run.sessions")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A1:E", s.sheetName))
	if err != nil {
		return nil, fmt.Errorf("get run sheet: %w", err)
	}

	sessions := &Sessions{Headers: []string{}, Sessions: [][]string{}}
	if len(rows) > 0 {
		sessions.Headers = rows[0]
		sessions.Sessions = rows[1:]
	}
	return sessions, nil
}

// SaveSession appends one run row after the last populated row and returns
// the 1-based sheet row it landed on.
func (s *Service) SaveSession(ctx context.Context, record Record) (row int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "run.saveSession")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := s.sheets.Get(ctx, fmt.Sprintf("%s!A1:E", s.sheetName))
	if err != nil {
		return 0, fmt.Errorf("get run sheet: %w", err)
	}
	row = len(rows) + 1

	appendRange := fmt.Sprintf("%s!A:E", s.sheetName)
	values := [][]string{{record.Session, record.Distance, record.Duration, record.Pace, record.Cadence}}
	if err := s.sheets.Append(ctx, appendRange, values); err != nil {
		return 0, fmt.Errorf("append run row: %w", err)
	}

	log.Debugf("run: session [%s] saved to row %d", record.Session, row)
	return row, nil
}

// RunStats aggregates the whole run log. Rows with an unparseable distance
// still count toward TotalRuns, their distance just does not add to the sum.
func (s *Service) RunStats(ctx context.Context) (_ *Stats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "run.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	sessions, err := s.RunSessions(ctx)
	if err != nil {
		return nil, err
	}

	var totalDistance float64
	var paces, cadences []float64
	totalRuns := 0
	for _, row := range sessions.Sessions {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		totalRuns++

		if len(row) > 1 {
			if distance, err := strconv.ParseFloat(row[1], 64); err == nil {
				totalDistance += distance
			}
		}
		if len(row) > 3 {
			if pace, ok := extractLeadingNumber(row[3]); ok {
				paces = append(paces, pace)
			}
		}
		if len(row) > 4 {
			if cadence, ok := extractLeadingNumber(row[4]); ok {
				cadences = append(cadences, cadence)
			}
		}
	}

	stats := &Stats{
		TotalDistance: strconv.FormatFloat(math.Round(totalDistance*10)/10, 'f', 1, 64),
		TotalRuns:     totalRuns,
		AvgPace:       "N/A",
		AvgCadence:    "N/A",
	}
	if len(paces) > 0 {
		stats.AvgPace = strconv.FormatFloat(mean(paces), 'f', 2, 64)
	}
	if len(cadences) > 0 {
		stats.AvgCadence = strconv.Itoa(int(math.Round(mean(cadences))))
	}
	return stats, nil
}

func extractLeadingNumber(text string) (float64, bool) {
	match := leadingNumber.FindString(text)
	if match == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
