package workout

import (
	"context"
	"fmt"
	"math"

	"github.com/sheetfit/sheetfit/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// ExerciseStat aggregates one exercise's set records across all sessions of a
// sheet. Averages are rounded to the nearest whole number; all-zero records
// (placeholders for skipped exercises) do not count.
type ExerciseStat struct {
	Exercise      string  `json:"exercise"`
	MaxWeight     float64 `json:"maxWeight"`
	MinWeight     float64 `json:"minWeight"`
	AvgWeight     int     `json:"avgWeight"`
	MaxSets       float64 `json:"maxSets"`
	MinSets       float64 `json:"minSets"`
	AvgSets       int     `json:"avgSets"`
	MaxReps       float64 `json:"maxReps"`
	MinReps       float64 `json:"minReps"`
	AvgReps       int     `json:"avgReps"`
	TotalSessions int     `json:"totalSessions"`
}

// Analyzer computes per-exercise statistics from raw workout sheets.
type Analyzer struct {
	sheets sheetsAPI
}

func NewAnalyzer(sheetsClient sheetsAPI) *Analyzer {
	return &Analyzer{
		sheets: sheetsClient,
	}
}

// ExerciseStats reads the whole sheet and aggregates every exercise row.
// Exercises with no usable records are still listed, with zeroed stats.
func (a *Analyzer) ExerciseStats(ctx context.Context, sheetName string) (_ []ExerciseStat, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "workout.exerciseStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("sheet", sheetName))

	nameRows, err := a.sheets.Get(ctx, fmt.Sprintf("%s!A2:A100", sheetName))
	if err != nil {
		return nil, fmt.Errorf("get exercise names: %w", err)
	}
	dataRows, err := a.sheets.Get(ctx, fmt.Sprintf("%s!B2:ZZ100", sheetName))
	if err != nil {
		return nil, fmt.Errorf("get session records: %w", err)
	}

	var stats []ExerciseStat
	for i, nameRow := range nameRows {
		if len(nameRow) == 0 || nameRow[0] == "" {
			continue
		}

		var records []SetRecord
		if i < len(dataRows) {
			for _, cell := range dataRows[i] {
				record := DecodeSetRecord(cell)
				if record == nil || record.IsZero() {
					continue
				}
				records = append(records, *record)
			}
		}
		stats = append(stats, aggregate(nameRow[0], records))
	}
	return stats, nil
}

func aggregate(exercise string, records []SetRecord) ExerciseStat {
	stat := ExerciseStat{
		Exercise:      exercise,
		TotalSessions: len(records),
	}
	if len(records) == 0 {
		return stat
	}

	var sumWeight, sumSets, sumReps float64
	stat.MinWeight = records[0].Weight
	stat.MinSets = records[0].Sets
	stat.MinReps = records[0].Reps
	for _, r := range records {
		stat.MaxWeight = math.Max(stat.MaxWeight, r.Weight)
		stat.MinWeight = math.Min(stat.MinWeight, r.Weight)
		sumWeight += r.Weight
		stat.MaxSets = math.Max(stat.MaxSets, r.Sets)
		stat.MinSets = math.Min(stat.MinSets, r.Sets)
		sumSets += r.Sets
		stat.MaxReps = math.Max(stat.MaxReps, r.Reps)
		stat.MinReps = math.Min(stat.MinReps, r.Reps)
		sumReps += r.Reps
	}

	n := float64(len(records))
	stat.AvgWeight = int(math.Round(sumWeight / n))
	stat.AvgSets = int(math.Round(sumSets / n))
	stat.AvgReps = int(math.Round(sumReps / n))
	return stat
}
