package workout

import (
	"math"
	"strconv"
	"strings"
)

// SetRecord is one exercise entry within a session: weight lifted, number of
// sets and reps per set. Stored in a single cell as "<weight>/<sets>/<reps>".
type SetRecord struct {
	Weight float64 `json:"weight"`
	Sets   float64 `json:"sets"`
	Reps   float64 `json:"reps"`
}

// IsZero reports whether all three components are zero. An all-zero record
// means "no data", not "zero effort", and is excluded from statistics.
func (r SetRecord) IsZero() bool {
	return r.Weight == 0 && r.Sets == 0 && r.Reps == 0
}

// EncodeSetRecord packs the three components into the cell format,
// substituting "0" for empty values.
func EncodeSetRecord(weight, sets, reps string) string {
	return strings.Join([]string{orZero(weight), orZero(sets), orZero(reps)}, "/")
}

// DecodeSetRecord parses a cell value. Returns nil unless the value has
// exactly 3 slash-delimited parts; parse failures of individual parts
// become 0 rather than an error.
func DecodeSetRecord(text string) *SetRecord {
	parts := strings.Split(text, "/")
	if len(parts) != 3 {
		return nil
	}
	return &SetRecord{
		Weight: parseComponent(parts[0]),
		Sets:   parseComponent(parts[1]),
		Reps:   parseComponent(parts[2]),
	}
}

func orZero(value string) string {
	if strings.TrimSpace(value) == "" {
		return "0"
	}
	return strings.TrimSpace(value)
}

func parseComponent(text string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
