package diet

import (
	"math"
	"strconv"
	"strings"
)

// Meal is one logged meal. Stored in a single cell as
// "<name>/<calories>/<protein>/<carbs>/<fat>".
type Meal struct {
	Name     string  `json:"name"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// EncodeMeal packs a meal into the cell format. The name has the delimiter
// stripped so the cell stays decodable; macros go through SanitizeMacro.
func EncodeMeal(meal Meal) string {
	name := strings.TrimSpace(strings.ReplaceAll(meal.Name, "/", "-"))
	return strings.Join([]string{
		name,
		formatMacro(SanitizeMacro(meal.Calories)),
		formatMacro(SanitizeMacro(meal.Protein)),
		formatMacro(SanitizeMacro(meal.Carbs)),
		formatMacro(SanitizeMacro(meal.Fat)),
	}, "/")
}

// DecodeMeal parses a cell value. Returns nil unless the value has exactly
// 5 slash-delimited parts.
func DecodeMeal(text string) *Meal {
	parts := strings.Split(text, "/")
	if len(parts) != 5 {
		return nil
	}
	return &Meal{
		Name:     strings.TrimSpace(parts[0]),
		Calories: parseMacro(parts[1]),
		Protein:  parseMacro(parts[2]),
		Carbs:    parseMacro(parts[3]),
		Fat:      parseMacro(parts[4]),
	}
}

// SanitizeMacro is the numeric rule for every meal macro field: non-finite
// values become 0, negatives are clamped to 0, everything is rounded to one
// decimal place.
func SanitizeMacro(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	if value < 0 {
		return 0
	}
	return math.Round(value*10) / 10
}

func parseMacro(text string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return SanitizeMacro(f)
}

func formatMacro(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
