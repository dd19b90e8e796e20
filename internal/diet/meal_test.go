package diet

import (
	"math"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMeal(t *testing.T) {
	assert.Equal(t, "Eggs/140/12/1/10", EncodeMeal(Meal{
		Name: "Eggs", Calories: 140, Protein: 12, Carbs: 1, Fat: 10,
	}))
	// negatives clamp, extra precision rounds to one decimal
	assert.Equal(t, "Oats/389.4/0/66.3/6.9", EncodeMeal(Meal{
		Name: "Oats", Calories: 389.44, Protein: -5, Carbs: 66.27, Fat: 6.9,
	}))
	// delimiter in name must not break the cell grammar
	assert.Equal(t, "Mac - Cheese/600/20/70/25", EncodeMeal(Meal{
		Name: "Mac / Cheese", Calories: 600, Protein: 20, Carbs: 70, Fat: 25,
	}))
}

func TestDecodeMeal(t *testing.T) {
	meal := DecodeMeal("Eggs/140/12/1/10")
	require.NotNil(t, meal)
	assert.Equal(t, "Eggs", meal.Name)
	assert.Equal(t, 140.0, meal.Calories)
	assert.Equal(t, 12.0, meal.Protein)
	assert.Equal(t, 1.0, meal.Carbs)
	assert.Equal(t, 10.0, meal.Fat)

	// garbage numbers parse to zero
	meal = DecodeMeal("Mystery/abc/1/2/3")
	require.NotNil(t, meal)
	assert.Equal(t, 0.0, meal.Calories)

	assert.Nil(t, DecodeMeal(""))
	assert.Nil(t, DecodeMeal("Eggs/140"))
	assert.Nil(t, DecodeMeal("Eggs/140/12/1/10/extra"))
}

func TestMealRoundTrip(t *testing.T) {
	original := Meal{Name: "Greek Yogurt", Calories: 146.58, Protein: 20.1, Carbs: 7.84, Fat: 3.8}
	decoded := DecodeMeal(EncodeMeal(original))
	require.NotNil(t, decoded)
	assert.Equal(t, "Greek Yogurt", decoded.Name)
	assert.Equal(t, 146.6, decoded.Calories)
	assert.Equal(t, 20.1, decoded.Protein)
	assert.Equal(t, 7.8, decoded.Carbs)
	assert.Equal(t, 3.8, decoded.Fat)
}

func TestMealRoundTrip_generated(t *testing.T) {
	gofakeit.Seed(42)
	for i := 0; i < 50; i++ {
		original := Meal{
			Name:     gofakeit.Dinner(),
			Calories: gofakeit.Float64Range(0, 2000),
			Protein:  gofakeit.Float64Range(0, 200),
			Carbs:    gofakeit.Float64Range(0, 300),
			Fat:      gofakeit.Float64Range(0, 150),
		}
		decoded := DecodeMeal(EncodeMeal(original))
		require.NotNil(t, decoded, "meal: %+v", original)
		assert.Equal(t, strings.ReplaceAll(original.Name, "/", "-"), decoded.Name)
		assert.Equal(t, SanitizeMacro(original.Calories), decoded.Calories)
		assert.Equal(t, SanitizeMacro(original.Protein), decoded.Protein)
		assert.Equal(t, SanitizeMacro(original.Carbs), decoded.Carbs)
		assert.Equal(t, SanitizeMacro(original.Fat), decoded.Fat)
	}
}

func TestSanitizeMacro(t *testing.T) {
	assert.Equal(t, 0.0, SanitizeMacro(math.NaN()))
	assert.Equal(t, 0.0, SanitizeMacro(math.Inf(1)))
	assert.Equal(t, 0.0, SanitizeMacro(-12.5))
	assert.Equal(t, 12.3, SanitizeMacro(12.34))
	assert.Equal(t, 12.4, SanitizeMacro(12.36))
}
