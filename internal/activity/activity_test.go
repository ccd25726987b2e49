package activity

import (
	"testing"
	"time"

	"glowUpAPI/internal/progress"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaloriesBurned(t *testing.T) {
	tests := []struct {
		intensity Intensity
		want      int
	}{
		{IntensityLow, 105},
		{IntensityMedium, 150},
		{IntensityHigh, 225},
	}
	for _, tt := range tests {
		got, err := CaloriesBurned(30, tt.intensity)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.intensity)
	}

	_, err := CaloriesBurned(30, "extreme")
	assert.ErrorIs(t, err, progress.ErrInvalidInput)
}

func TestValidateMeal(t *testing.T) {
	req := Request{Kind: "Meal", Meal: &Meal{MealType: Lunch, Items: []string{" rice ", "", "beans"}, PhotoURL: "https://cdn/x.jpg"}}
	require.NoError(t, req.Validate())

	assert.Equal(t, KindMeal, req.Kind)
	assert.Equal(t, []string{"rice", "beans"}, req.Meal.Items)
	assert.True(t, req.Meal.AIAnalyzed)

	points, source := req.Points()
	assert.Equal(t, progress.PointsMealWithPhoto, points)
	assert.Equal(t, progress.SourceMeal, source)
}

func TestValidateRejectsMismatchedPayload(t *testing.T) {
	req := Request{Kind: KindWorkout, Meal: &Meal{MealType: Lunch, Items: []string{"rice"}}}
	assert.ErrorIs(t, req.Validate(), progress.ErrInvalidInput)

	req = Request{Kind: KindWater}
	assert.ErrorIs(t, req.Validate(), progress.ErrInvalidInput)

	req = Request{Kind: "yoga", Water: &Water{Amount: 1}}
	assert.ErrorIs(t, req.Validate(), progress.ErrInvalidInput)
}

func TestValidateWorkoutDefaultsIntensity(t *testing.T) {
	req := Request{Kind: KindWorkout, Workout: &Workout{Type: "Run", DurationMinutes: 20}}
	require.NoError(t, req.Validate())

	assert.Equal(t, IntensityMedium, req.Workout.Intensity)
	assert.Equal(t, 100, req.Workout.CaloriesBurned)
}

func TestValidateSkincareTimeOfDay(t *testing.T) {
	req := Request{Kind: KindSkincare, Skincare: &Skincare{TimeOfDay: "Night", Products: []string{"serum"}}}
	require.NoError(t, req.Validate())
	assert.Equal(t, "night", req.Skincare.TimeOfDay)

	req = Request{Kind: KindSkincare, Skincare: &Skincare{TimeOfDay: "noon"}}
	assert.ErrorIs(t, req.Validate(), progress.ErrInvalidInput)
}

func TestTally(t *testing.T) {
	day := progress.Day("2026-10-17")
	now := time.Now()
	entries := []Entry{
		NewEntry("u1", day, Request{Kind: KindMeal, Meal: &Meal{}}, now),
		NewEntry("u1", day, Request{Kind: KindMeal, Meal: &Meal{}}, now),
		NewEntry("u1", day, Request{Kind: KindWater, Water: &Water{Amount: 2}}, now),
		NewEntry("u1", day, Request{Kind: KindWater, Water: &Water{Amount: 1}}, now),
		NewEntry("u1", day, Request{Kind: KindSkincare, Skincare: &Skincare{TimeOfDay: "morning"}}, now),
	}

	counts := Tally(entries)
	assert.Equal(t, 2, counts[progress.StatMeals])
	assert.Equal(t, 3, counts[progress.StatWater])
	assert.Equal(t, 0, counts[progress.StatSkincare])
}

func TestAIBonus(t *testing.T) {
	bonus, err := AIBonus(KindMeal)
	require.NoError(t, err)
	assert.Equal(t, 5, bonus)

	bonus, err = AIBonus(KindSkincare)
	require.NoError(t, err)
	assert.Equal(t, 10, bonus)

	_, err = AIBonus(KindWater)
	assert.ErrorIs(t, err, progress.ErrInvalidInput)
}
