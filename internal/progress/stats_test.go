package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatKind(t *testing.T) {
	kind, err := ParseStatKind(" Meals ")
	require.NoError(t, err)
	assert.Equal(t, StatMeals, kind)

	_, err = ParseStatKind("sleep")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIncrementCounters(t *testing.T) {
	stats := NewDailyStats("2026-10-17")

	stats, err := stats.Increment(StatMeals, 1)
	require.NoError(t, err)
	stats, err = stats.Increment(StatWater, 3)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Meals)
	assert.Equal(t, 3, stats.Water)
	assert.Equal(t, 0, stats.Workouts)
}

func TestIncrementRejectsInvalidAmounts(t *testing.T) {
	stats := NewDailyStats("2026-10-17")

	_, err := stats.Increment(StatMeals, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = stats.Increment(StatWater, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = stats.Increment(StatKind("sleep"), 1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecountIgnoresNegativeTallies(t *testing.T) {
	stats := Recount("2026-10-17", map[StatKind]int{StatMeals: 2, StatWater: -1})
	assert.Equal(t, 2, stats.Meals)
	assert.Equal(t, 0, stats.Water)
}

func TestDayOfUsesLocation(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	instant := time.Date(2026, 10, 18, 1, 30, 0, 0, time.UTC)
	assert.Equal(t, Day("2026-10-17"), DayOf(instant, loc))
	assert.Equal(t, Day("2026-10-18"), DayOf(instant, time.UTC))
}

func TestDayArithmetic(t *testing.T) {
	day := Day("2026-12-31")
	assert.Equal(t, Day("2027-01-01"), day.Next())
	assert.Equal(t, Day("2026-12-30"), day.Prev())

	_, err := ParseDay("31/12/2026")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
