package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddPointsKeepsLevelDerived(t *testing.T) {
	deltas := []int{5, 10, 20, 15, 30, 40, 25, 20, 5, 10, 100, 7}

	state := NewUserPointsState()
	sum := 0
	for _, d := range deltas {
		state = AddPoints(state, d)
		sum += d

		assert.Equal(t, sum, state.TotalPoints)
		assert.Equal(t, state.TotalPoints/100+1, state.Level)
	}
}

func TestAddPointsLevelBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		total int
		level int
	}{
		{"zero", 0, 1},
		{"just below first boundary", 99, 1},
		{"first boundary", 100, 2},
		{"inside level two", 150, 2},
		{"second boundary", 200, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := AddPoints(NewUserPointsState(), tt.total)
			assert.Equal(t, tt.level, state.Level)
		})
	}
}

func TestAddPointsCrossesLevelInSameUpdate(t *testing.T) {
	state := AddPoints(NewUserPointsState(), 95)
	assert.Equal(t, 1, state.Level)

	state = AddPoints(state, 10)
	assert.Equal(t, 105, state.TotalPoints)
	assert.Equal(t, 2, state.Level)
}

func TestAddPointsClampsAtZero(t *testing.T) {
	state := AddPoints(NewUserPointsState(), 30)
	state = AddPoints(state, -50)

	assert.Equal(t, 0, state.TotalPoints)
	assert.Equal(t, 1, state.Level)
}

func TestNormalizeRepairsDriftedLevel(t *testing.T) {
	state := UserPointsState{TotalPoints: 250, Level: 1}.Normalize()
	assert.Equal(t, 3, state.Level)
}

func TestPointsToNextLevel(t *testing.T) {
	state := AddPoints(NewUserPointsState(), 160)
	assert.Equal(t, 60, state.PointsIntoLevel())
	assert.Equal(t, 40, state.PointsToNextLevel())
}
