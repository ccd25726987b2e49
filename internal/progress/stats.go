package progress

import (
	"fmt"
	"strings"
)

// StatKind names one of the per-day activity counters.
type StatKind string

const (
	StatMeals    StatKind = "meals"
	StatWorkouts StatKind = "workouts"
	StatSkincare StatKind = "skincare"
	StatWater    StatKind = "water"
)

var statKinds = []StatKind{StatMeals, StatWorkouts, StatSkincare, StatWater}

// ParseStatKind validates a counter name.
func ParseStatKind(s string) (StatKind, error) {
	kind := StatKind(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range statKinds {
		if k == kind {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: unknown stat kind %q", ErrInvalidInput, s)
}

// DailyStats holds one user's counters for one calendar day.
type DailyStats struct {
	Day      Day `json:"date"`
	Meals    int `json:"meals"`
	Workouts int `json:"workouts"`
	Skincare int `json:"skincare"`
	Water    int `json:"water"`
}

// NewDailyStats returns the zero-initialized record for day.
func NewDailyStats(day Day) DailyStats {
	return DailyStats{Day: day}
}

// Get returns the value of one counter.
func (s DailyStats) Get(kind StatKind) int {
	switch kind {
	case StatMeals:
		return s.Meals
	case StatWorkouts:
		return s.Workouts
	case StatSkincare:
		return s.Skincare
	case StatWater:
		return s.Water
	}
	return 0
}

// Increment adds amount to the named counter. Only water accepts amounts
// other than one, since it tracks volume.
func (s DailyStats) Increment(kind StatKind, amount int) (DailyStats, error) {
	if amount <= 0 {
		return s, fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidInput, amount)
	}
	if kind != StatWater && amount != 1 {
		return s, fmt.Errorf("%w: %s can only be incremented by one", ErrInvalidInput, kind)
	}

	switch kind {
	case StatMeals:
		s.Meals += amount
	case StatWorkouts:
		s.Workouts += amount
	case StatSkincare:
		s.Skincare += amount
	case StatWater:
		s.Water += amount
	default:
		return s, fmt.Errorf("%w: unknown stat kind %q", ErrInvalidInput, kind)
	}
	return s, nil
}

// Recount rebuilds a day's counters from tallied activity. Negative
// tallies are treated as zero.
func Recount(day Day, counts map[StatKind]int) DailyStats {
	nonNegative := func(n int) int {
		if n < 0 {
			return 0
		}
		return n
	}
	return DailyStats{
		Day:      day,
		Meals:    nonNegative(counts[StatMeals]),
		Workouts: nonNegative(counts[StatWorkouts]),
		Skincare: nonNegative(counts[StatSkincare]),
		Water:    nonNegative(counts[StatWater]),
	}
}
