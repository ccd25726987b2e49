package progress

import (
	"fmt"
	"time"
)

// MissionStatus is the derived state of a daily mission instance.
type MissionStatus string

const (
	MissionPending     MissionStatus = "pending"
	MissionCompletable MissionStatus = "completable"
	MissionCompleted   MissionStatus = "completed"
)

// MissionDefinition is one entry of the fixed daily catalog.
type MissionDefinition struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Icon         string   `json:"icon"`
	PointsReward int      `json:"pointsReward"`
	Requirement  int      `json:"requirement"`
	Stat         StatKind `json:"stat"`
}

// DailyMissionCatalog is regenerated for every calendar day.
var DailyMissionCatalog = []MissionDefinition{
	{
		ID:           "daily_1",
		Title:        "Log 3 Meals",
		Description:  "Complete today's food diary",
		Icon:         "🍽️",
		PointsReward: 30,
		Requirement:  3,
		Stat:         StatMeals,
	},
	{
		ID:           "daily_2",
		Title:        "Complete 1 Workout",
		Description:  "Do at least one workout today",
		Icon:         "💪",
		PointsReward: 40,
		Requirement:  1,
		Stat:         StatWorkouts,
	},
	{
		ID:           "daily_3",
		Title:        "Skincare Routine",
		Description:  "Complete your morning and night routine",
		Icon:         "✨",
		PointsReward: 25,
		Requirement:  2,
		Stat:         StatSkincare,
	},
	{
		ID:           "daily_4",
		Title:        "Drink 2L of Water",
		Description:  "Stay hydrated throughout the day",
		Icon:         "💧",
		PointsReward: 20,
		Requirement:  2,
		Stat:         StatWater,
	},
}

// FindMission looks up a catalog entry by id.
func FindMission(id string) (MissionDefinition, error) {
	for _, def := range DailyMissionCatalog {
		if def.ID == id {
			return def, nil
		}
	}
	return MissionDefinition{}, fmt.Errorf("%w: unknown mission %q", ErrInvalidInput, id)
}

// Mission is a catalog entry instantiated for one day.
type Mission struct {
	MissionDefinition
	Day         Day           `json:"day"`
	Progress    int           `json:"progress"`
	Completed   bool          `json:"completed"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
	Status      MissionStatus `json:"status"`
}

// NewMission returns a fresh pending instance bound to day.
func NewMission(def MissionDefinition, day Day) Mission {
	return Mission{MissionDefinition: def, Day: day, Status: MissionPending}
}

// Completable reports whether the requirement is met and the reward is
// still unclaimed.
func (m Mission) Completable() bool {
	return !m.Completed && m.Progress >= m.Requirement
}

// Recompute refreshes progress from the day's stats. Completion is terminal,
// so a completed mission keeps its status.
func (m Mission) Recompute(stats DailyStats) Mission {
	if stats.Day == m.Day {
		m.Progress = stats.Get(m.Stat)
	}
	switch {
	case m.Completed:
		m.Status = MissionCompleted
	case m.Progress >= m.Requirement:
		m.Status = MissionCompletable
	default:
		m.Status = MissionPending
	}
	return m
}

// DailyMissions builds the day's mission instances from the catalog, applying
// recorded claims and current stats.
func DailyMissions(stats DailyStats, claims map[string]time.Time) []Mission {
	missions := make([]Mission, 0, len(DailyMissionCatalog))
	for _, def := range DailyMissionCatalog {
		m := NewMission(def, stats.Day)
		if at, ok := claims[def.ID]; ok {
			claimedAt := at
			m.Completed = true
			m.CompletedAt = &claimedAt
		}
		missions = append(missions, m.Recompute(stats))
	}
	return missions
}

// ClaimMission transitions a completable mission to completed and awards its
// reward once. Ineligible or already completed missions are returned unchanged
// along with the reason.
func ClaimMission(m Mission, points UserPointsState, at time.Time) (Mission, UserPointsState, error) {
	if m.Completed {
		return m, points, ErrAlreadyCompleted
	}
	if m.Progress < m.Requirement {
		return m, points, ErrNotEligible
	}

	m.Completed = true
	m.CompletedAt = &at
	m.Status = MissionCompleted
	return m, AddPoints(points, m.PointsReward), nil
}
