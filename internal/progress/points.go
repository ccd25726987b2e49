package progress

// PointsPerLevel is the width of every level band: level L covers
// [PointsPerLevel*(L-1), PointsPerLevel*L).
const PointsPerLevel = 100

// Fixed awards per activity source.
const (
	PointsScheduledTask   = 5
	PointsMeal            = 10
	PointsMealWithPhoto   = 15
	PointsSkincareRoutine = 15
	PointsWorkout         = 20
	PointsWater           = 0
	PointsAIMealAnalysis  = 5
	PointsAIPhotoAnalysis = 10
)

// PointSource labels where an award came from in the point ledger.
type PointSource string

const (
	SourceMeal          PointSource = "meal"
	SourceWorkout       PointSource = "workout"
	SourceWater         PointSource = "water"
	SourceSkincare      PointSource = "skincare_routine"
	SourceScheduledTask PointSource = "scheduled_task"
	SourceMission       PointSource = "mission"
	SourceAIAnalysis    PointSource = "ai_analysis"
)

// UserPointsState is the authoritative point total of a user. Level is
// always derived from TotalPoints.
type UserPointsState struct {
	TotalPoints int `json:"totalPoints"`
	Level       int `json:"level"`
}

// NewUserPointsState returns the state of a user with no activity yet.
func NewUserPointsState() UserPointsState {
	return UserPointsState{TotalPoints: 0, Level: 1}
}

// LevelFor derives the level for a point total.
func LevelFor(totalPoints int) int {
	if totalPoints < 0 {
		totalPoints = 0
	}
	return totalPoints/PointsPerLevel + 1
}

// AddPoints applies delta and recomputes the level in the same step.
// Totals are clamped at zero.
func AddPoints(state UserPointsState, delta int) UserPointsState {
	total := state.TotalPoints + delta
	if total < 0 {
		total = 0
	}
	return UserPointsState{TotalPoints: total, Level: LevelFor(total)}
}

// Normalize repairs a stored state whose level drifted from its total.
func (s UserPointsState) Normalize() UserPointsState {
	return AddPoints(UserPointsState{TotalPoints: s.TotalPoints}, 0)
}

// PointsIntoLevel is how far the user is into the current level band.
func (s UserPointsState) PointsIntoLevel() int {
	return s.TotalPoints % PointsPerLevel
}

// PointsToNextLevel is the number of points still missing for the next level.
func (s UserPointsState) PointsToNextLevel() int {
	return PointsPerLevel - s.PointsIntoLevel()
}
