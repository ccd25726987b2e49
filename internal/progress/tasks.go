package progress

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// TaskCategory is the time-of-day slot a scheduled task belongs to.
type TaskCategory string

const (
	CategoryMorning   TaskCategory = "morning"
	CategoryAfternoon TaskCategory = "afternoon"
	CategoryEvening   TaskCategory = "evening"
	CategoryNight     TaskCategory = "night"
)

// TaskKind decides the reward and the counter a completion feeds.
type TaskKind string

const (
	TaskGeneric  TaskKind = "generic"
	TaskSkincare TaskKind = "skincare"
)

// Built-in skincare routine task ids.
const (
	SkincareMorningTaskID = "skincare_morning"
	SkincareNightTaskID   = "skincare_night"
)

var scheduledTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// ScheduledTask is a routine item that can be completed once per day.
type ScheduledTask struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	ScheduledTime string       `json:"time"`
	Category      TaskCategory `json:"category"`
	Kind          TaskKind     `json:"kind"`
	BuiltIn       bool         `json:"builtIn"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// PointsReward is the award for completing the task.
func (t ScheduledTask) PointsReward() int {
	if t.Kind == TaskSkincare {
		return PointsSkincareRoutine
	}
	return PointsScheduledTask
}

// Source is the ledger label for the task's award.
func (t ScheduledTask) Source() PointSource {
	if t.Kind == TaskSkincare {
		return SourceSkincare
	}
	return SourceScheduledTask
}

// Stat returns the counter fed by completing the task, if any.
func (t ScheduledTask) Stat() (StatKind, bool) {
	if t.Kind == TaskSkincare {
		return StatSkincare, true
	}
	return "", false
}

// Validate checks a user-supplied task before it is stored.
func (t ScheduledTask) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !scheduledTimePattern.MatchString(t.ScheduledTime) {
		return fmt.Errorf("%w: time %q must be HH:MM", ErrInvalidInput, t.ScheduledTime)
	}
	switch t.Category {
	case CategoryMorning, CategoryAfternoon, CategoryEvening, CategoryNight:
	default:
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, t.Category)
	}
	switch t.Kind {
	case TaskGeneric:
	case TaskSkincare:
		return fmt.Errorf("%w: skincare tasks are limited to the morning and night routines", ErrInvalidInput)
	default:
		return fmt.Errorf("%w: unknown task kind %q", ErrInvalidInput, t.Kind)
	}
	return nil
}

// SkincareRoutineTasks are present for every user without being stored.
var SkincareRoutineTasks = []ScheduledTask{
	{
		ID:            SkincareMorningTaskID,
		Title:         "Morning Skincare",
		Description:   "Cleanse, moisturize and apply sunscreen",
		ScheduledTime: "07:30",
		Category:      CategoryMorning,
		Kind:          TaskSkincare,
		BuiltIn:       true,
	},
	{
		ID:            SkincareNightTaskID,
		Title:         "Night Skincare",
		Description:   "Take care of your skin before bed",
		ScheduledTime: "22:00",
		Category:      CategoryNight,
		Kind:          TaskSkincare,
		BuiltIn:       true,
	},
}

// SkincareTaskFor maps a skincare time of day to its built-in task.
func SkincareTaskFor(timeOfDay string) (ScheduledTask, error) {
	switch strings.ToLower(timeOfDay) {
	case "morning":
		return SkincareRoutineTasks[0], nil
	case "night":
		return SkincareRoutineTasks[1], nil
	}
	return ScheduledTask{}, fmt.Errorf("%w: skincare time of day must be morning or night, got %q", ErrInvalidInput, timeOfDay)
}

// BuiltInTask returns the built-in task with id, if there is one.
func BuiltInTask(id string) (ScheduledTask, bool) {
	for _, t := range SkincareRoutineTasks {
		if t.ID == id {
			return t, true
		}
	}
	return ScheduledTask{}, false
}

// DefaultRoutine is seeded for new users.
func DefaultRoutine() []ScheduledTask {
	return []ScheduledTask{
		{Title: "Morning Routine", Description: "Wake up, drink water and stretch", ScheduledTime: "07:00", Category: CategoryMorning, Kind: TaskGeneric},
		{Title: "Breakfast", Description: "Healthy and balanced meal", ScheduledTime: "08:00", Category: CategoryMorning, Kind: TaskGeneric},
		{Title: "Lunch", Description: "Main meal of the day", ScheduledTime: "12:00", Category: CategoryAfternoon, Kind: TaskGeneric},
		{Title: "Workout", Description: "Physical exercise", ScheduledTime: "18:00", Category: CategoryEvening, Kind: TaskGeneric},
		{Title: "Wind Down", Description: "Screens off and get ready for sleep", ScheduledTime: "21:30", Category: CategoryNight, Kind: TaskGeneric},
	}
}

// TaskState is a task together with its completion for one day.
type TaskState struct {
	ScheduledTask
	CompletedToday bool       `json:"completedToday"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// NewTaskState derives completedToday from the completion events of the day.
func NewTaskState(task ScheduledTask, completions map[string]time.Time) TaskState {
	state := TaskState{ScheduledTask: task}
	if at, ok := completions[task.ID]; ok {
		completedAt := at
		state.CompletedToday = true
		state.CompletedAt = &completedAt
	}
	return state
}

// TaskStates builds the states of all tasks ordered by scheduled time.
func TaskStates(tasks []ScheduledTask, completions map[string]time.Time) []TaskState {
	states := make([]TaskState, 0, len(tasks))
	for _, t := range tasks {
		states = append(states, NewTaskState(t, completions))
	}
	sort.SliceStable(states, func(i, j int) bool {
		return states[i].ScheduledTime < states[j].ScheduledTime
	})
	return states
}

// CheckCompletable guards the once-per-day rule.
func CheckCompletable(state TaskState) error {
	if state.CompletedToday {
		return ErrAlreadyCompleted
	}
	return nil
}
