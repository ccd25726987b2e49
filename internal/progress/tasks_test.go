package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRewards(t *testing.T) {
	generic := ScheduledTask{Kind: TaskGeneric}
	assert.Equal(t, 5, generic.PointsReward())
	_, ok := generic.Stat()
	assert.False(t, ok)

	skincare, err := SkincareTaskFor("night")
	require.NoError(t, err)
	assert.Equal(t, 15, skincare.PointsReward())
	stat, ok := skincare.Stat()
	assert.True(t, ok)
	assert.Equal(t, StatSkincare, stat)
}

func TestCompletedTodayDerivedFromCompletions(t *testing.T) {
	task := ScheduledTask{ID: "t1", Title: "Lunch", ScheduledTime: "12:00"}

	state := NewTaskState(task, nil)
	assert.False(t, state.CompletedToday)
	assert.NoError(t, CheckCompletable(state))

	state = NewTaskState(task, map[string]time.Time{"t1": time.Now()})
	assert.True(t, state.CompletedToday)
	assert.ErrorIs(t, CheckCompletable(state), ErrAlreadyCompleted)
}

func TestTaskStatesOrderedByTime(t *testing.T) {
	tasks := []ScheduledTask{
		{ID: "b", ScheduledTime: "18:00"},
		{ID: "a", ScheduledTime: "07:00"},
		{ID: "c", ScheduledTime: "12:00"},
	}

	states := TaskStates(tasks, nil)
	require.Len(t, states, 3)
	assert.Equal(t, "a", states[0].ID)
	assert.Equal(t, "c", states[1].ID)
	assert.Equal(t, "b", states[2].ID)
}

func TestValidateTask(t *testing.T) {
	valid := ScheduledTask{Title: "Read", ScheduledTime: "21:15", Category: CategoryNight, Kind: TaskGeneric}
	assert.NoError(t, valid.Validate())

	badTime := valid
	badTime.ScheduledTime = "25:00"
	assert.ErrorIs(t, badTime.Validate(), ErrInvalidInput)

	noTitle := valid
	noTitle.Title = "  "
	assert.ErrorIs(t, noTitle.Validate(), ErrInvalidInput)

	badCategory := valid
	badCategory.Category = "noon"
	assert.ErrorIs(t, badCategory.Validate(), ErrInvalidInput)

	skincare := valid
	skincare.Kind = TaskSkincare
	assert.ErrorIs(t, skincare.Validate(), ErrInvalidInput)
}

func TestDefaultRoutineIsGeneric(t *testing.T) {
	for _, task := range DefaultRoutine() {
		assert.NoError(t, task.Validate(), task.Title)
		for _, builtIn := range SkincareRoutineTasks {
			assert.NotEqual(t, builtIn.Title, task.Title)
		}
	}
}

func TestSkincareTaskForUnknown(t *testing.T) {
	_, err := SkincareTaskFor("afternoon")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
