package services

import (
	"context"
	"testing"

	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/storage"
	"glowUpAPI/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDefaultRoutine_Idempotent(t *testing.T) {
	routines := NewRoutineService(storage.NewMemoryStore())
	ctx := context.Background()

	created, err := routines.SeedDefaultRoutine(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, len(progress.DefaultRoutine()), created)

	created, err = routines.SeedDefaultRoutine(ctx, testUser)
	require.NoError(t, err)
	assert.Zero(t, created)

	states, err := routines.ListRoutine(ctx, testUser, today)
	require.NoError(t, err)
	assert.Len(t, states, len(progress.DefaultRoutine())+len(progress.SkincareRoutineTasks))
	for i := 1; i < len(states); i++ {
		assert.LessOrEqual(t, states[i-1].ScheduledTime, states[i].ScheduledTime)
	}

	titles := map[string]int{}
	for _, st := range states {
		titles[st.Title]++
		if !st.BuiltIn {
			assert.Equal(t, progress.TaskGeneric, st.Kind)
		}
	}
	for title, n := range titles {
		assert.Equal(t, 1, n, "duplicate routine item %q", title)
	}
}

func TestCreateTask_Validation(t *testing.T) {
	routines := NewRoutineService(storage.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateTaskRequest
	}{
		{"missing title", CreateTaskRequest{ScheduledTime: "08:00", Category: progress.CategoryMorning}},
		{"bad time", CreateTaskRequest{Title: "Walk", ScheduledTime: "8am", Category: progress.CategoryMorning}},
		{"bad category", CreateTaskRequest{Title: "Walk", ScheduledTime: "08:00", Category: "brunch"}},
		{"bad kind", CreateTaskRequest{Title: "Walk", ScheduledTime: "08:00", Category: progress.CategoryMorning, Kind: "chore"}},
		{"skincare kind", CreateTaskRequest{Title: "Face mask", ScheduledTime: "20:00", Category: progress.CategoryEvening, Kind: progress.TaskSkincare}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := routines.CreateTask(ctx, testUser, &tt.req)
			assert.ErrorIs(t, err, progress.ErrInvalidInput)
		})
	}

	task, err := routines.CreateTask(ctx, testUser, &CreateTaskRequest{
		Title:         "  Journal ",
		ScheduledTime: "21:00",
		Category:      "Night",
	})
	require.NoError(t, err)
	assert.Equal(t, "Journal", task.Title)
	assert.Equal(t, progress.CategoryNight, task.Category)
	assert.Equal(t, progress.TaskGeneric, task.Kind)
	assert.NotEmpty(t, task.ID)

	states, err := routines.ListRoutine(ctx, testUser, today)
	require.NoError(t, err)
	var skincare []string
	for _, st := range states {
		if st.Kind == progress.TaskSkincare {
			skincare = append(skincare, st.ID)
		}
	}
	assert.ElementsMatch(t, []string{progress.SkincareMorningTaskID, progress.SkincareNightTaskID}, skincare)
}

func TestDeleteTask(t *testing.T) {
	routines := NewRoutineService(storage.NewMemoryStore())
	ctx := context.Background()

	task, err := routines.CreateTask(ctx, testUser, &CreateTaskRequest{Title: "Walk", ScheduledTime: "17:00", Category: progress.CategoryAfternoon})
	require.NoError(t, err)

	require.NoError(t, routines.DeleteTask(ctx, testUser, task.ID))
	assert.ErrorIs(t, routines.DeleteTask(ctx, testUser, task.ID), storage.ErrNotFound)
	assert.ErrorIs(t, routines.DeleteTask(ctx, testUser, progress.SkincareNightTaskID), progress.ErrInvalidInput)
}

func TestUserService_Lifecycle(t *testing.T) {
	store := storage.NewMemoryStore()
	routines := NewRoutineService(store)
	users := NewUserService(store, routines)
	ctx := context.Background()

	profile, err := users.CreateUser(ctx, &user.UpsertProfileRequest{UserID: testUser, Email: "glow@example.com", FullName: "Ana"})
	require.NoError(t, err)
	assert.Equal(t, testUser, profile.UserID)

	states, err := routines.ListRoutine(ctx, testUser, today)
	require.NoError(t, err)
	assert.Len(t, states, len(progress.DefaultRoutine())+len(progress.SkincareRoutineTasks))

	updated, err := users.UpsertProfile(ctx, &user.UpsertProfileRequest{UserID: testUser, Email: "new@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, profile.CreatedAt, updated.CreatedAt)

	resp, err := users.GetProfile(ctx, testUser)
	require.NoError(t, err)
	require.NotNil(t, resp.Profile)
	assert.Equal(t, progress.NewUserPointsState(), resp.Points)
	assert.Equal(t, 100, resp.PointsToNextLevel)

	require.NoError(t, users.DeleteUser(ctx, testUser))
	resp, err = users.GetProfile(ctx, testUser)
	require.NoError(t, err)
	assert.Nil(t, resp.Profile)

	_, err = users.UpsertProfile(ctx, &user.UpsertProfileRequest{})
	assert.ErrorIs(t, err, progress.ErrInvalidInput)
}
