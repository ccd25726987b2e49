package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"glowUpAPI/internal/activity"
	"glowUpAPI/internal/notification"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB connects to TEST_DATABASE_URL and applies the schema. Tests
// that need it are skipped when no database is configured.
func setupTestDB(t *testing.T) *PostgresStore {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "failed to connect to test database")
	require.NoError(t, pool.Ping(ctx), "failed to ping test database")

	store := NewPostgresStoreFromPool(pool)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(store.Close)
	return store
}

func testUserID(t *testing.T, store *PostgresStore) string {
	t.Helper()
	userID := fmt.Sprintf("user_test_%d", time.Now().UnixNano())
	t.Cleanup(func() {
		err := store.WithinUserTx(context.Background(), userID, func(tx Tx) error {
			return tx.DeleteUserData(context.Background())
		})
		if err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
	})
	return userID
}

func TestPostgresStore_ProgressRoundTrip(t *testing.T) {
	store := setupTestDB(t)
	userID := testUserID(t, store)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	entry := activity.NewEntry(userID, day, activity.Request{
		Kind: activity.KindMeal,
		Meal: &activity.Meal{MealType: activity.Breakfast, Items: []string{"oats", "berries"}, Calories: 420},
	}, at)

	err := store.WithinUserTx(ctx, userID, func(tx Tx) error {
		require.NoError(t, tx.UpsertProfile(ctx, user.Profile{UserID: userID, Email: "test@example.com", CreatedAt: at, UpdatedAt: at}))
		require.NoError(t, tx.SavePoints(ctx, progress.AddPoints(progress.NewUserPointsState(), 110)))
		require.NoError(t, tx.InsertPointEvent(ctx, PointEvent{ID: uuid.New(), Source: progress.SourceMeal, Delta: 110, TotalAfter: 110, CreatedAt: at}))

		stats := progress.NewDailyStats(day)
		stats.Meals = 1
		require.NoError(t, tx.SaveDailyStats(ctx, stats))
		require.NoError(t, tx.InsertActivity(ctx, entry))

		require.NoError(t, tx.InsertMissionClaim(ctx, day, "daily_1", at))
		assert.ErrorIs(t, tx.InsertMissionClaim(ctx, day, "daily_1", at), progress.ErrAlreadyCompleted)
		return nil
	})
	require.NoError(t, err)

	err = store.WithinUserTx(ctx, userID, func(tx Tx) error {
		profile, err := tx.GetProfile(ctx)
		require.NoError(t, err)
		assert.Equal(t, "test@example.com", profile.Email)

		points, err := tx.GetPoints(ctx)
		require.NoError(t, err)
		assert.Equal(t, 110, points.TotalPoints)
		assert.Equal(t, 2, points.Level)

		events, err := tx.ListPointEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, 110, events[0].Delta)

		stats, found, err := tx.GetDailyStats(ctx, day)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, 1, stats.Meals)

		claims, err := tx.MissionClaims(ctx, day)
		require.NoError(t, err)
		assert.Contains(t, claims, "daily_1")

		entries, err := tx.ListActivities(ctx, day, activity.KindMeal)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.ID, entries[0].ID)
		require.NotNil(t, entries[0].Meal)
		assert.Equal(t, []string{"oats", "berries"}, entries[0].Meal.Items)

		none, err := tx.ListActivities(ctx, day, activity.KindWorkout)
		require.NoError(t, err)
		assert.Empty(t, none)

		require.NoError(t, tx.DeleteActivity(ctx, entry.ID))
		assert.ErrorIs(t, tx.DeleteActivity(ctx, entry.ID), ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStore_TasksAndCompletions(t *testing.T) {
	store := setupTestDB(t)
	userID := testUserID(t, store)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC)

	task := progress.ScheduledTask{
		ID:            "task_stretch",
		Title:         "Stretch",
		ScheduledTime: "07:00",
		Category:      progress.CategoryMorning,
		Kind:          progress.TaskGeneric,
	}

	err := store.WithinUserTx(ctx, userID, func(tx Tx) error {
		require.NoError(t, tx.InsertTask(ctx, task))
		require.NoError(t, tx.InsertTaskCompletion(ctx, task.ID, day, at))
		assert.ErrorIs(t, tx.InsertTaskCompletion(ctx, task.ID, day, at), progress.ErrAlreadyCompleted)

		tasks, err := tx.ListTasks(ctx)
		require.NoError(t, err)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Stretch", tasks[0].Title)

		completions, err := tx.TaskCompletions(ctx, day)
		require.NoError(t, err)
		assert.Contains(t, completions, task.ID)

		require.NoError(t, tx.DeleteTask(ctx, task.ID))
		assert.ErrorIs(t, tx.DeleteTask(ctx, task.ID), ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStore_RollsBackOnError(t *testing.T) {
	store := setupTestDB(t)
	userID := testUserID(t, store)
	ctx := context.Background()

	err := store.WithinUserTx(ctx, userID, func(tx Tx) error {
		require.NoError(t, tx.SavePoints(ctx, progress.AddPoints(progress.NewUserPointsState(), 40)))
		return progress.ErrInvalidInput
	})
	require.ErrorIs(t, err, progress.ErrInvalidInput)

	err = store.WithinUserTx(ctx, userID, func(tx Tx) error {
		points, err := tx.GetPoints(ctx)
		require.NoError(t, err)
		assert.Equal(t, progress.NewUserPointsState(), points)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStore_SerializesUserTransactions(t *testing.T) {
	store := setupTestDB(t)
	userID := testUserID(t, store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithinUserTx(ctx, userID, func(tx Tx) error {
				points, err := tx.GetPoints(ctx)
				if err != nil {
					return err
				}
				return tx.SavePoints(ctx, progress.AddPoints(points, 5))
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	err := store.WithinUserTx(ctx, userID, func(tx Tx) error {
		points, err := tx.GetPoints(ctx)
		require.NoError(t, err)
		assert.Equal(t, 50, points.TotalPoints)
		return nil
	})
	require.NoError(t, err)
}

func TestPostgresStore_DeviceTokens(t *testing.T) {
	store := setupTestDB(t)
	userID := testUserID(t, store)
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC)

	require.NoError(t, store.RegisterDevice(ctx, userID, notification.DeviceToken{Token: "tok", Platform: "ios", UpdatedAt: at}))
	require.NoError(t, store.RegisterDevice(ctx, userID, notification.DeviceToken{Token: "tok", Platform: "android", UpdatedAt: at.Add(time.Minute)}))

	tokens, err := store.DeviceTokens(ctx, userID)
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "android", tokens[0].Platform)
}
