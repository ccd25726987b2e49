package storage

import (
	"context"
	"errors"
	"time"

	"glowUpAPI/internal/activity"
	"glowUpAPI/internal/notification"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/user"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrUnavailable marks failures of the backing store itself. Callers
	// surface it as a degraded-mode condition; there is no retry here.
	ErrUnavailable = errors.New("persistence unavailable")
)

// PointEvent is one row of the append-only point ledger.
type PointEvent struct {
	ID         uuid.UUID            `json:"id" db:"id"`
	Source     progress.PointSource `json:"source" db:"source"`
	Delta      int                  `json:"delta" db:"delta"`
	TotalAfter int                  `json:"totalAfter" db:"total_after"`
	CreatedAt  time.Time            `json:"createdAt" db:"created_at"`
}

// Store is the persistence collaborator. Every read and write happens inside
// WithinUserTx and is scoped to that user's rows.
type Store interface {
	// WithinUserTx runs fn as one atomic unit. Concurrent calls for the same
	// user are serialized; if fn returns an error nothing it wrote is kept.
	WithinUserTx(ctx context.Context, userID string, fn func(tx Tx) error) error

	RegisterDevice(ctx context.Context, userID string, token notification.DeviceToken) error
	DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error)

	Ping(ctx context.Context) error
	Close()
}

// Tx is a user-scoped unit of work.
type Tx interface {
	GetProfile(ctx context.Context) (*user.Profile, error)
	UpsertProfile(ctx context.Context, profile user.Profile) error
	DeleteUserData(ctx context.Context) error

	// GetPoints returns the initial state when the user has no points row yet.
	GetPoints(ctx context.Context) (progress.UserPointsState, error)
	SavePoints(ctx context.Context, state progress.UserPointsState) error
	InsertPointEvent(ctx context.Context, event PointEvent) error
	// ListPointEvents returns the newest ledger rows first.
	ListPointEvents(ctx context.Context, limit int) ([]PointEvent, error)

	// GetDailyStats reports false when no record exists for day.
	GetDailyStats(ctx context.Context, day progress.Day) (progress.DailyStats, bool, error)
	SaveDailyStats(ctx context.Context, stats progress.DailyStats) error
	ListDailyStats(ctx context.Context, from, to progress.Day) ([]progress.DailyStats, error)

	MissionClaims(ctx context.Context, day progress.Day) (map[string]time.Time, error)
	InsertMissionClaim(ctx context.Context, day progress.Day, missionID string, at time.Time) error

	ListTasks(ctx context.Context) ([]progress.ScheduledTask, error)
	InsertTask(ctx context.Context, task progress.ScheduledTask) error
	DeleteTask(ctx context.Context, taskID string) error
	TaskCompletions(ctx context.Context, day progress.Day) (map[string]time.Time, error)
	InsertTaskCompletion(ctx context.Context, taskID string, day progress.Day, at time.Time) error

	InsertActivity(ctx context.Context, entry activity.Entry) error
	GetActivity(ctx context.Context, id uuid.UUID) (activity.Entry, error)
	DeleteActivity(ctx context.Context, id uuid.UUID) error
	// ListActivities returns the day's entries, newest first. An empty kind
	// matches every kind.
	ListActivities(ctx context.Context, day progress.Day, kind activity.Kind) ([]activity.Entry, error)
}
