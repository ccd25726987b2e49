package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/storage"

	"github.com/google/uuid"
)

type CreateTaskRequest struct {
	Title         string                `json:"title"`
	Description   string                `json:"description"`
	ScheduledTime string                `json:"time"`
	Category      progress.TaskCategory `json:"category"`
	Kind          progress.TaskKind     `json:"kind"`
}

type RoutineService struct {
	store storage.Store
	now   func() time.Time
}

func NewRoutineService(store storage.Store) *RoutineService {
	return &RoutineService{store: store, now: time.Now}
}

// ListRoutine returns the built-in skincare tasks plus the user's own, with
// their completion state for day.
func (s *RoutineService) ListRoutine(ctx context.Context, userID string, day progress.Day) ([]progress.TaskState, error) {
	var states []progress.TaskState
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		tasks, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}
		completions, err := tx.TaskCompletions(ctx, day)
		if err != nil {
			return err
		}
		all := append(append([]progress.ScheduledTask(nil), progress.SkincareRoutineTasks...), tasks...)
		states = progress.TaskStates(all, completions)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list routine: %w", err)
	}
	return states, nil
}

func (s *RoutineService) CreateTask(ctx context.Context, userID string, req *CreateTaskRequest) (*progress.ScheduledTask, error) {
	kind := req.Kind
	if kind == "" {
		kind = progress.TaskGeneric
	}
	task := progress.ScheduledTask{
		ID:            uuid.NewString(),
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		ScheduledTime: strings.TrimSpace(req.ScheduledTime),
		Category:      progress.TaskCategory(strings.ToLower(string(req.Category))),
		Kind:          kind,
		CreatedAt:     s.now(),
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		return tx.InsertTask(ctx, task)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &task, nil
}

// DeleteTask removes one of the user's tasks. Built-in tasks cannot be
// removed. Past completions stay in place.
func (s *RoutineService) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, ok := progress.BuiltInTask(taskID); ok {
		return fmt.Errorf("%w: built-in task %q cannot be deleted", progress.ErrInvalidInput, taskID)
	}

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		return tx.DeleteTask(ctx, taskID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	return nil
}

// SeedDefaultRoutine stores the starter routine for a user who has no tasks
// yet. It reports how many tasks were created; zero means the user already
// had a routine.
func (s *RoutineService) SeedDefaultRoutine(ctx context.Context, userID string) (int, error) {
	created := 0
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		existing, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		now := s.now()
		for _, task := range progress.DefaultRoutine() {
			task.ID = uuid.NewString()
			task.CreatedAt = now
			if err := tx.InsertTask(ctx, task); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed default routine: %w", err)
	}

	if created > 0 {
		logger.Info("seeded default routine", "user", userID, "tasks", created)
	}
	return created, nil
}
