package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glowUpAPI/internal/activity"
	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/storage"

	"github.com/google/uuid"
)

const maxHistoryDays = 90

// CompletionResult reports the outcome of a points-awarding operation.
// A rejected attempt (already completed, not eligible) is a result with
// Success false, not an error.
type CompletionResult struct {
	Success       bool                     `json:"success"`
	PointsAwarded int                      `json:"pointsAwarded"`
	Reason        string                   `json:"reason,omitempty"`
	Points        progress.UserPointsState `json:"points"`
	LeveledUp     bool                     `json:"leveledUp"`

	Rejection error `json:"-"`
}

type ActivityResult struct {
	CompletionResult
	Entry *activity.Entry      `json:"entry,omitempty"`
	Stats *progress.DailyStats `json:"stats,omitempty"`
}

type MissionResult struct {
	CompletionResult
	Mission *progress.Mission `json:"mission,omitempty"`
}

type TaskResult struct {
	CompletionResult
	Task  *progress.TaskState  `json:"task,omitempty"`
	Stats *progress.DailyStats `json:"stats,omitempty"`
}

// DailySnapshot is everything the dashboard shows for one day.
type DailySnapshot struct {
	Day               progress.Day             `json:"day"`
	Stats             progress.DailyStats      `json:"stats"`
	Missions          []progress.Mission       `json:"missions"`
	Tasks             []progress.TaskState     `json:"tasks"`
	Points            progress.UserPointsState `json:"points"`
	PointsIntoLevel   int                      `json:"pointsIntoLevel"`
	PointsToNextLevel int                      `json:"pointsToNextLevel"`
}

type ProgressService struct {
	store         storage.Store
	hub           *LiveHub
	notifications *NotificationService
	now           func() time.Time
}

func NewProgressService(store storage.Store, hub *LiveHub, notifications *NotificationService) *ProgressService {
	return &ProgressService{
		store:         store,
		hub:           hub,
		notifications: notifications,
		now:           time.Now,
	}
}

func isAlreadyCompleted(err error) bool { return errors.Is(err, progress.ErrAlreadyCompleted) }

func isNotEligible(err error) bool { return errors.Is(err, progress.ErrNotEligible) }

func isInvalidInput(err error) bool { return errors.Is(err, progress.ErrInvalidInput) }

func rejectedResult(err error, points progress.UserPointsState) CompletionResult {
	reason := progress.ErrNotEligible.Error()
	if isAlreadyCompleted(err) {
		reason = progress.ErrAlreadyCompleted.Error()
	}
	return CompletionResult{Success: false, Reason: reason, Points: points, Rejection: err}
}

// award applies delta to the user's total and writes the ledger row in the
// caller's transaction.
func (s *ProgressService) award(ctx context.Context, tx storage.Tx, delta int, source progress.PointSource, at time.Time) (before, after progress.UserPointsState, err error) {
	before, err = tx.GetPoints(ctx)
	if err != nil {
		return before, before, fmt.Errorf("failed to load points: %w", err)
	}
	if delta == 0 {
		return before, before, nil
	}

	after = progress.AddPoints(before, delta)
	if err := tx.SavePoints(ctx, after); err != nil {
		return before, after, fmt.Errorf("failed to save points: %w", err)
	}

	event := storage.PointEvent{
		ID:         uuid.New(),
		Source:     source,
		Delta:      delta,
		TotalAfter: after.TotalPoints,
		CreatedAt:  at,
	}
	if err := tx.InsertPointEvent(ctx, event); err != nil {
		return before, after, fmt.Errorf("failed to record point event: %w", err)
	}
	return before, after, nil
}

// increment is the get-or-create-then-increment step for one counter.
func (s *ProgressService) increment(ctx context.Context, tx storage.Tx, day progress.Day, kind progress.StatKind, amount int) (progress.DailyStats, error) {
	stats, _, err := tx.GetDailyStats(ctx, day)
	if err != nil {
		return stats, fmt.Errorf("failed to load daily stats: %w", err)
	}
	stats, err = stats.Increment(kind, amount)
	if err != nil {
		return stats, err
	}
	if err := tx.SaveDailyStats(ctx, stats); err != nil {
		return stats, fmt.Errorf("failed to save daily stats: %w", err)
	}
	return stats, nil
}

// findTask resolves built-in routine tasks first, then the user's own.
func (s *ProgressService) findTask(ctx context.Context, tx storage.Tx, taskID string) (progress.ScheduledTask, error) {
	if task, ok := progress.BuiltInTask(taskID); ok {
		return task, nil
	}
	tasks, err := tx.ListTasks(ctx)
	if err != nil {
		return progress.ScheduledTask{}, fmt.Errorf("failed to list tasks: %w", err)
	}
	for _, t := range tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return progress.ScheduledTask{}, fmt.Errorf("%w: unknown task %q", progress.ErrInvalidInput, taskID)
}

type taskOutcome struct {
	state  progress.TaskState
	stats  *progress.DailyStats
	before progress.UserPointsState
	after  progress.UserPointsState
}

// completeTask enforces the once-per-day rule, records the completion event,
// awards the task's points and feeds its counter if it has one.
func (s *ProgressService) completeTask(ctx context.Context, tx storage.Tx, task progress.ScheduledTask, day progress.Day, at time.Time) (taskOutcome, error) {
	var out taskOutcome

	completions, err := tx.TaskCompletions(ctx, day)
	if err != nil {
		return out, fmt.Errorf("failed to load task completions: %w", err)
	}
	if err := progress.CheckCompletable(progress.NewTaskState(task, completions)); err != nil {
		return out, err
	}

	if err := tx.InsertTaskCompletion(ctx, task.ID, day, at); err != nil {
		return out, err
	}
	completions[task.ID] = at
	out.state = progress.NewTaskState(task, completions)

	if out.before, out.after, err = s.award(ctx, tx, task.PointsReward(), task.Source(), at); err != nil {
		return out, err
	}

	if kind, ok := task.Stat(); ok {
		stats, err := s.increment(ctx, tx, day, kind, 1)
		if err != nil {
			return out, err
		}
		out.stats = &stats
	}
	return out, nil
}

// RecordActivity logs a meal, workout, skincare routine or water intake for
// day. Skincare logging completes the matching routine task, so a second log
// for the same time of day is rejected as already completed.
func (s *ProgressService) RecordActivity(ctx context.Context, userID string, day progress.Day, req activity.Request) (*ActivityResult, error) {
	if err := req.Validate(); err != nil {
		completionAttemptsTotal.WithLabelValues("activity", outcomeLabel(err)).Inc()
		return nil, err
	}

	at := s.now()
	entry := activity.NewEntry(userID, day, req, at)

	var before, after progress.UserPointsState
	var stats progress.DailyStats
	var awarded int
	var source progress.PointSource

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		if req.Kind == activity.KindSkincare {
			task, err := progress.SkincareTaskFor(req.Skincare.TimeOfDay)
			if err != nil {
				return err
			}
			out, err := s.completeTask(ctx, tx, task, day, at)
			if err != nil {
				return err
			}
			before, after = out.before, out.after
			stats = *out.stats
			awarded, source = task.PointsReward(), task.Source()
			return tx.InsertActivity(ctx, entry)
		}

		if err := tx.InsertActivity(ctx, entry); err != nil {
			return err
		}

		awarded, source = req.Points()
		var err error
		if before, after, err = s.award(ctx, tx, awarded, source, at); err != nil {
			return err
		}
		stats, err = s.increment(ctx, tx, day, req.Kind.Stat(), entry.Amount())
		return err
	})
	completionAttemptsTotal.WithLabelValues("activity", outcomeLabel(err)).Inc()

	if progress.IsRejection(err) {
		points, perr := s.GetPoints(ctx, userID)
		if perr != nil {
			return nil, perr
		}
		return &ActivityResult{CompletionResult: rejectedResult(err, points)}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record %s: %w", req.Kind, err)
	}

	result := &ActivityResult{
		CompletionResult: CompletionResult{
			Success:       true,
			PointsAwarded: awarded,
			Points:        after,
			LeveledUp:     after.Level > before.Level,
		},
		Entry: &entry,
		Stats: &stats,
	}

	logger.Debug("activity recorded", "user", userID, "kind", req.Kind, "day", day, "points", awarded)
	s.afterAward(ctx, userID, source, awarded, before, after)
	s.hub.Publish(userID, LiveEvent{
		Type:          EventActivityRecorded,
		Day:           day,
		PointsAwarded: awarded,
		Points:        &after,
		Stats:         &stats,
		At:            at,
	})
	return result, nil
}

// ClaimMission awards a daily mission's reward once its requirement is met.
func (s *ProgressService) ClaimMission(ctx context.Context, userID string, day progress.Day, missionID string) (*MissionResult, error) {
	if _, err := progress.FindMission(missionID); err != nil {
		completionAttemptsTotal.WithLabelValues("mission", outcomeLabel(err)).Inc()
		return nil, err
	}

	at := s.now()
	var claimed progress.Mission
	var current progress.UserPointsState
	var before, after progress.UserPointsState

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		stats, _, err := tx.GetDailyStats(ctx, day)
		if err != nil {
			return fmt.Errorf("failed to load daily stats: %w", err)
		}
		claims, err := tx.MissionClaims(ctx, day)
		if err != nil {
			return fmt.Errorf("failed to load mission claims: %w", err)
		}
		if current, err = tx.GetPoints(ctx); err != nil {
			return fmt.Errorf("failed to load points: %w", err)
		}

		for _, m := range progress.DailyMissions(stats, claims) {
			if m.ID == missionID {
				claimed = m
				break
			}
		}

		var next progress.UserPointsState
		claimed, next, err = progress.ClaimMission(claimed, current, at)
		if err != nil {
			return err
		}

		if err := tx.InsertMissionClaim(ctx, day, missionID, at); err != nil {
			return err
		}
		if before, after, err = s.award(ctx, tx, next.TotalPoints-current.TotalPoints, progress.SourceMission, at); err != nil {
			return err
		}
		return nil
	})
	completionAttemptsTotal.WithLabelValues("mission", outcomeLabel(err)).Inc()

	if progress.IsRejection(err) {
		return &MissionResult{
			CompletionResult: rejectedResult(err, current),
			Mission:          &claimed,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim mission %s: %w", missionID, err)
	}

	logger.Info("mission claimed", "user", userID, "mission", missionID, "day", day, "reward", claimed.PointsReward)
	s.afterAward(ctx, userID, progress.SourceMission, claimed.PointsReward, before, after)
	if s.notifications != nil {
		s.notifications.NotifyMissionClaimed(ctx, userID, claimed)
	}
	s.hub.Publish(userID, LiveEvent{
		Type:          EventMissionClaimed,
		Day:           day,
		MissionID:     missionID,
		PointsAwarded: claimed.PointsReward,
		Points:        &after,
		At:            at,
	})

	return &MissionResult{
		CompletionResult: CompletionResult{
			Success:       true,
			PointsAwarded: claimed.PointsReward,
			Points:        after,
			LeveledUp:     after.Level > before.Level,
		},
		Mission: &claimed,
	}, nil
}

// CompleteScheduledTask marks a routine task done for day.
func (s *ProgressService) CompleteScheduledTask(ctx context.Context, userID string, day progress.Day, taskID string) (*TaskResult, error) {
	at := s.now()
	var out taskOutcome
	var task progress.ScheduledTask

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		var err error
		if task, err = s.findTask(ctx, tx, taskID); err != nil {
			return err
		}
		out, err = s.completeTask(ctx, tx, task, day, at)
		return err
	})
	completionAttemptsTotal.WithLabelValues("task", outcomeLabel(err)).Inc()

	if progress.IsRejection(err) {
		points, perr := s.GetPoints(ctx, userID)
		if perr != nil {
			return nil, perr
		}
		return &TaskResult{CompletionResult: rejectedResult(err, points)}, nil
	}
	if err != nil {
		if isInvalidInput(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}

	awarded := task.PointsReward()
	s.afterAward(ctx, userID, task.Source(), awarded, out.before, out.after)
	s.hub.Publish(userID, LiveEvent{
		Type:          EventTaskCompleted,
		Day:           day,
		TaskID:        taskID,
		PointsAwarded: awarded,
		Points:        &out.after,
		Stats:         out.stats,
		At:            at,
	})

	return &TaskResult{
		CompletionResult: CompletionResult{
			Success:       true,
			PointsAwarded: awarded,
			Points:        out.after,
			LeveledUp:     out.after.Level > out.before.Level,
		},
		Task:  &out.state,
		Stats: out.stats,
	}, nil
}

// RecordAIAnalysis awards the bonus for using photo analysis on an activity.
func (s *ProgressService) RecordAIAnalysis(ctx context.Context, userID string, kind activity.Kind) (*CompletionResult, error) {
	kind, err := activity.ParseKind(string(kind))
	if err != nil {
		return nil, err
	}
	bonus, err := activity.AIBonus(kind)
	if err != nil {
		return nil, err
	}

	at := s.now()
	var before, after progress.UserPointsState
	err = s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		var err error
		before, after, err = s.award(ctx, tx, bonus, progress.SourceAIAnalysis, at)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to award analysis bonus: %w", err)
	}

	s.afterAward(ctx, userID, progress.SourceAIAnalysis, bonus, before, after)
	s.hub.Publish(userID, LiveEvent{
		Type:          EventPointsAwarded,
		PointsAwarded: bonus,
		Points:        &after,
		At:            at,
	})

	return &CompletionResult{
		Success:       true,
		PointsAwarded: bonus,
		Points:        after,
		LeveledUp:     after.Level > before.Level,
	}, nil
}

// DeleteActivity removes one of the user's log entries. When the entry
// belongs to today the day's counters are rebuilt from what is left; points
// already awarded are kept. Deleting a skincare entry leaves its routine
// completed, so it still counts and cannot be logged again that day.
func (s *ProgressService) DeleteActivity(ctx context.Context, userID string, today progress.Day, id uuid.UUID) (*progress.DailyStats, error) {
	var recounted *progress.DailyStats

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		entry, err := tx.GetActivity(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteActivity(ctx, id); err != nil {
			return err
		}
		if entry.Day != today {
			return nil
		}

		stats, err := s.recount(ctx, tx, today)
		if err != nil {
			return err
		}
		recounted = &stats
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete activity %s: %w", id, err)
	}

	logger.Debug("activity deleted", "user", userID, "id", id, "recounted", recounted != nil)
	s.hub.Publish(userID, LiveEvent{
		Type:  EventActivityDeleted,
		Day:   today,
		Stats: recounted,
		At:    s.now(),
	})
	return recounted, nil
}

// recount rebuilds day's counters. Meals, workouts and water come from the
// activity log; skincare comes from the completed morning and night routines.
func (s *ProgressService) recount(ctx context.Context, tx storage.Tx, day progress.Day) (progress.DailyStats, error) {
	entries, err := tx.ListActivities(ctx, day, "")
	if err != nil {
		return progress.DailyStats{}, fmt.Errorf("failed to list activities: %w", err)
	}
	completions, err := tx.TaskCompletions(ctx, day)
	if err != nil {
		return progress.DailyStats{}, fmt.Errorf("failed to load task completions: %w", err)
	}

	counts := activity.Tally(entries)
	for _, task := range progress.SkincareRoutineTasks {
		if _, done := completions[task.ID]; done {
			counts[progress.StatSkincare]++
		}
	}

	stats := progress.Recount(day, counts)
	if err := tx.SaveDailyStats(ctx, stats); err != nil {
		return stats, fmt.Errorf("failed to save daily stats: %w", err)
	}
	return stats, nil
}

func (s *ProgressService) ListActivities(ctx context.Context, userID string, day progress.Day, kind activity.Kind) ([]activity.Entry, error) {
	if kind != "" {
		var err error
		if kind, err = activity.ParseKind(string(kind)); err != nil {
			return nil, err
		}
	}

	var entries []activity.Entry
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		var err error
		entries, err = tx.ListActivities(ctx, day, kind)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	if entries == nil {
		entries = []activity.Entry{}
	}
	return entries, nil
}

// GetDailySnapshot is read only: a day without a stats record shows zeros
// and nothing is persisted.
func (s *ProgressService) GetDailySnapshot(ctx context.Context, userID string, day progress.Day) (*DailySnapshot, error) {
	snapshot := &DailySnapshot{Day: day}

	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		stats, _, err := tx.GetDailyStats(ctx, day)
		if err != nil {
			return err
		}
		claims, err := tx.MissionClaims(ctx, day)
		if err != nil {
			return err
		}
		tasks, err := tx.ListTasks(ctx)
		if err != nil {
			return err
		}
		completions, err := tx.TaskCompletions(ctx, day)
		if err != nil {
			return err
		}
		points, err := tx.GetPoints(ctx)
		if err != nil {
			return err
		}

		all := append(append([]progress.ScheduledTask(nil), progress.SkincareRoutineTasks...), tasks...)
		snapshot.Stats = stats
		snapshot.Missions = progress.DailyMissions(stats, claims)
		snapshot.Tasks = progress.TaskStates(all, completions)
		snapshot.Points = points
		snapshot.PointsIntoLevel = points.PointsIntoLevel()
		snapshot.PointsToNextLevel = points.PointsToNextLevel()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load daily snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *ProgressService) GetPoints(ctx context.Context, userID string) (progress.UserPointsState, error) {
	var points progress.UserPointsState
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		var err error
		points, err = tx.GetPoints(ctx)
		return err
	})
	if err != nil {
		return points, fmt.Errorf("failed to load points: %w", err)
	}
	return points, nil
}

// GetPointHistory returns the newest ledger entries first.
func (s *ProgressService) GetPointHistory(ctx context.Context, userID string, limit int) ([]storage.PointEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var events []storage.PointEvent
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		var err error
		events, err = tx.ListPointEvents(ctx, limit)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load point history: %w", err)
	}
	if events == nil {
		events = []storage.PointEvent{}
	}
	return events, nil
}

// GetStatsHistory returns one record per day for the days ending at today,
// oldest first, with zeros for days without activity.
func (s *ProgressService) GetStatsHistory(ctx context.Context, userID string, today progress.Day, days int) ([]progress.DailyStats, error) {
	if days < 1 || days > maxHistoryDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", progress.ErrInvalidInput, maxHistoryDays)
	}
	from := today.AddDays(-(days - 1))

	var stored []progress.DailyStats
	err := s.store.WithinUserTx(ctx, userID, func(tx storage.Tx) error {
		var err error
		stored, err = tx.ListDailyStats(ctx, from, today)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stats history: %w", err)
	}

	byDay := make(map[progress.Day]progress.DailyStats, len(stored))
	for _, st := range stored {
		byDay[st.Day] = st
	}

	history := make([]progress.DailyStats, 0, days)
	for d := from; d <= today; d = d.Next() {
		if st, ok := byDay[d]; ok {
			history = append(history, st)
			continue
		}
		history = append(history, progress.NewDailyStats(d))
	}
	return history, nil
}

func (s *ProgressService) afterAward(ctx context.Context, userID string, source progress.PointSource, awarded int, before, after progress.UserPointsState) {
	if awarded != 0 {
		pointsAwardedTotal.WithLabelValues(string(source)).Add(float64(awarded))
	}
	if after.Level <= before.Level {
		return
	}

	levelUpsTotal.Inc()
	logger.Info("level up", "user", userID, "level", after.Level, "total", after.TotalPoints)
	s.hub.Publish(userID, LiveEvent{Type: EventLevelUp, Points: &after, At: s.now()})
	if s.notifications != nil {
		s.notifications.NotifyLevelUp(context.WithoutCancel(ctx), userID, after.Level)
	}
}
