package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"glowUpAPI/internal/activity"
	"glowUpAPI/internal/notification"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/user"

	"github.com/google/uuid"
)

// MemoryStore keeps all state in process. It backs local development and
// tests; a transaction works on a copy of the user's data and swaps it in
// only when fn succeeds.
type MemoryStore struct {
	mu        sync.Mutex
	users     map[string]*userData
	userLocks map[string]*sync.Mutex
	devices   map[string][]notification.DeviceToken
}

type userData struct {
	profile     *user.Profile
	points      *progress.UserPointsState
	events      []PointEvent
	stats       map[progress.Day]progress.DailyStats
	claims      map[progress.Day]map[string]time.Time
	tasks       []progress.ScheduledTask
	completions map[progress.Day]map[string]time.Time
	activities  []activity.Entry
	deleted     bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]*userData),
		userLocks: make(map[string]*sync.Mutex),
		devices:   make(map[string][]notification.DeviceToken),
	}
}

func newUserData() *userData {
	return &userData{
		stats:       make(map[progress.Day]progress.DailyStats),
		claims:      make(map[progress.Day]map[string]time.Time),
		completions: make(map[progress.Day]map[string]time.Time),
	}
}

func (d *userData) clone() *userData {
	c := newUserData()
	if d.profile != nil {
		p := *d.profile
		c.profile = &p
	}
	if d.points != nil {
		p := *d.points
		c.points = &p
	}
	c.events = append([]PointEvent(nil), d.events...)
	for day, s := range d.stats {
		c.stats[day] = s
	}
	c.claims = cloneDayMap(d.claims)
	c.completions = cloneDayMap(d.completions)
	c.tasks = append([]progress.ScheduledTask(nil), d.tasks...)
	c.activities = append([]activity.Entry(nil), d.activities...)
	return c
}

func cloneDayMap(src map[progress.Day]map[string]time.Time) map[progress.Day]map[string]time.Time {
	dst := make(map[progress.Day]map[string]time.Time, len(src))
	for day, inner := range src {
		m := make(map[string]time.Time, len(inner))
		for k, v := range inner {
			m[k] = v
		}
		dst[day] = m
	}
	return dst
}

func (s *MemoryStore) lockFor(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	return l
}

func (s *MemoryStore) WithinUserTx(ctx context.Context, userID string, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.lockFor(userID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	current, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		current = newUserData()
	}

	working := current.clone()
	if err := fn(&memoryTx{userID: userID, data: working}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if working.deleted {
		delete(s.users, userID)
		delete(s.devices, userID)
		return nil
	}
	s.users[userID] = working
	return nil
}

func (s *MemoryStore) RegisterDevice(ctx context.Context, userID string, token notification.DeviceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tokens := s.devices[userID]
	for i, t := range tokens {
		if t.Token == token.Token {
			tokens[i] = token
			return nil
		}
	}
	s.devices[userID] = append(tokens, token)
	return nil
}

func (s *MemoryStore) DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.DeviceToken(nil), s.devices[userID]...), nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() {}

type memoryTx struct {
	userID string
	data   *userData
}

func (tx *memoryTx) GetProfile(ctx context.Context) (*user.Profile, error) {
	if tx.data.profile == nil {
		return nil, ErrNotFound
	}
	p := *tx.data.profile
	return &p, nil
}

func (tx *memoryTx) UpsertProfile(ctx context.Context, profile user.Profile) error {
	profile.UserID = tx.userID
	if tx.data.profile != nil {
		profile.CreatedAt = tx.data.profile.CreatedAt
	}
	tx.data.profile = &profile
	tx.data.deleted = false
	return nil
}

func (tx *memoryTx) DeleteUserData(ctx context.Context) error {
	*tx.data = *newUserData()
	tx.data.deleted = true
	return nil
}

func (tx *memoryTx) GetPoints(ctx context.Context) (progress.UserPointsState, error) {
	if tx.data.points == nil {
		return progress.NewUserPointsState(), nil
	}
	return *tx.data.points, nil
}

func (tx *memoryTx) SavePoints(ctx context.Context, state progress.UserPointsState) error {
	state = state.Normalize()
	tx.data.points = &state
	return nil
}

func (tx *memoryTx) InsertPointEvent(ctx context.Context, event PointEvent) error {
	tx.data.events = append(tx.data.events, event)
	return nil
}

func (tx *memoryTx) ListPointEvents(ctx context.Context, limit int) ([]PointEvent, error) {
	out := make([]PointEvent, 0, len(tx.data.events))
	for i := len(tx.data.events) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, tx.data.events[i])
	}
	return out, nil
}

func (tx *memoryTx) GetDailyStats(ctx context.Context, day progress.Day) (progress.DailyStats, bool, error) {
	stats, ok := tx.data.stats[day]
	if !ok {
		return progress.NewDailyStats(day), false, nil
	}
	return stats, true, nil
}

func (tx *memoryTx) SaveDailyStats(ctx context.Context, stats progress.DailyStats) error {
	tx.data.stats[stats.Day] = stats
	return nil
}

func (tx *memoryTx) ListDailyStats(ctx context.Context, from, to progress.Day) ([]progress.DailyStats, error) {
	var out []progress.DailyStats
	for day, stats := range tx.data.stats {
		if day >= from && day <= to {
			out = append(out, stats)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (tx *memoryTx) MissionClaims(ctx context.Context, day progress.Day) (map[string]time.Time, error) {
	claims := make(map[string]time.Time)
	for id, at := range tx.data.claims[day] {
		claims[id] = at
	}
	return claims, nil
}

func (tx *memoryTx) InsertMissionClaim(ctx context.Context, day progress.Day, missionID string, at time.Time) error {
	claims, ok := tx.data.claims[day]
	if !ok {
		claims = make(map[string]time.Time)
		tx.data.claims[day] = claims
	}
	if _, exists := claims[missionID]; exists {
		return progress.ErrAlreadyCompleted
	}
	claims[missionID] = at
	return nil
}

func (tx *memoryTx) ListTasks(ctx context.Context) ([]progress.ScheduledTask, error) {
	return append([]progress.ScheduledTask(nil), tx.data.tasks...), nil
}

func (tx *memoryTx) InsertTask(ctx context.Context, task progress.ScheduledTask) error {
	tx.data.tasks = append(tx.data.tasks, task)
	return nil
}

func (tx *memoryTx) DeleteTask(ctx context.Context, taskID string) error {
	for i, t := range tx.data.tasks {
		if t.ID == taskID {
			tx.data.tasks = append(tx.data.tasks[:i], tx.data.tasks[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (tx *memoryTx) TaskCompletions(ctx context.Context, day progress.Day) (map[string]time.Time, error) {
	completions := make(map[string]time.Time)
	for id, at := range tx.data.completions[day] {
		completions[id] = at
	}
	return completions, nil
}

func (tx *memoryTx) InsertTaskCompletion(ctx context.Context, taskID string, day progress.Day, at time.Time) error {
	completions, ok := tx.data.completions[day]
	if !ok {
		completions = make(map[string]time.Time)
		tx.data.completions[day] = completions
	}
	if _, exists := completions[taskID]; exists {
		return progress.ErrAlreadyCompleted
	}
	completions[taskID] = at
	return nil
}

func (tx *memoryTx) InsertActivity(ctx context.Context, entry activity.Entry) error {
	entry.UserID = tx.userID
	tx.data.activities = append(tx.data.activities, entry)
	return nil
}

func (tx *memoryTx) GetActivity(ctx context.Context, id uuid.UUID) (activity.Entry, error) {
	for _, e := range tx.data.activities {
		if e.ID == id {
			return e, nil
		}
	}
	return activity.Entry{}, ErrNotFound
}

func (tx *memoryTx) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	for i, e := range tx.data.activities {
		if e.ID == id {
			tx.data.activities = append(tx.data.activities[:i], tx.data.activities[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (tx *memoryTx) ListActivities(ctx context.Context, day progress.Day, kind activity.Kind) ([]activity.Entry, error) {
	var out []activity.Entry
	for _, e := range tx.data.activities {
		if e.Day == day && (kind == "" || e.Kind == kind) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LoggedAt.After(out[j].LoggedAt) })
	return out, nil
}
