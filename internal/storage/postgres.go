package storage

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"glowUpAPI/internal/activity"
	"glowUpAPI/internal/notification"
	"glowUpAPI/internal/progress"
	"glowUpAPI/internal/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore opens a pool tuned the same way for every deployment and
// checks the connection before returning.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

func NewPostgresStoreFromPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

// Migrate creates the tables if they do not exist yet.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrUnavailable, op, err)
}

func (s *PostgresStore) WithinUserTx(ctx context.Context, userID string, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return unavailable("begin transaction", err)
	}
	defer tx.Rollback(ctx)

	// Serializes read-modify-write cycles of one user across connections.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return unavailable("lock user", err)
	}

	if err := fn(&pgTx{tx: tx, userID: userID}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return unavailable("commit transaction", err)
	}
	return nil
}

func (s *PostgresStore) RegisterDevice(ctx context.Context, userID string, token notification.DeviceToken) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, token)
		DO UPDATE SET platform = EXCLUDED.platform, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.Exec(ctx, query, userID, token.Token, token.Platform, token.UpdatedAt); err != nil {
		return unavailable("register device", err)
	}
	return nil
}

func (s *PostgresStore) DeviceTokens(ctx context.Context, userID string) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT token, platform, updated_at
		FROM device_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, unavailable("query device tokens", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.UpdatedAt); err != nil {
			return nil, unavailable("scan device token", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate device tokens", err)
	}
	return tokens, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return unavailable("ping database", err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

type pgTx struct {
	tx     pgx.Tx
	userID string
}

func (t *pgTx) GetProfile(ctx context.Context) (*user.Profile, error) {
	var p user.Profile
	err := t.tx.QueryRow(ctx, `
		SELECT user_id, email, full_name, avatar_url, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`, t.userID).Scan(
		&p.UserID, &p.Email, &p.FullName, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get profile", err)
	}
	return &p, nil
}

func (t *pgTx) UpsertProfile(ctx context.Context, profile user.Profile) error {
	query := `
		INSERT INTO profiles (user_id, email, full_name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			full_name = EXCLUDED.full_name,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at`

	_, err := t.tx.Exec(ctx, query,
		t.userID, profile.Email, profile.FullName, profile.AvatarURL, profile.CreatedAt, profile.UpdatedAt,
	)
	if err != nil {
		return unavailable("upsert profile", err)
	}
	return nil
}

func (t *pgTx) DeleteUserData(ctx context.Context) error {
	tables := []string{
		"activity_log",
		"task_completions",
		"scheduled_tasks",
		"mission_claims",
		"daily_stats",
		"point_events",
		"user_points",
		"device_tokens",
		"profiles",
	}
	for _, table := range tables {
		if _, err := t.tx.Exec(ctx, "DELETE FROM "+table+" WHERE user_id = $1", t.userID); err != nil {
			return unavailable("delete from "+table, err)
		}
	}
	return nil
}

func (t *pgTx) GetPoints(ctx context.Context) (progress.UserPointsState, error) {
	var state progress.UserPointsState
	err := t.tx.QueryRow(ctx, `
		SELECT total_points, level FROM user_points WHERE user_id = $1`, t.userID,
	).Scan(&state.TotalPoints, &state.Level)
	if errors.Is(err, pgx.ErrNoRows) {
		return progress.NewUserPointsState(), nil
	}
	if err != nil {
		return state, unavailable("get points", err)
	}
	return state.Normalize(), nil
}

func (t *pgTx) SavePoints(ctx context.Context, state progress.UserPointsState) error {
	state = state.Normalize()
	query := `
		INSERT INTO user_points (user_id, total_points, level, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			total_points = EXCLUDED.total_points,
			level = EXCLUDED.level,
			updated_at = NOW()`

	if _, err := t.tx.Exec(ctx, query, t.userID, state.TotalPoints, state.Level); err != nil {
		return unavailable("save points", err)
	}
	return nil
}

func (t *pgTx) InsertPointEvent(ctx context.Context, event PointEvent) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO point_events (id, user_id, source, delta, total_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		event.ID, t.userID, string(event.Source), event.Delta, event.TotalAfter, event.CreatedAt,
	)
	if err != nil {
		return unavailable("insert point event", err)
	}
	return nil
}

func (t *pgTx) ListPointEvents(ctx context.Context, limit int) ([]PointEvent, error) {
	query := `
		SELECT id, source, delta, total_after, created_at
		FROM point_events
		WHERE user_id = $1
		ORDER BY created_at DESC`
	args := []any{t.userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query point events", err)
	}
	defer rows.Close()

	events := []PointEvent{}
	for rows.Next() {
		var e PointEvent
		var source string
		if err := rows.Scan(&e.ID, &source, &e.Delta, &e.TotalAfter, &e.CreatedAt); err != nil {
			return nil, unavailable("scan point event", err)
		}
		e.Source = progress.PointSource(source)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate point events", err)
	}
	return events, nil
}

func (t *pgTx) GetDailyStats(ctx context.Context, day progress.Day) (progress.DailyStats, bool, error) {
	stats := progress.NewDailyStats(day)
	err := t.tx.QueryRow(ctx, `
		SELECT meals, workouts, skincare, water
		FROM daily_stats
		WHERE user_id = $1 AND date = $2`, t.userID, day.Time(),
	).Scan(&stats.Meals, &stats.Workouts, &stats.Skincare, &stats.Water)
	if errors.Is(err, pgx.ErrNoRows) {
		return progress.NewDailyStats(day), false, nil
	}
	if err != nil {
		return stats, false, unavailable("get daily stats", err)
	}
	return stats, true, nil
}

func (t *pgTx) SaveDailyStats(ctx context.Context, stats progress.DailyStats) error {
	query := `
		INSERT INTO daily_stats (user_id, date, meals, workouts, skincare, water, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id, date) DO UPDATE SET
			meals = EXCLUDED.meals,
			workouts = EXCLUDED.workouts,
			skincare = EXCLUDED.skincare,
			water = EXCLUDED.water,
			updated_at = NOW()`

	_, err := t.tx.Exec(ctx, query,
		t.userID, stats.Day.Time(), stats.Meals, stats.Workouts, stats.Skincare, stats.Water,
	)
	if err != nil {
		return unavailable("save daily stats", err)
	}
	return nil
}

func (t *pgTx) ListDailyStats(ctx context.Context, from, to progress.Day) ([]progress.DailyStats, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT date, meals, workouts, skincare, water
		FROM daily_stats
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC`, t.userID, from.Time(), to.Time())
	if err != nil {
		return nil, unavailable("query daily stats", err)
	}
	defer rows.Close()

	var out []progress.DailyStats
	for rows.Next() {
		var date time.Time
		var s progress.DailyStats
		if err := rows.Scan(&date, &s.Meals, &s.Workouts, &s.Skincare, &s.Water); err != nil {
			return nil, unavailable("scan daily stats", err)
		}
		s.Day = progress.DayOf(date, time.UTC)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate daily stats", err)
	}
	return out, nil
}

func (t *pgTx) dayEvents(ctx context.Context, query string, day progress.Day) (map[string]time.Time, error) {
	rows, err := t.tx.Query(ctx, query, t.userID, day.Time())
	if err != nil {
		return nil, unavailable("query completion events", err)
	}
	defer rows.Close()

	events := make(map[string]time.Time)
	for rows.Next() {
		var id string
		var at time.Time
		if err := rows.Scan(&id, &at); err != nil {
			return nil, unavailable("scan completion event", err)
		}
		events[id] = at
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate completion events", err)
	}
	return events, nil
}

func (t *pgTx) MissionClaims(ctx context.Context, day progress.Day) (map[string]time.Time, error) {
	return t.dayEvents(ctx, `
		SELECT mission_id, claimed_at
		FROM mission_claims
		WHERE user_id = $1 AND date = $2`, day)
}

func (t *pgTx) InsertMissionClaim(ctx context.Context, day progress.Day, missionID string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO mission_claims (user_id, date, mission_id, claimed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, date, mission_id) DO NOTHING`,
		t.userID, day.Time(), missionID, at,
	)
	if err != nil {
		return unavailable("insert mission claim", err)
	}
	if tag.RowsAffected() == 0 {
		return progress.ErrAlreadyCompleted
	}
	return nil
}

func (t *pgTx) ListTasks(ctx context.Context) ([]progress.ScheduledTask, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT id, title, description, scheduled_time, category, kind, created_at
		FROM scheduled_tasks
		WHERE user_id = $1
		ORDER BY scheduled_time ASC, created_at ASC`, t.userID)
	if err != nil {
		return nil, unavailable("query tasks", err)
	}
	defer rows.Close()

	var tasks []progress.ScheduledTask
	for rows.Next() {
		var task progress.ScheduledTask
		var category, kind string
		if err := rows.Scan(
			&task.ID, &task.Title, &task.Description, &task.ScheduledTime,
			&category, &kind, &task.CreatedAt,
		); err != nil {
			return nil, unavailable("scan task", err)
		}
		task.Category = progress.TaskCategory(category)
		task.Kind = progress.TaskKind(kind)
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate tasks", err)
	}
	return tasks, nil
}

func (t *pgTx) InsertTask(ctx context.Context, task progress.ScheduledTask) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO scheduled_tasks (user_id, id, title, description, scheduled_time, category, kind, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.userID, task.ID, task.Title, task.Description, task.ScheduledTime,
		string(task.Category), string(task.Kind), task.CreatedAt,
	)
	if err != nil {
		return unavailable("insert task", err)
	}
	return nil
}

func (t *pgTx) DeleteTask(ctx context.Context, taskID string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM scheduled_tasks WHERE user_id = $1 AND id = $2`, t.userID, taskID)
	if err != nil {
		return unavailable("delete task", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) TaskCompletions(ctx context.Context, day progress.Day) (map[string]time.Time, error) {
	return t.dayEvents(ctx, `
		SELECT task_id, completed_at
		FROM task_completions
		WHERE user_id = $1 AND date = $2`, day)
}

func (t *pgTx) InsertTaskCompletion(ctx context.Context, taskID string, day progress.Day, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO task_completions (user_id, task_id, date, completed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, task_id, date) DO NOTHING`,
		t.userID, taskID, day.Time(), at,
	)
	if err != nil {
		return unavailable("insert task completion", err)
	}
	if tag.RowsAffected() == 0 {
		return progress.ErrAlreadyCompleted
	}
	return nil
}

func activityPayload(entry activity.Entry) ([]byte, error) {
	var payload any
	switch entry.Kind {
	case activity.KindMeal:
		payload = entry.Meal
	case activity.KindWorkout:
		payload = entry.Workout
	case activity.KindSkincare:
		payload = entry.Skincare
	case activity.KindWater:
		payload = entry.Water
	default:
		return nil, fmt.Errorf("%w: unknown activity kind %q", progress.ErrInvalidInput, entry.Kind)
	}
	return json.Marshal(payload)
}

func decodeActivityPayload(entry *activity.Entry, raw []byte) error {
	switch entry.Kind {
	case activity.KindMeal:
		entry.Meal = &activity.Meal{}
		return json.Unmarshal(raw, entry.Meal)
	case activity.KindWorkout:
		entry.Workout = &activity.Workout{}
		return json.Unmarshal(raw, entry.Workout)
	case activity.KindSkincare:
		entry.Skincare = &activity.Skincare{}
		return json.Unmarshal(raw, entry.Skincare)
	case activity.KindWater:
		entry.Water = &activity.Water{}
		return json.Unmarshal(raw, entry.Water)
	}
	return fmt.Errorf("unknown activity kind %q", entry.Kind)
}

func (t *pgTx) InsertActivity(ctx context.Context, entry activity.Entry) error {
	payload, err := activityPayload(entry)
	if err != nil {
		return err
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO activity_log (id, user_id, kind, date, logged_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, t.userID, string(entry.Kind), entry.Day.Time(), entry.LoggedAt, payload,
	)
	if err != nil {
		return unavailable("insert activity", err)
	}
	return nil
}

const activityColumns = `id, user_id, kind, date, logged_at, payload`

func scanActivity(row pgx.Row) (activity.Entry, error) {
	var e activity.Entry
	var kind string
	var date time.Time
	var payload []byte
	if err := row.Scan(&e.ID, &e.UserID, &kind, &date, &e.LoggedAt, &payload); err != nil {
		return e, err
	}
	e.Kind = activity.Kind(kind)
	e.Day = progress.DayOf(date, time.UTC)
	if err := decodeActivityPayload(&e, payload); err != nil {
		return e, fmt.Errorf("failed to decode activity %s: %w", e.ID, err)
	}
	return e, nil
}

func (t *pgTx) GetActivity(ctx context.Context, id uuid.UUID) (activity.Entry, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+activityColumns+`
		FROM activity_log
		WHERE user_id = $1 AND id = $2`, t.userID, id)

	e, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return activity.Entry{}, ErrNotFound
	}
	if err != nil {
		return activity.Entry{}, unavailable("get activity", err)
	}
	return e, nil
}

func (t *pgTx) DeleteActivity(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM activity_log WHERE user_id = $1 AND id = $2`, t.userID, id)
	if err != nil {
		return unavailable("delete activity", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) ListActivities(ctx context.Context, day progress.Day, kind activity.Kind) ([]activity.Entry, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT `+activityColumns+`
		FROM activity_log
		WHERE user_id = $1 AND date = $2 AND ($3::text = '' OR kind = $3::text)
		ORDER BY logged_at DESC`, t.userID, day.Time(), string(kind))
	if err != nil {
		return nil, unavailable("query activities", err)
	}
	defer rows.Close()

	var out []activity.Entry
	for rows.Next() {
		e, err := scanActivity(rows)
		if err != nil {
			return nil, unavailable("scan activity", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate activities", err)
	}
	return out, nil
}
