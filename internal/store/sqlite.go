package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/osokhneva-debug/emotion-diary-bot/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- Users ---

// CreateUser inserts a user row if it does not exist yet. Re-creating
// an existing user is a no-op so that /start is always safe.
func (r *SQLiteRepo) CreateUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}
	created := u.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			user_id, created_at, tz_offset,
			check_start_hour, check_end_hour, checks_per_day, onboarding_complete
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO NOTHING`,
		u.ID, created.Unix(), u.TZOffset,
		u.CheckStartHour, u.CheckEndHour, u.ChecksPerDay,
		boolToInt(u.OnboardingComplete),
	)
	return err
}

// GetUser returns a user's settings by id, or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, created_at, tz_offset,
		       check_start_hour, check_end_hour, checks_per_day, onboarding_complete
		FROM users
		WHERE user_id = ?`,
		id,
	)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u          domain.User
		createdAt  int64
		onboarding int
	)
	if err := row.Scan(
		&u.ID, &createdAt, &u.TZOffset,
		&u.CheckStartHour, &u.CheckEndHour, &u.ChecksPerDay, &onboarding,
	); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.OnboardingComplete = onboarding != 0
	return &u, nil
}

// ListUsers returns every user. The resupply and digest jobs iterate
// the full population; per-user fan-out happens above the store.
func (r *SQLiteRepo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, created_at, tz_offset,
		       check_start_hour, check_end_hour, checks_per_day, onboarding_complete
		FROM users
		ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *u)
	}
	return res, rows.Err()
}

// UpdateTimezone sets a user's whole-hour UTC offset.
func (r *SQLiteRepo) UpdateTimezone(ctx context.Context, id int64, offset int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET tz_offset = ? WHERE user_id = ?`, offset, id)
	return err
}

// UpdateWindow sets the reminder window and daily prompt count.
func (r *SQLiteRepo) UpdateWindow(ctx context.Context, id int64, startHour, endHour, checksPerDay int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET check_start_hour = ?, check_end_hour = ?, checks_per_day = ?
		WHERE user_id = ?`,
		startHour, endHour, checksPerDay, id)
	return err
}

// CompleteOnboarding flips the onboarding flag.
func (r *SQLiteRepo) CompleteOnboarding(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET onboarding_complete = 1 WHERE user_id = ?`, id)
	return err
}

// --- Entries ---

// InsertEntry appends one immutable diary entry. A missing ID or
// timestamp is filled in here.
func (r *SQLiteRepo) InsertEntry(ctx context.Context, e *domain.Entry) error {
	if e == nil {
		return errors.New("nil entry")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO entries (id, user_id, category, emotion, intensity,
		                     body_sensation, reason, note, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, toNullString(e.Category), e.Emotion, toNullInt(e.Intensity),
		toNullString(e.BodySensation), toNullString(e.Reason), toNullString(e.Note),
		e.CreatedAt.UTC().Unix(),
	)
	return err
}

// ListEntries returns a page of entries, newest first.
func (r *SQLiteRepo) ListEntries(ctx context.Context, userID int64, limit, offset int) ([]domain.Entry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category, emotion, intensity,
		       body_sensation, reason, note, created_at
		FROM entries
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Entry
	for rows.Next() {
		var (
			e              domain.Entry
			category, body sql.NullString
			reason, note   sql.NullString
			intensity      sql.NullInt64
			createdAt      int64
		)
		if err := rows.Scan(
			&e.ID, &e.UserID, &category, &e.Emotion, &intensity,
			&body, &reason, &note, &createdAt,
		); err != nil {
			return nil, err
		}
		e.Category = fromNullString(category)
		e.Intensity = fromNullInt(intensity)
		e.BodySensation = fromNullString(body)
		e.Reason = fromNullString(reason)
		e.Note = fromNullString(note)
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		res = append(res, e)
	}
	return res, rows.Err()
}

// CountEntries returns the user's total entry count.
func (r *SQLiteRepo) CountEntries(ctx context.Context, userID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// EntryTimes returns entry creation timestamps, newest first.
func (r *SQLiteRepo) EntryTimes(ctx context.Context, userID int64) ([]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT created_at FROM entries
		WHERE user_id = ?
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []time.Time
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		res = append(res, time.Unix(ts, 0).UTC())
	}
	return res, rows.Err()
}

// EmotionStats computes the on-demand statistics bundle. The streak
// field is left zero; callers derive it from EntryTimes.
func (r *SQLiteRepo) EmotionStats(ctx context.Context, userID int64) (*domain.Stats, error) {
	s := &domain.Stats{}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries WHERE user_id = ?`, userID).Scan(&s.Total); err != nil {
		return nil, err
	}

	var err error
	s.TopEmotions, err = r.labelCounts(ctx, `
		SELECT emotion, COUNT(*) AS cnt
		FROM entries WHERE user_id = ?
		GROUP BY emotion ORDER BY cnt DESC, emotion LIMIT 5`, userID)
	if err != nil {
		return nil, err
	}

	s.TopCategories, err = r.labelCounts(ctx, `
		SELECT category, COUNT(*) AS cnt
		FROM entries WHERE user_id = ? AND category IS NOT NULL
		GROUP BY category ORDER BY cnt DESC, category LIMIT 5`, userID)
	if err != nil {
		return nil, err
	}

	s.AvgIntensity, err = r.avgIntensity(ctx,
		`SELECT AVG(intensity) FROM entries WHERE user_id = ? AND intensity IS NOT NULL`, userID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WeeklySummary aggregates entries created at or after since.
func (r *SQLiteRepo) WeeklySummary(ctx context.Context, userID int64, since time.Time) (*domain.WeeklySummary, error) {
	w := &domain.WeeklySummary{}
	cutoff := since.UTC().Unix()

	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT date(created_at, 'unixepoch'))
		FROM entries WHERE user_id = ? AND created_at >= ?`,
		userID, cutoff).Scan(&w.Total, &w.DaysWithEntries); err != nil {
		return nil, err
	}

	var err error
	w.TopCategories, err = r.labelCounts(ctx, `
		SELECT category, COUNT(*) AS cnt
		FROM entries WHERE user_id = ? AND created_at >= ? AND category IS NOT NULL
		GROUP BY category ORDER BY cnt DESC, category LIMIT 3`, userID, cutoff)
	if err != nil {
		return nil, err
	}

	w.TopEmotions, err = r.labelCounts(ctx, `
		SELECT emotion, COUNT(*) AS cnt
		FROM entries WHERE user_id = ? AND created_at >= ?
		GROUP BY emotion ORDER BY cnt DESC, emotion LIMIT 5`, userID, cutoff)
	if err != nil {
		return nil, err
	}

	w.TopReasons, err = r.labelCounts(ctx, `
		SELECT reason, COUNT(*) AS cnt
		FROM entries WHERE user_id = ? AND created_at >= ?
		  AND reason IS NOT NULL AND reason != ''
		GROUP BY reason ORDER BY cnt DESC, reason LIMIT 3`, userID, cutoff)
	if err != nil {
		return nil, err
	}

	w.AvgIntensity, err = r.avgIntensity(ctx, `
		SELECT AVG(intensity) FROM entries
		WHERE user_id = ? AND created_at >= ? AND intensity IS NOT NULL`, userID, cutoff)
	if err != nil {
		return nil, err
	}

	w.PeakTimeOfDay, err = r.peakTimeOfDay(ctx, userID, cutoff)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *SQLiteRepo) labelCounts(ctx context.Context, query string, args ...any) ([]domain.LabelCount, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.LabelCount
	for rows.Next() {
		var lc domain.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		res = append(res, lc)
	}
	return res, rows.Err()
}

func (r *SQLiteRepo) avgIntensity(ctx context.Context, query string, args ...any) (*float64, error) {
	var avg sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&avg); err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	// One decimal, as displayed.
	rounded := float64(int(avg.Float64*10+0.5)) / 10
	return &rounded, nil
}

// peakTimeOfDay returns the time-of-day bucket holding the most
// entries since the cutoff. Bucketing itself lives in domain so stats
// and digest agree on the boundaries.
func (r *SQLiteRepo) peakTimeOfDay(ctx context.Context, userID int64, cutoff int64) (string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT CAST(strftime('%H', created_at, 'unixepoch') AS INTEGER) AS h, COUNT(*)
		FROM entries WHERE user_id = ? AND created_at >= ?
		GROUP BY h`,
		userID, cutoff,
	)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var hour, n int
		if err := rows.Scan(&hour, &n); err != nil {
			return "", err
		}
		counts[domain.TimeOfDayBucket(hour)] += n
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	buckets := make([]string, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if counts[buckets[i]] != counts[buckets[j]] {
			return counts[buckets[i]] > counts[buckets[j]]
		}
		return buckets[i] < buckets[j]
	})
	if len(buckets) == 0 {
		return "", nil
	}
	return buckets[0], nil
}

// --- Scheduled checks ---

// ReplaceChecks deletes the user's unsent checks and inserts the new
// set in a single transaction: re-running a schedule can never leave
// stale slots that would double-fire.
func (r *SQLiteRepo) ReplaceChecks(ctx context.Context, userID int64, times []time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM scheduled_checks WHERE user_id = ? AND sent = 0`, userID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, t := range times {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scheduled_checks (id, user_id, scheduled_at, sent)
			VALUES (?, ?, ?, 0)`,
			uuid.NewString(), userID, t.UTC().Unix()); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// AddCheck inserts one ad-hoc check (the "remind me later" action).
func (r *SQLiteRepo) AddCheck(ctx context.Context, userID int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_checks (id, user_id, scheduled_at, sent)
		VALUES (?, ?, ?, 0)`,
		uuid.NewString(), userID, at.UTC().Unix())
	return err
}

// DueChecks returns every unsent check scheduled at or before now.
func (r *SQLiteRepo) DueChecks(ctx context.Context, now time.Time) ([]domain.ScheduledCheck, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, scheduled_at, sent
		FROM scheduled_checks
		WHERE sent = 0 AND scheduled_at <= ?
		ORDER BY scheduled_at, id`,
		now.UTC().Unix(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChecks(rows)
}

func scanChecks(rows *sql.Rows) ([]domain.ScheduledCheck, error) {
	var res []domain.ScheduledCheck
	for rows.Next() {
		var (
			c       domain.ScheduledCheck
			at      int64
			sentInt int
		)
		if err := rows.Scan(&c.ID, &c.UserID, &at, &sentInt); err != nil {
			return nil, err
		}
		c.ScheduledAt = time.Unix(at, 0).UTC()
		c.Sent = sentInt != 0
		res = append(res, c)
	}
	return res, rows.Err()
}

// MarkCheckSent consumes a check. The sent guard makes the update a
// no-op when a schedule replace already removed or consumed the row.
func (r *SQLiteRepo) MarkCheckSent(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE scheduled_checks SET sent = 1 WHERE id = ? AND sent = 0`, id)
	return err
}

// SkipChecksBetween suppresses the user's unsent checks in [from, to)
// by marking them sent, keeping the rows as history.
func (r *SQLiteRepo) SkipChecksBetween(ctx context.Context, userID int64, from, to time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_checks SET sent = 1
		WHERE user_id = ? AND sent = 0
		  AND scheduled_at >= ? AND scheduled_at < ?`,
		userID, from.UTC().Unix(), to.UTC().Unix())
	return err
}

// UnsentChecks returns the user's pending checks in chronological order.
func (r *SQLiteRepo) UnsentChecks(ctx context.Context, userID int64) ([]domain.ScheduledCheck, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, scheduled_at, sent
		FROM scheduled_checks
		WHERE user_id = ? AND sent = 0
		ORDER BY scheduled_at, id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChecks(rows)
}
