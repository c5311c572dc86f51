package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/g960059/pomobar/internal/model"
)

var (
	ErrNotFound = errors.New("not found")
	ErrCorrupt  = errors.New("corrupt timer state")
)

type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil && !errors.Is(err, os.ErrNotExist) {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("chmod db path: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenMigrated opens the store and brings its schema up to date.
func OpenMigrated(ctx context.Context, path string) (*Store, error) {
	store, err := Open(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := ApplyMigrations(ctx, store.DB()); err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

// StoreSnapshot writes the timer state for snap.Identity. Last write wins.
func (s *Store) StoreSnapshot(ctx context.Context, snap model.Snapshot) error {
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}
	if !snap.Cycle.Valid() {
		return fmt.Errorf("store snapshot: %w: cycle %q", ErrCorrupt, snap.Cycle)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO timer_state(identity, work_seconds, short_seconds, long_seconds, elapsed_seconds, cycle, running, sessions_completed, updated_at, stream_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(identity) DO UPDATE SET
	work_seconds=excluded.work_seconds,
	short_seconds=excluded.short_seconds,
	long_seconds=excluded.long_seconds,
	elapsed_seconds=excluded.elapsed_seconds,
	cycle=excluded.cycle,
	running=excluded.running,
	sessions_completed=excluded.sessions_completed,
	updated_at=excluded.updated_at,
	stream_id=excluded.stream_id
`,
		snap.Identity,
		snap.Durations.Work,
		snap.Durations.ShortBreak,
		snap.Durations.LongBreak,
		snap.Elapsed,
		string(snap.Cycle),
		boolToInt(snap.Running),
		snap.SessionsCompleted,
		ts(snap.UpdatedAt),
		snap.StreamID,
	)
	if err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// RestoreSnapshot reads back the timer state stored for identity.
func (s *Store) RestoreSnapshot(ctx context.Context, identity int64) (model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT identity, work_seconds, short_seconds, long_seconds, elapsed_seconds, cycle, running, sessions_completed, updated_at, stream_id
FROM timer_state
WHERE identity = ?
`, identity)
	var (
		snap       model.Snapshot
		cycleStr   string
		running    int
		updatedStr string
	)
	if err := row.Scan(
		&snap.Identity,
		&snap.Durations.Work,
		&snap.Durations.ShortBreak,
		&snap.Durations.LongBreak,
		&snap.Elapsed,
		&cycleStr,
		&running,
		&snap.SessionsCompleted,
		&updatedStr,
		&snap.StreamID,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Snapshot{}, ErrNotFound
		}
		return model.Snapshot{}, fmt.Errorf("scan timer state: %w", err)
	}
	cycle, err := model.ParseCycle(cycleStr)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if snap.Elapsed < 0 || snap.SessionsCompleted < 0 {
		return model.Snapshot{}, fmt.Errorf("%w: negative counters for identity %d", ErrCorrupt, identity)
	}
	snap.Cycle = cycle
	snap.Running = running != 0
	snap.UpdatedAt, err = parseTS(updatedStr)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("%w: parse updated_at: %v", ErrCorrupt, err)
	}
	return snap, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTS(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
