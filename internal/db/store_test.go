package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g960059/pomobar/internal/model"
)

func openTestStore(t *testing.T) (*Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := OpenMigrated(ctx, filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, ctx
}

func snapshotForTest(identity int64) model.Snapshot {
	return model.Snapshot{
		Identity:          identity,
		Durations:         model.Durations{Work: 1500, ShortBreak: 300, LongBreak: 900},
		Elapsed:           321,
		Cycle:             model.CycleShortBreak,
		Running:           true,
		SessionsCompleted: 3,
		UpdatedAt:         time.Unix(1700000000, 5).UTC(),
		StreamID:          "stream-1",
	}
}

func TestStoreAndRestoreSnapshot(t *testing.T) {
	store, ctx := openTestStore(t)
	want := snapshotForTest(2)

	require.NoError(t, store.StoreSnapshot(ctx, want))
	got, err := store.RestoreSnapshot(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreSnapshotLastWriteWins(t *testing.T) {
	store, ctx := openTestStore(t)
	first := snapshotForTest(1)
	require.NoError(t, store.StoreSnapshot(ctx, first))

	second := first
	second.Elapsed = 10
	second.Cycle = model.CycleWork
	second.Running = false
	require.NoError(t, store.StoreSnapshot(ctx, second))

	got, err := store.RestoreSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second, got)
}

func TestRestoreSnapshotKeyedByIdentity(t *testing.T) {
	store, ctx := openTestStore(t)
	require.NoError(t, store.StoreSnapshot(ctx, snapshotForTest(1)))

	other := snapshotForTest(2)
	other.Elapsed = 5
	require.NoError(t, store.StoreSnapshot(ctx, other))

	got, err := store.RestoreSnapshot(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 321, got.Elapsed)

	_, err = store.RestoreSnapshot(ctx, 3)
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestRestoreSnapshotReportsCorruptRows(t *testing.T) {
	store, ctx := openTestStore(t)
	_, err := store.DB().ExecContext(ctx, `
INSERT INTO timer_state(identity, work_seconds, short_seconds, long_seconds, elapsed_seconds, cycle, running, sessions_completed, updated_at)
VALUES (9, 1500, 300, 900, 0, 'lunch', 0, 0, '2024-01-01T00:00:00Z')`)
	require.NoError(t, err)

	_, err = store.RestoreSnapshot(ctx, 9)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestStoreSnapshotRejectsUnknownCycle(t *testing.T) {
	store, ctx := openTestStore(t)
	snap := snapshotForTest(1)
	snap.Cycle = "lunch"
	err := store.StoreSnapshot(ctx, snap)
	assert.True(t, errors.Is(err, ErrCorrupt), "got %v", err)
}

func TestSnapshotSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := OpenMigrated(ctx, path)
	require.NoError(t, err)
	require.NoError(t, store.StoreSnapshot(ctx, snapshotForTest(4)))
	require.NoError(t, store.Close())

	reopened, err := OpenMigrated(ctx, path)
	require.NoError(t, err)
	defer reopened.Close() //nolint:errcheck
	got, err := reopened.RestoreSnapshot(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, snapshotForTest(4), got)
}
