package testutil

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/g960059/pomobar/internal/db"
	"github.com/g960059/pomobar/internal/model"
)

func NewStore(t *testing.T) (*db.Store, context.Context) {
	t.Helper()
	ctx := context.Background()
	store, err := db.OpenMigrated(ctx, filepath.Join(t.TempDir(), "pomobar-test.db"))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store, ctx
}

func SeedSnapshot(t *testing.T, store *db.Store, ctx context.Context, snap model.Snapshot) {
	t.Helper()
	if err := store.StoreSnapshot(ctx, snap); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}
}

// Notifier records every cycle it is asked to announce.
type Notifier struct {
	Err     error
	entered chan model.Cycle
}

func NewNotifier(buffer int) *Notifier {
	return &Notifier{entered: make(chan model.Cycle, buffer)}
}

func (n *Notifier) Notify(_ context.Context, entered model.Cycle) error {
	n.entered <- entered
	return n.Err
}

func (n *Notifier) Entered() <-chan model.Cycle {
	return n.entered
}

// Buffer is a bytes.Buffer safe for one writer and concurrent readers.
type Buffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Lines returns the complete lines written so far.
func (b *Buffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw := strings.TrimRight(b.buf.String(), "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}
