package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/g960059/pomobar/internal/db"
	"github.com/g960059/pomobar/internal/model"
	"github.com/g960059/pomobar/internal/notify"
	"github.com/g960059/pomobar/internal/protocol"
	"github.com/g960059/pomobar/internal/timer"
)

const notifyTimeout = 5 * time.Second

// SnapshotStore persists timer state between runs.
type SnapshotStore interface {
	StoreSnapshot(ctx context.Context, snap model.Snapshot) error
	RestoreSnapshot(ctx context.Context, identity int64) (model.Snapshot, error)
}

// owner is the only goroutine that touches the timer. Everything else reaches
// it through the command queue.
type owner struct {
	timer    *timer.Timer
	icons    timer.Icons
	queue    *commandQueue
	enc      *json.Encoder
	store    SnapshotStore
	notifier notify.Notifier
	clock    clockwork.Clock
	interval time.Duration
	streamID string
	logger   *slog.Logger
	notifies sync.WaitGroup
}

// restoreTimer returns the persisted timer for identity, or a fresh one
// built from durations when nothing usable is stored.
func restoreTimer(ctx context.Context, store SnapshotStore, identity int64, durations model.Durations, longBreakEvery int, logger *slog.Logger) *timer.Timer {
	fresh := timer.New(identity, durations, longBreakEvery)
	if store == nil {
		return fresh
	}
	snap, err := store.RestoreSnapshot(ctx, identity)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			logger.Debug("no persisted timer state", "identity", identity)
		} else {
			logger.Warn("discarding persisted timer state", "identity", identity, "error", err)
		}
		return fresh
	}
	restored, err := timer.FromSnapshot(snap, longBreakEvery)
	if err != nil {
		logger.Warn("discarding persisted timer state", "identity", identity, "error", err)
		return fresh
	}
	logger.Info("restored timer state",
		"identity", identity,
		"cycle", restored.Cycle(),
		"elapsed", restored.Elapsed(),
		"running", restored.Running(),
	)
	return restored
}

// run ticks until ctx is done. The queue is closed on return so producers
// learn the consumer is gone.
func (o *owner) run(ctx context.Context) {
	defer o.queue.Close()
	ticker := o.clock.NewTicker(o.interval)
	defer ticker.Stop()
	for {
		o.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}
	}
}

// tick applies at most one queued command. A burst of commands is spread
// over consecutive ticks, one per tick; this rate limit is intentional.
func (o *owner) tick(ctx context.Context) {
	if e, ok := o.queue.TryPop(); ok {
		o.apply(e)
	}

	o.emit(o.timer.Render(o.icons))

	if o.timer.Running() {
		o.timer.Increment()
	}
	if entered, changed := o.timer.AdvanceIfComplete(); changed {
		o.logger.Info("cycle changed", "cycle", entered, "sessions", o.timer.SessionsCompleted())
		o.dispatchNotification(ctx, entered)
	}

	if o.store != nil {
		snap := o.timer.Snapshot(o.clock.Now().UTC())
		snap.StreamID = o.streamID
		if err := o.store.StoreSnapshot(ctx, snap); err != nil {
			o.logger.Warn("persist timer state", "identity", snap.Identity, "error", err)
		}
	}
}

func (o *owner) apply(e envelope) {
	cmd := protocol.Parse(e.payload)
	log := o.logger.With(
		"command_id", e.id,
		"command", cmd.Kind.String(),
		"queued_for", o.clock.Since(e.receivedAt),
	)
	switch cmd.Kind {
	case protocol.KindSetTime:
		o.timer.SetTime(cmd.Cycle, cmd.Minutes)
		log.Debug("duration set", "cycle", cmd.Cycle, "minutes", cmd.Minutes)
		return
	case protocol.KindStart:
		o.timer.Start()
	case protocol.KindStop:
		o.timer.Stop()
	case protocol.KindToggle:
		o.timer.Toggle()
	case protocol.KindReset:
		o.timer.Reset()
	default:
		log.Warn("unknown command", "payload", e.payload)
		return
	}
	log.Debug("command applied", "running", o.timer.Running())
}

func (o *owner) emit(status model.Status) {
	if err := o.enc.Encode(status); err != nil {
		o.logger.Warn("write status line", "error", err)
	}
}

// dispatchNotification fires the notifier without holding up the tick.
// Failures are logged and never retried.
func (o *owner) dispatchNotification(ctx context.Context, entered model.Cycle) {
	if o.notifier == nil {
		return
	}
	o.notifies.Add(1)
	go func() {
		defer o.notifies.Done()
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := o.notifier.Notify(nctx, entered); err != nil {
			o.logger.Warn("send notification", "cycle", entered, "error", err)
		}
	}()
}

func newStatusEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}
