package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/g960059/pomobar/internal/config"
	"github.com/g960059/pomobar/internal/model"
	"github.com/g960059/pomobar/internal/notify"
	"github.com/g960059/pomobar/internal/protocol"
	"github.com/g960059/pomobar/internal/runtime"
)

// Deps are the collaborators a Daemon talks to. Zero values fall back to
// stdout, the real clock, slog.Default and no persistence or notifications.
type Deps struct {
	Store    SnapshotStore
	Notifier notify.Notifier
	Clock    clockwork.Clock
	Out      io.Writer
	Logger   *slog.Logger
}

// Daemon wires one timer instance: the socket server on the calling
// goroutine and the state owner on its own goroutine.
type Daemon struct {
	cfg      config.Config
	streamID string
	identity int64
	queue    *commandQueue
	server   *Server
	deps     Deps
	logger   *slog.Logger
}

func New(cfg config.Config, deps Deps) *Daemon {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.Out == nil {
		deps.Out = os.Stdout
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	socketPath := cfg.SocketPath()
	streamID := uuid.NewString()
	logger := deps.Logger.With("stream_id", streamID, "socket", socketPath)
	queue := newCommandQueue()
	return &Daemon{
		cfg:      cfg,
		streamID: streamID,
		identity: runtime.DeriveIdentity(socketPath),
		queue:    queue,
		server:   newServer(socketPath, queue, deps.Clock, logger),
		deps:     deps,
		logger:   logger,
	}
}

func (d *Daemon) SocketPath() string { return d.server.socketPath }

func (d *Daemon) Identity() int64 { return d.identity }

// Run binds the socket, starts the tick loop and serves until an exit
// command, ctx cancellation, or loss of the state owner. The tick loop is
// cancelled on return but not waited for.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.server.Listen(); err != nil {
		return fmt.Errorf("bind %s: %w", d.server.socketPath, err)
	}

	ownerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	store := d.deps.Store
	if !d.cfg.Persist {
		store = nil
	}
	o := &owner{
		timer:    restoreTimer(ownerCtx, store, d.identity, d.cfg.Durations(), d.cfg.LongBreakEvery, d.logger),
		icons:    d.cfg.TimerIcons(),
		queue:    d.queue,
		enc:      newStatusEncoder(d.deps.Out),
		store:    store,
		notifier: d.deps.Notifier,
		clock:    d.deps.Clock,
		interval: d.cfg.TickInterval,
		streamID: d.streamID,
		logger:   d.logger,
	}
	go o.run(ownerCtx)

	if d.cfg.Watch {
		if err := d.watchConfig(ownerCtx); err != nil {
			d.logger.Warn("config watcher disabled", "error", err)
		}
	}

	d.logger.Info("listening", "identity", d.identity, "persist", store != nil)
	return d.server.Serve(ctx)
}

// watchConfig turns config file edits into set-* commands so duration
// changes reach the timer through the same queue as client commands. Only
// durations that differ from the previous load are sent, so a reload does not
// undo set-* commands for cycles the edit left alone.
func (d *Daemon) watchConfig(ctx context.Context) error {
	base := config.DefaultConfig()
	prev, err := config.Load(d.cfg.ConfigPath, base)
	if err != nil {
		d.logger.Warn("read config before watching", "path", d.cfg.ConfigPath, "error", err)
		prev = d.cfg
	}
	w, err := config.NewWatcher(d.cfg.ConfigPath, base, d.cfg.WatchDebounce, func(next config.Config) {
		for _, payload := range reloadCommands(prev, next) {
			e := envelope{id: uuid.NewString(), payload: payload, receivedAt: d.deps.Clock.Now()}
			if err := d.queue.Push(e); err != nil {
				d.logger.Warn("relay config change", "error", err)
				return
			}
			d.logger.Debug("config change relayed", "command_id", e.id, "payload", payload)
		}
		prev = next
	}, d.logger)
	if err != nil {
		return err
	}
	go w.Run(ctx)
	return nil
}

// reloadCommands encodes a set-* command for every cycle whose duration
// changed between prev and next.
func reloadCommands(prev, next config.Config) []string {
	var payloads []string
	for _, cycle := range model.Cycles {
		if minutes := next.Minutes(cycle); minutes != prev.Minutes(cycle) {
			payloads = append(payloads, protocol.NewMessage(protocol.SetCommandFor(cycle), minutes).Encode())
		}
	}
	return payloads
}
