package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/g960059/pomobar/internal/config"
	"github.com/g960059/pomobar/internal/daemon"
	"github.com/g960059/pomobar/internal/db"
	"github.com/g960059/pomobar/internal/notify"
	"github.com/g960059/pomobar/internal/runtime"
)

// Negative durations and empty icons mean "keep the configured value".
type flags struct {
	Config         string `short:"c" help:"Configuration file path." type:"path"`
	Instance       int    `short:"n" help:"Instance number; selects the socket path and persisted state." default:"0"`
	SocketDir      string `name:"socket-dir" help:"Directory for the instance socket (default: system temp dir)." env:"POMOBAR_SOCKET_DIR"`
	DB             string `name:"db" help:"SQLite path for persisted state." type:"path"`
	Work           int    `help:"Work cycle length in minutes." default:"-1"`
	Short          int    `help:"Short break length in minutes." default:"-1"`
	Long           int    `help:"Long break length in minutes." default:"-1"`
	LongBreakEvery int    `name:"long-break-every" help:"Completed work cycles per long break; 0 disables long breaks." default:"-1"`
	Persist        bool   `short:"p" help:"Persist timer state across restarts."`
	NoNotify       bool   `name:"no-notify" help:"Disable desktop notifications."`
	NoCycleIcons   bool   `name:"no-cycle-icons" help:"Hide the work/break icon."`
	PlayIcon       string `name:"play-icon" help:"Icon shown while running."`
	PauseIcon      string `name:"pause-icon" help:"Icon shown while paused."`
	WorkIcon       string `name:"work-icon" help:"Icon shown during work."`
	BreakIcon      string `name:"break-icon" help:"Icon shown during breaks."`
	Watch          bool   `help:"Reload durations when the configuration file changes."`
	Verbose        bool   `short:"v" help:"Enable verbose logging."`
}

func main() {
	var cli flags
	kong.Parse(&cli,
		kong.Name(runtime.AppName+"d"),
		kong.Description("Pomodoro timer that prints waybar status lines to stdout."),
	)

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cli, logger)
	cancel()
	os.Exit(code)
}

// run returns the process exit code so deferred cleanup happens before exit.
func run(ctx context.Context, cli flags, logger *slog.Logger) int {
	base := config.DefaultConfig()
	path := base.ConfigPath
	if cli.Config != "" {
		path = cli.Config
	}
	cfg, err := config.Load(path, base)
	if err != nil {
		logger.Error("load configuration", "error", err)
		return 1
	}
	cli.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	deps := daemon.Deps{Logger: logger}
	if cfg.Persist {
		store, err := db.OpenMigrated(ctx, cfg.DBPath)
		if err != nil {
			logger.Error("open state database", "path", cfg.DBPath, "error", err)
			return 1
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("close state database", "error", err)
			}
		}()
		deps.Store = store
	}
	deps.Notifier = notify.Nop{}
	if cfg.Notify {
		deps.Notifier = notify.NewDBus(runtime.AppName)
	}

	if err := daemon.New(cfg, deps).Run(ctx); err != nil {
		logger.Error("daemon failed", "error", err)
		return 1
	}
	return 0
}

func (f flags) apply(cfg *config.Config) {
	cfg.Instance = f.Instance
	if f.SocketDir != "" {
		cfg.SocketDir = f.SocketDir
	}
	if f.DB != "" {
		cfg.DBPath = f.DB
	}
	if f.Work >= 0 {
		cfg.WorkMinutes = f.Work
	}
	if f.Short >= 0 {
		cfg.ShortBreakMinutes = f.Short
	}
	if f.Long >= 0 {
		cfg.LongBreakMinutes = f.Long
	}
	if f.LongBreakEvery >= 0 {
		cfg.LongBreakEvery = f.LongBreakEvery
	}
	if f.Persist {
		cfg.Persist = true
	}
	if f.NoNotify {
		cfg.Notify = false
	}
	if f.NoCycleIcons {
		cfg.NoCycleIcons = true
	}
	setIcon(&cfg.Icons.Play, f.PlayIcon)
	setIcon(&cfg.Icons.Pause, f.PauseIcon)
	setIcon(&cfg.Icons.Work, f.WorkIcon)
	setIcon(&cfg.Icons.Break, f.BreakIcon)
	if f.Watch {
		cfg.Watch = true
	}
}

func setIcon(dst *string, icon string) {
	if icon != "" {
		*dst = icon
	}
}
