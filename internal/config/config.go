package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/g960059/pomobar/internal/model"
	"github.com/g960059/pomobar/internal/runtime"
	"github.com/g960059/pomobar/internal/timer"
)

const configFileName = "config.yaml"

var ErrInvalidDuration = errors.New("invalid duration")

type Icons struct {
	Play  string
	Pause string
	Work  string
	Break string
}

type Config struct {
	// SocketDir holds the rendezvous sockets; empty means os.TempDir().
	SocketDir         string
	Instance          int
	ConfigPath        string
	DBPath            string
	WorkMinutes       int
	ShortBreakMinutes int
	LongBreakMinutes  int
	LongBreakEvery    int
	Persist           bool
	Notify            bool
	NoCycleIcons      bool
	Icons             Icons
	TickInterval      time.Duration
	Watch             bool
	WatchDebounce     time.Duration
}

func DefaultConfig() Config {
	return Config{
		ConfigPath:        defaultConfigPath(),
		DBPath:            defaultDBPath(),
		WorkMinutes:       25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		LongBreakEvery:    4,
		Notify:            true,
		Icons: Icons{
			Play:  "▶",
			Pause: "⏸",
			Work:  "🍅",
			Break: "☕",
		},
		TickInterval:  time.Second,
		WatchDebounce: 500 * time.Millisecond,
	}
}

func (c Config) SocketPath() string {
	return runtime.SocketPath(c.SocketDir, runtime.AppName, c.Instance)
}

// Durations converts the configured minutes into per-cycle seconds.
func (c Config) Durations() model.Durations {
	return model.Durations{
		Work:       c.WorkMinutes * 60,
		ShortBreak: c.ShortBreakMinutes * 60,
		LongBreak:  c.LongBreakMinutes * 60,
	}
}

func (c Config) Minutes(cycle model.Cycle) int {
	switch cycle {
	case model.CycleShortBreak:
		return c.ShortBreakMinutes
	case model.CycleLongBreak:
		return c.LongBreakMinutes
	default:
		return c.WorkMinutes
	}
}

func (c Config) TimerIcons() timer.Icons {
	icons := timer.Icons{
		Play:  c.Icons.Play,
		Pause: c.Icons.Pause,
		Work:  c.Icons.Work,
		Break: c.Icons.Break,
	}
	if c.NoCycleIcons {
		icons.Work = ""
		icons.Break = ""
	}
	return icons
}

func (c Config) Validate() error {
	for _, d := range []struct {
		name    string
		minutes int
	}{
		{"work", c.WorkMinutes},
		{"short break", c.ShortBreakMinutes},
		{"long break", c.LongBreakMinutes},
	} {
		if d.minutes < 0 || d.minutes > model.MaxMinutes {
			return fmt.Errorf("%w: %s time %d", ErrInvalidDuration, d.name, d.minutes)
		}
	}
	if c.LongBreakEvery < 0 {
		return fmt.Errorf("long_break_every must not be negative: %d", c.LongBreakEvery)
	}
	if c.Instance < 0 {
		return fmt.Errorf("instance must not be negative: %d", c.Instance)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive: %s", c.TickInterval)
	}
	return nil
}

type yamlIcons struct {
	Play  *string `yaml:"play"`
	Pause *string `yaml:"pause"`
	Work  *string `yaml:"work"`
	Break *string `yaml:"break"`
}

type yamlConfig struct {
	WorkTime       *int      `yaml:"work_time"`
	ShortBreak     *int      `yaml:"short_break"`
	LongBreak      *int      `yaml:"long_break"`
	LongBreakEvery *int      `yaml:"long_break_every"`
	Persist        *bool     `yaml:"persist"`
	Notify         *bool     `yaml:"notify"`
	NoCycleIcons   *bool     `yaml:"no_cycle_icons"`
	DBPath         *string   `yaml:"db_path"`
	Icons          yamlIcons `yaml:"icons"`
}

// Load reads the YAML file at path over base. A missing file returns base
// unchanged.
func Load(path string, base Config) (Config, error) {
	cfg := base
	cfg.ConfigPath = path
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	var file yamlConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	applyYAML(&cfg, file)
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func applyYAML(cfg *Config, file yamlConfig) {
	setInt(&cfg.WorkMinutes, file.WorkTime)
	setInt(&cfg.ShortBreakMinutes, file.ShortBreak)
	setInt(&cfg.LongBreakMinutes, file.LongBreak)
	setInt(&cfg.LongBreakEvery, file.LongBreakEvery)
	setBool(&cfg.Persist, file.Persist)
	setBool(&cfg.Notify, file.Notify)
	setBool(&cfg.NoCycleIcons, file.NoCycleIcons)
	setString(&cfg.DBPath, file.DBPath)
	setString(&cfg.Icons.Play, file.Icons.Play)
	setString(&cfg.Icons.Pause, file.Icons.Pause)
	setString(&cfg.Icons.Work, file.Icons.Work)
	setString(&cfg.Icons.Break, file.Icons.Break)
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func defaultConfigPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return configFileName
	}
	return filepath.Join(configDir, runtime.AppName, configFileName)
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return runtime.AppName + ".db"
	}
	return filepath.Join(home, ".local", "state", runtime.AppName, "state.db")
}
