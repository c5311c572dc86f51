// Package timer holds the pomodoro state machine. A Timer is not safe for
// concurrent use: exactly one goroutine owns it and every mutation arrives
// as a command through that owner.
package timer

import (
	"fmt"
	"strings"
	"time"

	"github.com/g960059/pomobar/internal/model"
)

const (
	// TickSeconds is how far one tick advances the elapsed counter.
	TickSeconds = 1

	secondsPerMinute = 60
)

// Icons are the glyphs used when rendering the status line.
type Icons struct {
	Play  string
	Pause string
	Work  string
	Break string
}

type Timer struct {
	identity       int64
	durations      model.Durations
	elapsed        int
	cycle          model.Cycle
	running        bool
	sessions       int
	longBreakEvery int
}

// New creates a stopped timer at the start of a work cycle. longBreakEvery
// promotes every Nth completed work session to a long break; zero disables
// long breaks.
func New(identity int64, durations model.Durations, longBreakEvery int) *Timer {
	if longBreakEvery < 0 {
		longBreakEvery = 0
	}
	return &Timer{
		identity:       identity,
		durations:      durations,
		cycle:          model.CycleWork,
		longBreakEvery: longBreakEvery,
	}
}

// FromSnapshot rebuilds a timer from persisted state.
func FromSnapshot(s model.Snapshot, longBreakEvery int) (*Timer, error) {
	if !s.Cycle.Valid() {
		return nil, fmt.Errorf("snapshot for identity %d: unknown cycle %q", s.Identity, s.Cycle)
	}
	if s.Elapsed < 0 || s.SessionsCompleted < 0 {
		return nil, fmt.Errorf("snapshot for identity %d: negative counters", s.Identity)
	}
	t := New(s.Identity, s.Durations, longBreakEvery)
	t.elapsed = s.Elapsed
	t.cycle = s.Cycle
	t.running = s.Running
	t.sessions = s.SessionsCompleted
	return t, nil
}

func (t *Timer) Snapshot(now time.Time) model.Snapshot {
	return model.Snapshot{
		Identity:          t.identity,
		Durations:         t.durations,
		Elapsed:           t.elapsed,
		Cycle:             t.cycle,
		Running:           t.running,
		SessionsCompleted: t.sessions,
		UpdatedAt:         now,
	}
}

func (t *Timer) Identity() int64 { return t.identity }
func (t *Timer) Elapsed() int { return t.elapsed }
func (t *Timer) Cycle() model.Cycle { return t.cycle }
func (t *Timer) Running() bool { return t.running }
func (t *Timer) SessionsCompleted() int { return t.sessions }
func (t *Timer) Duration(c model.Cycle) int { return t.durations.For(c) }
func (t *Timer) Durations() model.Durations { return t.durations }
func (t *Timer) CurrentDuration() int { return t.durations.For(t.cycle) }

// SetTime overwrites the duration of cycle, clamping minutes to
// [0, model.MaxMinutes]. A duration shrunk below the current elapsed time is
// not clamped; the next AdvanceIfComplete finishes the cycle.
func (t *Timer) SetTime(c model.Cycle, minutes int) {
	minutes = min(max(minutes, 0), model.MaxMinutes)
	t.durations.Set(c, minutes*secondsPerMinute)
}

func (t *Timer) Increment() {
	t.elapsed += TickSeconds
}

// AdvanceIfComplete moves to the next cycle once the current one has fully
// elapsed. It returns the cycle entered and true on a transition.
func (t *Timer) AdvanceIfComplete() (model.Cycle, bool) {
	if t.elapsed < t.CurrentDuration() {
		return t.cycle, false
	}
	t.elapsed = 0
	if t.cycle == model.CycleWork {
		t.sessions++
		t.cycle = model.CycleShortBreak
		if t.longBreakEvery > 0 && t.sessions%t.longBreakEvery == 0 {
			t.cycle = model.CycleLongBreak
		}
	} else {
		t.cycle = model.CycleWork
	}
	return t.cycle, true
}

func (t *Timer) Reset() {
	t.elapsed = 0
	t.cycle = model.CycleWork
	t.running = false
	t.sessions = 0
}

func (t *Timer) Start() { t.running = true }
func (t *Timer) Stop() { t.running = false }
func (t *Timer) Toggle() { t.running = !t.running }

// Render derives the status line from the current state.
func (t *Timer) Render(icons Icons) model.Status {
	stateIcon := icons.Pause
	if t.running {
		stateIcon = icons.Play
	}
	cycleIcon := icons.Work
	if t.cycle.IsBreak() {
		cycleIcon = icons.Break
	}
	class := string(t.cycle)
	return model.Status{
		Text:    collapseSpaces(stateIcon + " " + FormatRemaining(t.elapsed, t.CurrentDuration()) + " " + cycleIcon),
		Tooltip: Tooltip(t.sessions),
		Class:   class,
		Alt:     class,
	}
}

// FormatRemaining renders duration-elapsed seconds as MM:SS, floored at zero.
func FormatRemaining(elapsed, duration int) string {
	remaining := duration - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("%02d:%02d", remaining/secondsPerMinute, remaining%secondsPerMinute)
}

func Tooltip(sessions int) string {
	noun := "pomodoros"
	if sessions == 1 {
		noun = "pomodoro"
	}
	return fmt.Sprintf("%d %s completed this session", sessions, noun)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
