package model

import (
	"fmt"
	"math"
	"time"
)

// MaxMinutes is the longest cycle whose length in seconds still fits an int.
const MaxMinutes = math.MaxInt / 60

// Cycle is one phase of the timer with its own configured duration.
type Cycle string

const (
	CycleWork       Cycle = "work"
	CycleShortBreak Cycle = "short_break"
	CycleLongBreak  Cycle = "long_break"
)

// Cycles lists every cycle in display order.
var Cycles = []Cycle{CycleWork, CycleShortBreak, CycleLongBreak}

func (c Cycle) IsBreak() bool {
	return c == CycleShortBreak || c == CycleLongBreak
}

func (c Cycle) Valid() bool {
	switch c {
	case CycleWork, CycleShortBreak, CycleLongBreak:
		return true
	default:
		return false
	}
}

func ParseCycle(raw string) (Cycle, error) {
	c := Cycle(raw)
	if !c.Valid() {
		return "", fmt.Errorf("unknown cycle %q", raw)
	}
	return c, nil
}

// Durations maps each cycle to its length in seconds.
type Durations struct {
	Work       int
	ShortBreak int
	LongBreak  int
}

func (d Durations) For(c Cycle) int {
	switch c {
	case CycleShortBreak:
		return d.ShortBreak
	case CycleLongBreak:
		return d.LongBreak
	default:
		return d.Work
	}
}

func (d *Durations) Set(c Cycle, seconds int) {
	switch c {
	case CycleShortBreak:
		d.ShortBreak = seconds
	case CycleLongBreak:
		d.LongBreak = seconds
	default:
		d.Work = seconds
	}
}

// Snapshot is the serialized form of the timer state written by the
// persistence adapter.
type Snapshot struct {
	Identity          int64
	Durations         Durations
	Elapsed           int
	Cycle             Cycle
	Running           bool
	SessionsCompleted int
	UpdatedAt         time.Time
	// StreamID identifies the server process that wrote the snapshot.
	StreamID string
}

// Status is one line of status-bar output.
type Status struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
	Alt     string `json:"alt"`
}
