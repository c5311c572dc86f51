package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/g960059/pomobar/internal/model"
)

const (
	SetWork  = "set-work"
	SetShort = "set-short"
	SetLong  = "set-long"

	Start  = "start"
	Stop   = "stop"
	Toggle = "toggle"
	Reset  = "reset"

	// Exit is matched as a substring of the raw payload by the server, not
	// parsed as a command.
	Exit = "exit"
)

var ErrNotStructured = errors.New("protocol: not a structured command")

// Message is the structured command shape: a command name plus an integer
// value in minutes.
type Message struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type wireMessage struct {
	Name  *string `json:"name"`
	Value *int    `json:"value"`
}

func NewMessage(name string, value int) Message {
	return Message{Name: name, Value: value}
}

func (m Message) Encode() string {
	body, err := json.Marshal(m)
	if err != nil {
		// Message holds only a string and an int.
		panic(fmt.Sprintf("protocol: marshal message: %v", err))
	}
	return string(body)
}

// Decode parses a structured command. Any payload that is not exactly a
// {"name": string, "value": int in [0, model.MaxMinutes]} object yields
// ErrNotStructured.
func Decode(raw string) (Message, error) {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "{") {
		return Message{}, ErrNotStructured
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(trimmed)))
	dec.DisallowUnknownFields()
	var wire wireMessage
	if err := dec.Decode(&wire); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrNotStructured, err)
	}
	if dec.More() {
		return Message{}, fmt.Errorf("%w: trailing data", ErrNotStructured)
	}
	if wire.Name == nil || strings.TrimSpace(*wire.Name) == "" {
		return Message{}, fmt.Errorf("%w: name is required", ErrNotStructured)
	}
	if wire.Value == nil {
		return Message{}, fmt.Errorf("%w: value is required", ErrNotStructured)
	}
	if *wire.Value < 0 {
		return Message{}, fmt.Errorf("%w: negative value", ErrNotStructured)
	}
	if *wire.Value > model.MaxMinutes {
		return Message{}, fmt.Errorf("%w: value %d exceeds %d minutes", ErrNotStructured, *wire.Value, model.MaxMinutes)
	}
	return Message{Name: *wire.Name, Value: *wire.Value}, nil
}

// CycleFor maps a set-* command name to the cycle it configures.
func CycleFor(name string) (model.Cycle, bool) {
	switch name {
	case SetWork:
		return model.CycleWork, true
	case SetShort:
		return model.CycleShortBreak, true
	case SetLong:
		return model.CycleLongBreak, true
	default:
		return "", false
	}
}

// SetCommandFor is the inverse of CycleFor.
func SetCommandFor(c model.Cycle) string {
	switch c {
	case model.CycleShortBreak:
		return SetShort
	case model.CycleLongBreak:
		return SetLong
	default:
		return SetWork
	}
}

type Kind int

const (
	KindUnknown Kind = iota
	KindSetTime
	KindStart
	KindStop
	KindToggle
	KindReset
)

func (k Kind) String() string {
	switch k {
	case KindSetTime:
		return "set-time"
	case KindStart:
		return Start
	case KindStop:
		return Stop
	case KindToggle:
		return Toggle
	case KindReset:
		return Reset
	default:
		return "unknown"
	}
}

// Command is a decoded payload ready to be applied to the timer.
type Command struct {
	Kind    Kind
	Cycle   model.Cycle
	Minutes int
	Raw     string
}

// Parse classifies a raw payload. Structured commands are tried first, then
// bare keywords; anything else is KindUnknown.
func Parse(raw string) Command {
	if msg, err := Decode(raw); err == nil {
		cycle, ok := CycleFor(msg.Name)
		if !ok {
			return Command{Kind: KindUnknown, Raw: raw}
		}
		return Command{Kind: KindSetTime, Cycle: cycle, Minutes: msg.Value, Raw: raw}
	}
	switch strings.TrimSpace(raw) {
	case Start:
		return Command{Kind: KindStart, Raw: raw}
	case Stop:
		return Command{Kind: KindStop, Raw: raw}
	case Toggle:
		return Command{Kind: KindToggle, Raw: raw}
	case Reset:
		return Command{Kind: KindReset, Raw: raw}
	default:
		return Command{Kind: KindUnknown, Raw: raw}
	}
}

func IsExit(raw string) bool {
	return strings.Contains(raw, Exit)
}

// IsKeyword reports whether name is a bare keyword the client may send.
func IsKeyword(name string) bool {
	switch name {
	case Start, Stop, Toggle, Reset, Exit:
		return true
	default:
		return false
	}
}
