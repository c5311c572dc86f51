// Package notify sends desktop notifications when the timer enters a new
// cycle.
package notify

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	"github.com/g960059/pomobar/internal/model"
)

const (
	Title = "Pomodoro"

	busName    = "org.freedesktop.Notifications"
	objectPath = dbus.ObjectPath("/org/freedesktop/Notifications")
	method     = busName + ".Notify"
)

type Notifier interface {
	Notify(ctx context.Context, entered model.Cycle) error
}

func Body(entered model.Cycle) string {
	switch entered {
	case model.CycleShortBreak:
		return "Time for a short break!"
	case model.CycleLongBreak:
		return "Time for a long break!"
	default:
		return "Time to work!"
	}
}

// DBus posts notifications through the freedesktop notification service on
// the session bus.
type DBus struct {
	appName string
	connect func() (*dbus.Conn, error)
}

func NewDBus(appName string) *DBus {
	return &DBus{appName: appName, connect: dbus.SessionBus}
}

func (n *DBus) Notify(ctx context.Context, entered model.Cycle) error {
	conn, err := n.connect()
	if err != nil {
		return fmt.Errorf("connect session bus: %w", err)
	}
	call := conn.Object(busName, objectPath).CallWithContext(ctx, method, 0,
		n.appName,
		uint32(0),
		"",
		Title,
		Body(entered),
		[]string{},
		map[string]dbus.Variant{},
		int32(-1),
	)
	if call.Err != nil {
		return fmt.Errorf("notify %s: %w", entered, call.Err)
	}
	return nil
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, model.Cycle) error { return nil }
