package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g960059/pomobar/internal/model"
)

func TestBodyPerCycle(t *testing.T) {
	assert.Equal(t, "Time to work!", Body(model.CycleWork))
	assert.Equal(t, "Time for a short break!", Body(model.CycleShortBreak))
	assert.Equal(t, "Time for a long break!", Body(model.CycleLongBreak))
}

func TestDBusNotifyReportsConnectFailure(t *testing.T) {
	n := NewDBus("pomobar")
	n.connect = func() (*dbus.Conn, error) {
		return nil, errors.New("no session bus")
	}
	err := n.Notify(context.Background(), model.CycleWork)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session bus")
}

func TestNopNotifier(t *testing.T) {
	var n Notifier = Nop{}
	assert.NoError(t, n.Notify(context.Background(), model.CycleLongBreak))
}
