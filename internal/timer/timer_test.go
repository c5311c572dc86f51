package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/g960059/pomobar/internal/model"
)

var testIcons = Icons{Play: "▶", Pause: "⏸", Work: "W", Break: "B"}

func newTestTimer() *Timer {
	return New(7, model.Durations{Work: 1500, ShortBreak: 300, LongBreak: 900}, 4)
}

// tick mirrors the state owner's per-tick mutation order.
func tick(tm *Timer) (model.Cycle, bool) {
	if tm.Running() {
		tm.Increment()
	}
	return tm.AdvanceIfComplete()
}

func TestWorkCompletesIntoShortBreak(t *testing.T) {
	tm := newTestTimer()
	tm.elapsed = 1499
	tm.Start()

	entered, changed := tick(tm)

	require.True(t, changed)
	assert.Equal(t, model.CycleShortBreak, entered)
	assert.Equal(t, 0, tm.Elapsed())
	assert.Equal(t, model.CycleShortBreak, tm.Cycle())
	assert.Equal(t, 1, tm.SessionsCompleted())
	assert.True(t, tm.Running())
}

func TestBreakReturnsToWorkWithoutCountingSession(t *testing.T) {
	tm := newTestTimer()
	tm.cycle = model.CycleShortBreak
	tm.sessions = 2
	tm.elapsed = 299
	tm.Start()

	entered, changed := tick(tm)

	require.True(t, changed)
	assert.Equal(t, model.CycleWork, entered)
	assert.Equal(t, 2, tm.SessionsCompleted())
}

func TestEveryFourthSessionIsLongBreak(t *testing.T) {
	tm := New(1, model.Durations{}, 4)
	var entered []model.Cycle
	for i := 0; i < 8; i++ {
		c, changed := tm.AdvanceIfComplete()
		require.True(t, changed)
		entered = append(entered, c)
	}
	assert.Equal(t, []model.Cycle{
		model.CycleShortBreak, model.CycleWork,
		model.CycleShortBreak, model.CycleWork,
		model.CycleShortBreak, model.CycleWork,
		model.CycleLongBreak, model.CycleWork,
	}, entered)
	assert.Equal(t, 4, tm.SessionsCompleted())
}

func TestLongBreaksDisabledWithZeroInterval(t *testing.T) {
	tm := New(1, model.Durations{}, 0)
	for i := 0; i < 20; i++ {
		c, _ := tm.AdvanceIfComplete()
		assert.NotEqual(t, model.CycleLongBreak, c)
	}
}

func TestNoTransitionBeforeDurationElapses(t *testing.T) {
	tm := newTestTimer()
	tm.Start()
	for i := 0; i < 1499; i++ {
		_, changed := tick(tm)
		require.False(t, changed)
	}
	assert.Equal(t, 1499, tm.Elapsed())
}

func TestStoppedTimerDoesNotAdvance(t *testing.T) {
	tm := newTestTimer()
	for i := 0; i < 10; i++ {
		tick(tm)
	}
	assert.Equal(t, 0, tm.Elapsed())
}

func TestElapsedStaysUnderBoundAfterEveryTick(t *testing.T) {
	tm := New(1, model.Durations{Work: 3, ShortBreak: 2, LongBreak: 4}, 2)
	tm.Start()
	for i := 0; i < 200; i++ {
		tick(tm)
		if tm.CurrentDuration() > 0 {
			require.Less(t, tm.Elapsed(), tm.CurrentDuration(), "tick %d", i)
		}
	}
}

func TestSetTimeDoesNotTouchProgress(t *testing.T) {
	tm := newTestTimer()
	tm.elapsed = 42
	tm.Start()

	tm.SetTime(model.CycleLongBreak, 20)

	assert.Equal(t, 20*60, tm.Duration(model.CycleLongBreak))
	assert.Equal(t, 42, tm.Elapsed())
	assert.Equal(t, model.CycleWork, tm.Cycle())
	assert.True(t, tm.Running())
}

func TestSetTimeClampsMinutesThatOverflowSeconds(t *testing.T) {
	tm := newTestTimer()
	tm.SetTime(model.CycleWork, model.MaxMinutes+1)
	tm.Start()

	assert.Equal(t, model.MaxMinutes*60, tm.Duration(model.CycleWork))
	_, changed := tick(tm)
	assert.False(t, changed)
	assert.Equal(t, model.CycleWork, tm.Cycle())
	assert.Equal(t, 0, tm.SessionsCompleted())

	tm.SetTime(model.CycleShortBreak, -5)
	assert.Equal(t, 0, tm.Duration(model.CycleShortBreak))
}

func TestShrunkDurationCompletesOnNextTick(t *testing.T) {
	tm := newTestTimer()
	tm.elapsed = 600
	tm.SetTime(model.CycleWork, 5)

	tm.Start()
	assert.Equal(t, "▶ 00:00 W", tm.Render(testIcons).Text)

	entered, changed := tick(tm)
	require.True(t, changed)
	assert.Equal(t, model.CycleShortBreak, entered)
	assert.Equal(t, 0, tm.Elapsed())
}

func TestZeroDurationCompletesImmediately(t *testing.T) {
	tm := newTestTimer()
	tm.SetTime(model.CycleWork, 0)

	_, changed := tm.AdvanceIfComplete()
	assert.True(t, changed)
	assert.Equal(t, model.CycleShortBreak, tm.Cycle())
}

func TestReset(t *testing.T) {
	tm := newTestTimer()
	tm.cycle = model.CycleLongBreak
	tm.elapsed = 12
	tm.sessions = 4
	tm.Start()
	tm.SetTime(model.CycleWork, 50)

	tm.Reset()

	assert.Equal(t, 0, tm.Elapsed())
	assert.Equal(t, model.CycleWork, tm.Cycle())
	assert.False(t, tm.Running())
	assert.Equal(t, 0, tm.SessionsCompleted())
	assert.Equal(t, 50*60, tm.Duration(model.CycleWork))
}

func TestRunningToggles(t *testing.T) {
	tm := newTestTimer()
	tm.Toggle()
	assert.True(t, tm.Running())
	tm.Toggle()
	assert.False(t, tm.Running())
	tm.Start()
	tm.Start()
	assert.True(t, tm.Running())
	tm.Stop()
	assert.False(t, tm.Running())
}

func TestRender(t *testing.T) {
	tm := newTestTimer()
	tm.elapsed = 61

	status := tm.Render(testIcons)
	assert.Equal(t, "⏸ 23:59 W", status.Text)
	assert.Equal(t, "0 pomodoros completed this session", status.Tooltip)
	assert.Equal(t, "work", status.Class)
	assert.Equal(t, status.Class, status.Alt)

	tm.cycle = model.CycleLongBreak
	tm.elapsed = 0
	tm.Start()
	status = tm.Render(testIcons)
	assert.Equal(t, "▶ 15:00 B", status.Text)
	assert.Equal(t, "long_break", status.Alt)
}

func TestRenderIsIdempotent(t *testing.T) {
	tm := newTestTimer()
	tm.elapsed = 99
	tm.sessions = 3
	assert.Equal(t, tm.Render(testIcons), tm.Render(testIcons))
}

func TestRenderCollapsesEmptyIcons(t *testing.T) {
	tm := newTestTimer()
	assert.Equal(t, "25:00", tm.Render(Icons{}).Text)
	assert.Equal(t, "⏸ 25:00", tm.Render(Icons{Pause: "⏸"}).Text)
}

func TestSetWorkThirtyRendersThirtyMinutes(t *testing.T) {
	tm := newTestTimer()
	tm.SetTime(model.CycleWork, 30)
	assert.Equal(t, "30:00", tm.Render(Icons{}).Text)
}

func TestFormatRemaining(t *testing.T) {
	assert.Equal(t, "05:00", FormatRemaining(300, 600))
	assert.Equal(t, "00:01", FormatRemaining(59, 60))
	assert.Equal(t, "02:00", FormatRemaining(0, 120))
	assert.Equal(t, "00:00", FormatRemaining(700, 600))
	assert.Equal(t, "120:00", FormatRemaining(0, 7200))
}

func TestTooltipPluralization(t *testing.T) {
	assert.Equal(t, "0 pomodoros completed this session", Tooltip(0))
	assert.Equal(t, "1 pomodoro completed this session", Tooltip(1))
	assert.Equal(t, "2 pomodoros completed this session", Tooltip(2))
	assert.Equal(t, "11 pomodoros completed this session", Tooltip(11))
}

func TestSnapshotRoundTrip(t *testing.T) {
	tm := newTestTimer()
	tm.elapsed = 10
	tm.cycle = model.CycleShortBreak
	tm.sessions = 1
	tm.Start()
	now := time.Unix(1700000000, 0).UTC()

	snap := tm.Snapshot(now)
	restored, err := FromSnapshot(snap, 4)
	require.NoError(t, err)
	assert.Equal(t, snap, restored.Snapshot(now))
}

func TestFromSnapshotRejectsCorruptState(t *testing.T) {
	_, err := FromSnapshot(model.Snapshot{Identity: 1, Cycle: "lunch"}, 4)
	require.Error(t, err)
	_, err = FromSnapshot(model.Snapshot{Identity: 1, Cycle: model.CycleWork, Elapsed: -3}, 4)
	require.Error(t, err)
}
