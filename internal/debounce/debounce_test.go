package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shadewalk/shadewalk/internal/model"
)

// manualTimer records armed timers and lets the test fire them by hand.
type manualTimer struct {
	delay   time.Duration
	fn      func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := m.stopped
	m.stopped = true
	return !was
}

type timerLog struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (tl *timerLog) factory(d time.Duration, fn func()) Timer {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	t := &manualTimer{delay: d, fn: fn}
	tl.timers = append(tl.timers, t)
	return t
}

func (tl *timerLog) last() *manualTimer {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return tl.timers[len(tl.timers)-1]
}

func (tl *timerLog) count() int {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	return len(tl.timers)
}

type firedEvent struct {
	inputs Inputs
	token  uint64
}

func newTestController(initial Inputs) (*Controller, *timerLog, *[]firedEvent) {
	tl := &timerLog{}
	fired := &[]firedEvent{}
	var mu sync.Mutex
	c := New(initial, func(in Inputs, token uint64) {
		mu.Lock()
		defer mu.Unlock()
		*fired = append(*fired, firedEvent{in, token})
	}, Options{NewTimer: tl.factory})

	start := model.GeoPoint{Lat: 39.95, Lng: -75.16}
	end := model.GeoPoint{Lat: 39.96, Lng: -75.15}
	c.SetEndpoints(&start, &end)
	return c, tl, fired
}

func baseInputs() Inputs {
	return Inputs{SimulatedHour: 9, ShadePenaltyWeight: 1.0, RoutingMode: model.ModeShadeAware}
}

func TestController_SurfaceChangeUsesLongDelay(t *testing.T) {
	c, tl, fired := newTestController(baseInputs())

	c.SetSimulatedHour(15)
	assert.Equal(t, Pending, c.State())
	assert.Equal(t, DefaultSurfaceDelay, tl.last().delay)

	tl.last().fn()
	assert.Equal(t, Idle, c.State())
	require.Len(t, *fired, 1)
	assert.Equal(t, 15, (*fired)[0].inputs.SimulatedHour)
}

func TestController_WeightOnlyChangeUsesShortDelay(t *testing.T) {
	c, tl, fired := newTestController(baseInputs())

	c.SetShadePenaltyWeight(2.5)
	assert.Equal(t, DefaultWeightDelay, tl.last().delay)

	tl.last().fn()
	require.Len(t, *fired, 1)
	assert.Equal(t, 2.5, (*fired)[0].inputs.ShadePenaltyWeight)
}

func TestController_BurstCoalescesToSingleFire(t *testing.T) {
	c, tl, fired := newTestController(baseInputs())

	// A slider drag: many intermediate weights in quick succession.
	for _, w := range []float64{1.1, 1.4, 1.9, 2.3, 3.0} {
		c.SetShadePenaltyWeight(w)
	}
	assert.Equal(t, 5, tl.count())

	// Earlier timers were stopped; only the last is live.
	for _, timer := range tl.timers[:4] {
		assert.True(t, timer.stopped)
	}
	tl.last().fn()

	require.Len(t, *fired, 1)
	assert.Equal(t, 3.0, (*fired)[0].inputs.ShadePenaltyWeight)
}

func TestController_StaleTimerFireIsDiscarded(t *testing.T) {
	c, tl, fired := newTestController(baseInputs())

	c.SetSimulatedHour(10)
	stale := tl.last()
	c.SetSimulatedHour(11)

	// The stale timer fires anyway (lost Stop race): it must be a no-op.
	stale.fn()
	assert.Empty(t, *fired)

	tl.last().fn()
	require.Len(t, *fired, 1)
	assert.Equal(t, 11, (*fired)[0].inputs.SimulatedHour)
}

func TestController_WeightChangeDoesNotShortCircuitPendingSurfaceDelay(t *testing.T) {
	c, tl, fired := newTestController(baseInputs())

	c.SetSimulatedHour(16)
	c.SetShadePenaltyWeight(2.0)

	// The re-armed timer keeps the longer surface delay.
	assert.Equal(t, DefaultSurfaceDelay, tl.last().delay)

	tl.last().fn()
	require.Len(t, *fired, 1)
	assert.Equal(t, 16, (*fired)[0].inputs.SimulatedHour)
	assert.Equal(t, 2.0, (*fired)[0].inputs.ShadePenaltyWeight)
}

func TestController_NoEndpointsNoSchedule(t *testing.T) {
	tl := &timerLog{}
	c := New(baseInputs(), func(Inputs, uint64) {}, Options{NewTimer: tl.factory})

	c.SetSimulatedHour(12)
	assert.Equal(t, Idle, c.State())
	assert.Equal(t, 0, tl.count())
}

func TestController_UnchangedValueDoesNotSchedule(t *testing.T) {
	c, tl, _ := newTestController(baseInputs())

	c.SetSimulatedHour(9)
	c.SetRoutingMode(model.ModeShadeAware)
	c.SetShadePenaltyWeight(1.0)

	assert.Equal(t, 0, tl.count())
	assert.Equal(t, Idle, c.State())
}

func TestController_CurrentTracksLatestToken(t *testing.T) {
	c, tl, fired := newTestController(baseInputs())

	c.SetSimulatedHour(10)
	tl.last().fn()
	require.Len(t, *fired, 1)
	first := (*fired)[0].token
	assert.True(t, c.Current(first))

	// A newer change invalidates the old token even before it fires.
	c.SetSimulatedHour(11)
	assert.False(t, c.Current(first))
}

func TestController_ModeToggleUsesLongDelay(t *testing.T) {
	c, tl, _ := newTestController(baseInputs())

	c.SetRoutingMode(model.ModeStandard)
	assert.Equal(t, DefaultSurfaceDelay, tl.last().delay)
}
