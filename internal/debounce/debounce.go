// Package debounce coalesces bursts of routing-parameter changes into a
// single recomputation. The controller is a small explicit state machine
// (Idle, Pending) rather than ad hoc timer variables, so the two-tier delay
// logic is testable without any UI host.
package debounce

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shadewalk/shadewalk/internal/model"
)

// Inputs are the routing-relevant parameters the controller observes.
type Inputs struct {
	SimulatedHour      int
	ShadePenaltyWeight float64
	RoutingMode        model.RoutingMode
}

// State of the controller.
type State int

const (
	// Idle means no recomputation is scheduled.
	Idle State = iota
	// Pending means a recomputation is armed and waiting out its delay.
	Pending
)

// Default delays. Changing the simulated time or routing mode forces a
// shadow-surface regeneration before classification is meaningful, which
// is expensive; a weight-only change just re-runs the solver over the
// existing surface, so a slider drag can settle much faster.
const (
	DefaultSurfaceDelay = 800 * time.Millisecond
	DefaultWeightDelay  = 150 * time.Millisecond
)

// Timer is the subset of time.Timer the controller needs; injectable.
type Timer interface {
	Stop() bool
}

// TimerFactory creates a timer that calls fn after d. Defaults to
// time.AfterFunc.
type TimerFactory func(d time.Duration, fn func()) Timer

// Options configures a Controller.
type Options struct {
	SurfaceDelay time.Duration
	WeightDelay  time.Duration

	// NewTimer is injectable for tests. Default: time.AfterFunc.
	NewTimer TimerFactory
}

// Controller observes parameter changes and fires a single coalesced
// recomputation per burst. Cancellation is soft: a superseded recompute
// still runs, but Current lets it discover its token has expired so it can
// drop its own result.
type Controller struct {
	opts Options
	fire func(inputs Inputs, token uint64)

	mu        sync.Mutex
	inputs    Inputs
	start     *model.GeoPoint
	end       *model.GeoPoint
	state     State
	token     uint64
	timer     Timer
	armedWith time.Duration
}

// New creates a controller that invokes fire with the latest inputs once a
// burst of changes settles. fire runs on the timer goroutine.
func New(initial Inputs, fire func(inputs Inputs, token uint64), opts Options) *Controller {
	if opts.SurfaceDelay <= 0 {
		opts.SurfaceDelay = DefaultSurfaceDelay
	}
	if opts.WeightDelay <= 0 {
		opts.WeightDelay = DefaultWeightDelay
	}
	if opts.NewTimer == nil {
		opts.NewTimer = func(d time.Duration, fn func()) Timer { return time.AfterFunc(d, fn) }
	}
	return &Controller{opts: opts, fire: fire, inputs: initial}
}

// SetEndpoints records the active route's endpoints. Recomputation only
// ever fires while both are set.
func (c *Controller) SetEndpoints(start, end *model.GeoPoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.start = start
	c.end = end
}

// SetSimulatedHour schedules a surface-regenerating recompute.
func (c *Controller) SetSimulatedHour(hour int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputs.SimulatedHour == hour {
		return
	}
	c.inputs.SimulatedHour = hour
	c.schedule(c.opts.SurfaceDelay)
}

// SetRoutingMode schedules a surface-regenerating recompute.
func (c *Controller) SetRoutingMode(mode model.RoutingMode) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputs.RoutingMode == mode {
		return
	}
	c.inputs.RoutingMode = mode
	c.schedule(c.opts.SurfaceDelay)
}

// SetShadePenaltyWeight schedules a fast, reweight-only recompute. If a
// slower surface recompute is already pending, the pending delay is kept:
// the weight change rides along rather than short-circuiting the surface
// regeneration.
func (c *Controller) SetShadePenaltyWeight(w float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputs.ShadePenaltyWeight == w {
		return
	}
	c.inputs.ShadePenaltyWeight = w
	delay := c.opts.WeightDelay
	if c.state == Pending && c.armedWith > delay {
		delay = c.armedWith
	}
	c.schedule(delay)
}

// schedule cancels any pending timer and arms a new one. Caller holds mu.
func (c *Controller) schedule(delay time.Duration) {
	if c.start == nil || c.end == nil {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.token++
	token := c.token
	c.state = Pending
	c.armedWith = delay
	c.timer = c.opts.NewTimer(delay, func() { c.fireNow(token) })
}

func (c *Controller) fireNow(token uint64) {
	c.mu.Lock()
	if token != c.token || c.start == nil || c.end == nil {
		c.mu.Unlock()
		return
	}
	c.state = Idle
	inputs := c.inputs
	c.mu.Unlock()

	zap.L().Debug("debounce: firing recompute",
		zap.Uint64("token", token),
		zap.Int("hour", inputs.SimulatedHour),
		zap.Float64("weight", inputs.ShadePenaltyWeight),
		zap.String("mode", string(inputs.RoutingMode)),
	)
	c.fire(inputs, token)
}

// Current reports whether token is still the latest issued. A recompute
// whose token has expired must drop its own result.
func (c *Controller) Current(token uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return token == c.token
}

// State returns the controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
