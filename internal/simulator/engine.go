package simulator

import (
	"log"
	"sync"
	"time"
)

// Tick pacing bounds.
const (
	MinInterval     = 100 * time.Millisecond
	MaxInterval     = 4 * time.Second
	DefaultInterval = time.Second
)

// State represents the current scheduler state.
type State struct {
	Tick     uint64        `json:"tick"`
	Day      int           `json:"day"`
	Hour     int           `json:"hour"`
	Time     time.Time     `json:"time"`
	Weather  string        `json:"weather"`
	Interval time.Duration `json:"interval"`
	Running  bool          `json:"running"`
}

// Callback receives simulation events. Implementations must not call
// Pause from inside a callback.
type Callback interface {
	OnState(state State)
	OnTick(result TickResult, summary Summary)
}

// Sink receives every tick result in order, e.g. for durable history.
type Sink interface {
	AppendTick(result TickResult) error
}

// Mutation changes the community between ticks. Returning an error discards
// the change.
type Mutation func(c *Community) error

type pendingMutation struct {
	name   string
	apply  Mutation
	result chan error
}

// Engine drives the tick pipeline at a configurable pace. It is the only
// writer of the community; outside changes go through Submit.
type Engine struct {
	mu       sync.Mutex
	tickMu   sync.Mutex // serializes ticks and mutations
	callback Callback
	sinks    []Sink
	rng      Rand

	community Community
	pending   []pendingMutation

	running  bool
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func New(c Community, rng Rand, cb Callback, sinks ...Sink) *Engine {
	return &Engine{
		community: c,
		rng:       rng,
		callback:  cb,
		sinks:     sinks,
		interval:  DefaultInterval,
	}
}

// State returns the current scheduler state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *Engine) stateLocked() State {
	return State{
		Tick:     e.community.Clock.Tick,
		Day:      e.community.Clock.Day,
		Hour:     e.community.Clock.Hour,
		Time:     e.community.Clock.Time(),
		Weather:  string(e.community.Weather.State),
		Interval: e.interval,
		Running:  e.running,
	}
}

// Snapshot returns a copy of the last published community state.
func (e *Engine) Snapshot() Community {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.community.Clone()
}

// Start begins scheduling ticks.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	stop, done := e.stopCh, e.doneCh
	e.mu.Unlock()

	e.broadcastState()
	go e.loop(stop, done)
}

// Pause stops scheduling further ticks. A tick already in progress runs to
// completion first. Accumulated state is kept, so Start resumes where the
// simulation left off.
func (e *Engine) Pause() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stopCh)
	done := e.doneCh
	e.mu.Unlock()

	<-done

	e.tickMu.Lock()
	e.drain()
	e.tickMu.Unlock()

	e.broadcastState()
}

// SetInterval sets the wall-clock pause between ticks.
func (e *Engine) SetInterval(d time.Duration) {
	if d < MinInterval {
		d = MinInterval
	}
	if d > MaxInterval {
		d = MaxInterval
	}

	e.mu.Lock()
	e.interval = d
	e.mu.Unlock()

	e.broadcastState()
}

// Interval returns the current pause between ticks.
func (e *Engine) Interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.interval
}

// Submit queues a change to the community. It is applied before the next
// tick, or right away when the scheduler is paused. The returned channel
// yields the mutation's error (nil on success) once applied.
func (e *Engine) Submit(name string, m Mutation) <-chan error {
	result := make(chan error, 1)

	e.mu.Lock()
	e.pending = append(e.pending, pendingMutation{name: name, apply: m, result: result})
	running := e.running
	e.mu.Unlock()

	if !running {
		e.tickMu.Lock()
		e.drain()
		e.tickMu.Unlock()
		e.broadcastState()
	}
	return result
}

// Step runs exactly one tick. Useful for deterministic testing and headless
// runs; does not require Start().
func (e *Engine) Step() TickResult {
	e.tickMu.Lock()
	res := e.step()
	e.tickMu.Unlock()

	e.broadcastState()
	return res
}

func (e *Engine) loop(stop, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(e.Interval())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			e.Step()
			timer.Reset(e.Interval())
		}
	}
}

// step runs one tick. Must be called with tickMu held.
func (e *Engine) step() TickResult {
	e.drain()

	e.mu.Lock()
	current := e.community
	e.mu.Unlock()

	next, res := current.Tick(e.rng)
	summary := next.Summary()

	e.mu.Lock()
	e.community = next
	e.mu.Unlock()

	for _, s := range e.sinks {
		if err := s.AppendTick(res); err != nil {
			log.Printf("Sink append failed for tick %d: %v", res.Tick, err)
		}
	}
	if e.callback != nil {
		e.callback.OnTick(res, summary)
	}
	return res
}

// drain applies queued mutations in submission order. Must be called with
// tickMu held.
func (e *Engine) drain() {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	for _, p := range pending {
		e.mu.Lock()
		c := e.community.Clone()
		e.mu.Unlock()

		err := p.apply(&c)
		if err == nil {
			e.mu.Lock()
			e.community = c
			e.mu.Unlock()
		} else {
			log.Printf("Mutation %s rejected: %v", p.name, err)
		}
		p.result <- err
	}
}

func (e *Engine) broadcastState() {
	if e.callback == nil {
		return
	}
	e.mu.Lock()
	s := e.stateLocked()
	e.mu.Unlock()
	e.callback.OnState(s)
}
