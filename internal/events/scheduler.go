package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lu-zhengda/mailsync/internal/store"
)

// LoopState is the coarse lifecycle state of one managed loop.
type LoopState int

const (
	StateIdle LoopState = iota
	StateRunning
	StateWaitingRetry
	// StateDegraded means the loop hit an unrecoverable store failure or
	// exhausted its failure cap (poison delta). It no longer ticks on the
	// schedule; only an explicit WakeUp resumes it.
	StateDegraded
)

func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateWaitingRetry:
		return "waiting-retry"
	case StateDegraded:
		return "degraded"
	}
	return "unknown"
}

// TickLoop is one schedulable fetch-and-apply loop.
type TickLoop interface {
	ID() string
	Tick(ctx context.Context) (more bool, err error)
}

// LoopStatus is a snapshot of one loop's scheduling state.
type LoopStatus struct {
	ID       string
	Special  bool
	State    LoopState
	Failures int
	LastErr  error
	LastTick time.Time
}

// SchedulerConfig tunes the scheduler. The backoff curve is policy, not
// contract: it must strictly increase across consecutive failures (up to
// RetryMax) and reset to Interval after any success.
type SchedulerConfig struct {
	Interval   time.Duration
	RetryBase  time.Duration
	RetryMax   time.Duration
	FailureCap int
}

// DefaultSchedulerConfig returns the steady-state tuning used by the
// daemon.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   30 * time.Second,
		RetryBase:  10 * time.Second,
		RetryMax:   10 * time.Minute,
		FailureCap: 8,
	}
}

// Scheduler coordinates the event loops of all registered accounts plus
// any on-demand special loops. Each loop runs on its own goroutine which
// serializes its ticks, so at most one tick per loop is ever in flight;
// wake-up triggers for a busy loop coalesce into a single pending run.
type Scheduler struct {
	cfg SchedulerConfig
	log *logrus.Logger

	mu      sync.Mutex
	runners map[string]*runner
	started bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

type runner struct {
	loop    TickLoop
	special bool
	trigger chan struct{}
	stop    chan struct{}

	// Guarded by the scheduler mutex.
	state    LoopState
	failures int
	lastErr  error
	lastTick time.Time
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(cfg SchedulerConfig, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		log:     logger,
		runners: make(map[string]*runner),
	}
}

// Register adds an account loop. If the scheduler is already started the
// loop begins ticking immediately. Registering an ID twice is a no-op.
func (s *Scheduler) Register(loop TickLoop) {
	s.add(loop, false)
}

// EnableSpecialLoop adds an on-demand loop outside the per-account set
// (for example a loop created in response to a user action).
func (s *Scheduler) EnableSpecialLoop(loop TickLoop) {
	s.add(loop, true)
}

func (s *Scheduler) add(loop TickLoop, special bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runners[loop.ID()]; ok {
		return
	}
	r := &runner{
		loop:    loop,
		special: special,
		trigger: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	s.runners[loop.ID()] = r
	if s.started {
		s.launch(r)
	}
}

// DisableSpecialLoop stops and discards an on-demand loop.
func (s *Scheduler) DisableSpecialLoop(id string) {
	s.Remove(id)
}

// Remove stops and discards one loop (account sign-out).
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	r, ok := s.runners[id]
	if ok {
		delete(s.runners, id)
	}
	s.mu.Unlock()
	if ok {
		close(r.stop)
	}
}

// Start launches all registered loops.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.ctx = ctx
	for _, r := range s.runners {
		s.launch(r)
	}
}

// Stop halts all loops without discarding registrations. In-flight ticks
// are abandoned via context cancellation; the transaction boundary
// guarantees no partial state commits.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	runners := make([]*runner, 0, len(s.runners))
	for _, r := range s.runners {
		runners = append(runners, r)
	}
	s.mu.Unlock()

	for _, r := range runners {
		close(r.stop)
	}
	s.wg.Wait()

	// Fresh stop channels for a future Start.
	s.mu.Lock()
	for _, r := range s.runners {
		r.stop = make(chan struct{})
	}
	s.mu.Unlock()
}

// Reset cancels and discards all loop state for all accounts (full
// sign-out).
func (s *Scheduler) Reset() {
	s.Stop()
	s.mu.Lock()
	s.runners = make(map[string]*runner)
	s.mu.Unlock()
}

// WakeUp triggers an immediate tick for one loop. A wake-up for a loop
// that is already running coalesces into the single pending trigger. A
// wake-up also clears a degraded loop back into service.
func (s *Scheduler) WakeUp(id string) {
	s.mu.Lock()
	r, ok := s.runners[id]
	if ok && r.state == StateDegraded {
		r.state = StateIdle
		r.failures = 0
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Statuses returns a snapshot of every managed loop.
func (s *Scheduler) Statuses() []LoopStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]LoopStatus, 0, len(s.runners))
	for id, r := range s.runners {
		statuses = append(statuses, LoopStatus{
			ID:       id,
			Special:  r.special,
			State:    r.state,
			Failures: r.failures,
			LastErr:  r.lastErr,
			LastTick: r.lastTick,
		})
	}
	return statuses
}

func (s *Scheduler) launch(r *runner) {
	s.wg.Add(1)
	ctx := s.ctx
	go func() {
		defer s.wg.Done()
		s.run(ctx, r)
	}()
}

func (s *Scheduler) run(ctx context.Context, r *runner) {
	timer := time.NewTimer(0) // first tick fires immediately
	defer timer.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-timer.C:
			if s.stateOf(r) == StateDegraded {
				timer.Reset(s.cfg.RetryMax)
				continue
			}
		case <-r.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		timer.Reset(s.tick(ctx, r))
	}
}

// tick runs one cycle and returns the wait before the next one.
func (s *Scheduler) tick(ctx context.Context, r *runner) time.Duration {
	s.setState(r, StateRunning)

	more, err := r.loop.Tick(ctx)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	r.lastTick = now
	r.lastErr = err

	if err != nil {
		if ctx.Err() != nil {
			// Abandoned mid-flight by Stop/Reset; nothing was committed.
			r.state = StateIdle
			return s.cfg.Interval
		}
		r.failures++
		if errors.Is(err, store.ErrDegraded) || r.failures >= s.cfg.FailureCap {
			r.state = StateDegraded
			s.log.WithField("loop", r.loop.ID()).WithError(err).
				Error("event loop degraded, waiting for explicit wake-up")
			// The timer keeps firing but degraded loops skip the tick;
			// only WakeUp clears the state.
			return s.cfg.RetryMax
		}
		wait := s.backoff(r.failures)
		r.state = StateWaitingRetry
		s.log.WithField("loop", r.loop.ID()).WithError(err).
			WithField("retry_in", wait).Warn("event tick failed")
		return wait
	}

	r.failures = 0
	r.state = StateIdle
	if more {
		// Feed has more pages: follow up immediately instead of waiting
		// for the next interval.
		return time.Nanosecond
	}
	return s.cfg.Interval
}

func (s *Scheduler) setState(r *runner, state LoopState) {
	s.mu.Lock()
	r.state = state
	s.mu.Unlock()
}

func (s *Scheduler) stateOf(r *runner) LoopState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return r.state
}

// backoff returns a strictly increasing wait for the nth consecutive
// failure, doubling from RetryBase and capped at RetryMax.
func (s *Scheduler) backoff(failures int) time.Duration {
	wait := s.cfg.RetryBase
	for i := 1; i < failures; i++ {
		wait *= 2
		if wait >= s.cfg.RetryMax {
			return s.cfg.RetryMax
		}
	}
	if wait > s.cfg.RetryMax {
		return s.cfg.RetryMax
	}
	return wait
}
