package events

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lu-zhengda/mailsync/internal/store"
)

type funcLoop struct {
	id string
	fn func(ctx context.Context) (bool, error)
}

func (l *funcLoop) ID() string { return l.id }

func (l *funcLoop) Tick(ctx context.Context) (bool, error) { return l.fn(ctx) }

func testSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:   time.Hour, // periodic ticks never fire during a test
		RetryBase:  time.Millisecond,
		RetryMax:   5 * time.Millisecond,
		FailureCap: 2,
	}
}

func waitTick(t *testing.T, ticks <-chan struct{}) {
	t.Helper()
	select {
	case <-ticks:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a tick")
	}
}

func assertNoTick(t *testing.T, ticks <-chan struct{}) {
	t.Helper()
	select {
	case <-ticks:
		t.Fatal("unexpected tick")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestScheduler_AtMostOneTickInFlight(t *testing.T) {
	block := make(chan struct{})
	ticks := make(chan struct{}, 16)
	var inflight, maxInflight int32

	loop := &funcLoop{id: "acc-1", fn: func(context.Context) (bool, error) {
		n := atomic.AddInt32(&inflight, 1)
		if n > atomic.LoadInt32(&maxInflight) {
			atomic.StoreInt32(&maxInflight, n)
		}
		ticks <- struct{}{}
		<-block
		atomic.AddInt32(&inflight, -1)
		return false, nil
	}}

	s := NewScheduler(testSchedulerConfig(), testLogger())
	s.Register(loop)
	s.Start()
	defer s.Stop()

	waitTick(t, ticks) // the immediate startup tick, now blocked

	// Five wake-ups against a busy loop coalesce into one pending run.
	for i := 0; i < 5; i++ {
		s.WakeUp("acc-1")
	}
	close(block)

	waitTick(t, ticks)
	assertNoTick(t, ticks)

	if got := atomic.LoadInt32(&maxInflight); got != 1 {
		t.Errorf("max in-flight ticks = %d, want 1", got)
	}
}

func TestScheduler_MoreTriggersImmediateFollowUp(t *testing.T) {
	ticks := make(chan struct{}, 16)
	var n int32

	loop := &funcLoop{id: "acc-1", fn: func(context.Context) (bool, error) {
		k := atomic.AddInt32(&n, 1)
		ticks <- struct{}{}
		return k < 3, nil
	}}

	s := NewScheduler(testSchedulerConfig(), testLogger())
	s.Register(loop)
	s.Start()
	defer s.Stop()

	// Three ticks despite the hour-long interval: More short-circuits it.
	waitTick(t, ticks)
	waitTick(t, ticks)
	waitTick(t, ticks)
	assertNoTick(t, ticks)
}

func TestScheduler_DegradesAfterFailureCap(t *testing.T) {
	ticks := make(chan struct{}, 16)
	loop := &funcLoop{id: "acc-1", fn: func(context.Context) (bool, error) {
		ticks <- struct{}{}
		return false, fmt.Errorf("upstream down")
	}}

	s := NewScheduler(testSchedulerConfig(), testLogger())
	s.Register(loop)
	s.Start()
	defer s.Stop()

	waitTick(t, ticks) // failure 1, retried after backoff
	waitTick(t, ticks) // failure 2, hits the cap
	assertNoTick(t, ticks)

	statuses := s.Statuses()
	if len(statuses) != 1 {
		t.Fatalf("len(Statuses()) = %d, want 1", len(statuses))
	}
	st := statuses[0]
	if st.State != StateDegraded {
		t.Errorf("State = %v, want %v", st.State, StateDegraded)
	}
	if st.Failures != 2 {
		t.Errorf("Failures = %d, want 2", st.Failures)
	}
	if st.LastErr == nil {
		t.Error("LastErr not recorded")
	}

	// An explicit wake-up puts a degraded loop back in service.
	s.WakeUp("acc-1")
	waitTick(t, ticks)
}

func TestScheduler_DegradesImmediatelyOnStoreFailure(t *testing.T) {
	ticks := make(chan struct{}, 16)
	loop := &funcLoop{id: "acc-1", fn: func(context.Context) (bool, error) {
		ticks <- struct{}{}
		return false, fmt.Errorf("failed to apply events: %w", store.ErrDegraded)
	}}

	cfg := testSchedulerConfig()
	cfg.FailureCap = 100 // the degraded store must short-circuit the cap
	s := NewScheduler(cfg, testLogger())
	s.Register(loop)
	s.Start()
	defer s.Stop()

	waitTick(t, ticks)
	assertNoTick(t, ticks)

	if st := s.Statuses()[0]; st.State != StateDegraded {
		t.Errorf("State = %v, want %v", st.State, StateDegraded)
	}
}

func TestScheduler_SuccessResetsFailureCount(t *testing.T) {
	ticks := make(chan struct{}, 16)
	var n int32
	loop := &funcLoop{id: "acc-1", fn: func(context.Context) (bool, error) {
		k := atomic.AddInt32(&n, 1)
		ticks <- struct{}{}
		if k == 1 {
			return false, fmt.Errorf("transient")
		}
		return false, nil
	}}

	s := NewScheduler(testSchedulerConfig(), testLogger())
	s.Register(loop)
	s.Start()
	defer s.Stop()

	waitTick(t, ticks) // fails once
	waitTick(t, ticks) // retry succeeds

	deadline := time.Now().Add(2 * time.Second)
	for {
		st := s.Statuses()[0]
		if st.State == StateIdle && st.Failures == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("status = %+v, want idle with zero failures", st)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestScheduler_StopHaltsTicks(t *testing.T) {
	ticks := make(chan struct{}, 16)
	loop := &funcLoop{id: "acc-1", fn: func(context.Context) (bool, error) {
		ticks <- struct{}{}
		return false, nil
	}}

	s := NewScheduler(testSchedulerConfig(), testLogger())
	s.Register(loop)
	s.Start()
	waitTick(t, ticks)

	s.Stop()
	s.WakeUp("acc-1")
	assertNoTick(t, ticks)

	// Registration survives Stop.
	if len(s.Statuses()) != 1 {
		t.Error("Stop() discarded registrations")
	}
}

func TestScheduler_ResetDiscardsAllLoops(t *testing.T) {
	ticks := make(chan struct{}, 16)
	loop := &funcLoop{id: "acc-1", fn: func(context.Context) (bool, error) {
		ticks <- struct{}{}
		return false, nil
	}}

	s := NewScheduler(testSchedulerConfig(), testLogger())
	s.Register(loop)
	s.EnableSpecialLoop(&funcLoop{id: "special-1", fn: func(context.Context) (bool, error) {
		return false, nil
	}})
	s.Start()
	waitTick(t, ticks)

	s.Reset()
	if got := len(s.Statuses()); got != 0 {
		t.Errorf("len(Statuses()) = %d after Reset, want 0", got)
	}
}

func TestScheduler_RemoveStopsOneLoop(t *testing.T) {
	ticksA := make(chan struct{}, 16)
	ticksB := make(chan struct{}, 16)
	s := NewScheduler(testSchedulerConfig(), testLogger())
	s.Register(&funcLoop{id: "acc-a", fn: func(context.Context) (bool, error) {
		ticksA <- struct{}{}
		return false, nil
	}})
	s.Register(&funcLoop{id: "acc-b", fn: func(context.Context) (bool, error) {
		ticksB <- struct{}{}
		return false, nil
	}})
	s.Start()
	defer s.Stop()

	waitTick(t, ticksA)
	waitTick(t, ticksB)

	s.Remove("acc-a")
	s.WakeUp("acc-a")
	assertNoTick(t, ticksA)

	s.WakeUp("acc-b")
	waitTick(t, ticksB)
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		RetryBase: time.Second,
		RetryMax:  10 * time.Second,
	}, testLogger())

	cases := []struct {
		failures int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{9, 10 * time.Second},
	}
	for _, c := range cases {
		if got := s.backoff(c.failures); got != c.want {
			t.Errorf("backoff(%d) = %v, want %v", c.failures, got, c.want)
		}
	}
}
