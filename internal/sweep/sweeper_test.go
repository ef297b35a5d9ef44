package sweep

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingRotator struct {
	calls atomic.Int32
}

func (r *countingRotator) RotateCredentials(now time.Time) int {
	r.calls.Add(1)
	return 3
}

func TestTick_RotatesAndRecordsSweepTime(t *testing.T) {
	r := &countingRotator{}
	s := New(30*time.Second, r, nil)

	now := time.Unix(1700000000, 0).UTC()
	if got := s.Tick(now); got != 3 {
		t.Fatalf("expected rotator result, got %d", got)
	}
	if !s.LastSweep().Equal(now) {
		t.Fatalf("expected last sweep recorded")
	}
	if r.calls.Load() != 1 {
		t.Fatalf("expected one rotation call")
	}
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	r := &countingRotator{}
	s := New(10*time.Millisecond, r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) && r.calls.Load() < 2 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("sweeper did not stop on cancel")
	}
	if r.calls.Load() < 2 {
		t.Fatalf("expected at least two ticks, got %d", r.calls.Load())
	}
}
