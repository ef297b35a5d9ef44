package sweep

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Rotator refreshes validation codes across the visit store and reports
// how many visits were touched. Implemented by visit.Service.
type Rotator interface {
	RotateCredentials(now time.Time) int
}

// Sweeper drives the periodic credential rotation for the lifetime of the
// process session. One tick, one rotation pass; no backlog or catch-up.
// If a tick is missed the next one simply rotates from current time.
type Sweeper struct {
	interval time.Duration
	rotator  Rotator
	log      *slog.Logger

	mu        sync.Mutex
	lastSweep time.Time
}

func New(interval time.Duration, rotator Rotator, log *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Sweeper{interval: interval, rotator: rotator, log: log}
}

// Run blocks until ctx is cancelled, rotating on every tick. Callers run
// it in its own goroutine and cancel the context on session teardown.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("rotation sweep stopped")
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick performs one rotation pass. Exposed so tests and admin tooling can
// force a sweep without waiting for the ticker.
func (s *Sweeper) Tick(now time.Time) int {
	rotated := s.rotator.RotateCredentials(now)

	s.mu.Lock()
	s.lastSweep = now
	s.mu.Unlock()

	s.log.Debug("rotation sweep", "rotated", rotated)
	return rotated
}

// LastSweep returns when the last rotation pass ran; dependent views use
// it to restart their countdowns.
func (s *Sweeper) LastSweep() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSweep
}
