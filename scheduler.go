package authbackend

import (
	"context"
	"sync"
	"time"
)

// SweepScheduler runs the two token sweeps at their configured fixed
// intervals for the lifetime of the process. Sweep failures are logged
// and retried on the next tick, never sooner.
type SweepScheduler struct {
	engine *Engine

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewSweepScheduler creates a scheduler bound to engine. Call Start to
// begin ticking and Stop on shutdown.
func NewSweepScheduler(engine *Engine) *SweepScheduler {
	return &SweepScheduler{engine: engine}
}

// Start launches both sweep loops. Subsequent calls are no-ops.
func (s *SweepScheduler) Start() {
	s.startOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel

		cfg := s.engine.config.Sweep
		s.wg.Add(2)
		go s.loop(ctx, cfg.RefreshInterval, "refresh", s.engine.SweepRefreshTokens)
		go s.loop(ctx, cfg.ResetInterval, "reset", s.engine.SweepResetTokens)
	})
}

// Stop cancels the loops and waits for any in-flight sweep to finish.
func (s *SweepScheduler) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
	})
}

func (s *SweepScheduler) loop(ctx context.Context, interval time.Duration, kind string, sweep func(context.Context) (int64, error)) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := sweep(ctx); err != nil {
				s.engine.logError(ctx, "scheduled sweep failed", "kind", kind, "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
