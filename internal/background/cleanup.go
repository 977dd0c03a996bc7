package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/davidmarsh/reelhaven/internal/security"
)

// Reaper periodically drops stale in-memory security state: idle rate-limit
// buckets, aged-out attempt records, and expired verification codes. The
// security structures stay correct without it since expiry is computed lazily
// on access; the reaper only bounds memory.
type Reaper struct {
	limiter  *security.TokenBucketLimiter
	tracker  *security.LoginAttemptTracker
	codes    *security.MultiFactorCodeService
	logger   *slog.Logger
	interval time.Duration
	maxIdle  time.Duration
	stopCh   chan struct{}
}

// NewReaper creates a new reaper
func NewReaper(
	limiter *security.TokenBucketLimiter,
	tracker *security.LoginAttemptTracker,
	codes *security.MultiFactorCodeService,
	logger *slog.Logger,
	interval time.Duration,
	maxIdle time.Duration,
) *Reaper {
	return &Reaper{
		limiter:  limiter,
		tracker:  tracker,
		codes:    codes,
		logger:   logger,
		interval: interval,
		maxIdle:  maxIdle,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (r *Reaper) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.sweep()
		case <-r.stopCh:
			r.logger.Info("reaper stopped")
			return
		case <-ctx.Done():
			r.logger.Info("reaper context cancelled")
			return
		}
	}
}

func (r *Reaper) sweep() {
	buckets := r.limiter.PurgeStale(r.maxIdle)
	records := r.tracker.PurgeStale()
	codes := r.codes.PurgeStale()

	if buckets+records+codes > 0 {
		r.logger.Info("stale security state purged",
			slog.Int("buckets", buckets),
			slog.Int("attempt_records", records),
			slog.Int("codes", codes))
	}
}

// Stop signals the reaper to stop
func (r *Reaper) Stop() {
	close(r.stopCh)
}
