package audit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/metrics"
)

// AttemptRunner is the single-attempt contract the Retrier wraps.
type AttemptRunner interface {
	Run(ctx context.Context, url string) Result
}

// Retrier wraps an AttemptRunner with bounded retries and a fixed backoff
// between attempts. The returned Result always reflects the last attempt;
// intermediate failures are logged only.
type Retrier struct {
	runner     AttemptRunner
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewRetrier builds a Retrier. maxRetries = 0 means exactly one attempt.
func NewRetrier(runner AttemptRunner, maxRetries int, backoff time.Duration, logger *zap.Logger) *Retrier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrier{
		runner:     runner,
		maxRetries: maxRetries,
		backoff:    backoff,
		logger:     logger,
	}
}

// Run performs up to maxRetries+1 attempts for the URL, sleeping the fixed
// backoff between attempts. A success short-circuits the remaining budget.
func (r *Retrier) Run(ctx context.Context, url string) Result {
	var result Result
	attempts := r.maxRetries + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		result = r.runner.Run(ctx, url)
		if !result.Failed() {
			return result
		}
		if attempt == attempts {
			break
		}

		r.logger.Warn("audit failed; retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Int("attempts_max", attempts),
			zap.String("error", result.Error),
		)
		metrics.ObserveRetry()

		if err := r.wait(ctx); err != nil {
			// Run canceled mid-backoff: the last failure stands.
			return result
		}
	}
	return result
}

func (r *Retrier) wait(ctx context.Context) error {
	if r.backoff <= 0 {
		return nil
	}
	timer := time.NewTimer(r.backoff)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
