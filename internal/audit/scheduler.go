package audit

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/beaconlabs/beacon/internal/metrics"
	"github.com/beaconlabs/beacon/internal/progress"
)

// Scheduler drives the batch: it partitions the URL list into fixed-size
// batches (concurrency = batch size, 1 = fully sequential), runs each batch
// concurrently through the orchestrator, and collects results preserving
// input order. One job's failure never aborts its siblings or the run.
type Scheduler struct {
	orchestrator AttemptRunner
	concurrency  int
	pacing       time.Duration
	hostQPS      float64
	hostLimiters sync.Map
	reporter     progress.Reporter
	logger       *zap.Logger
	runID        uuid.UUID
}

// NewScheduler constructs a Scheduler around the retry orchestrator.
func NewScheduler(
	orchestrator AttemptRunner,
	concurrency int,
	pacing time.Duration,
	hostQPS float64,
	reporter progress.Reporter,
	logger *zap.Logger,
) *Scheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	if reporter == nil {
		reporter = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		orchestrator: orchestrator,
		concurrency:  concurrency,
		pacing:       pacing,
		hostQPS:      hostQPS,
		reporter:     reporter,
		logger:       logger,
		runID:        uuid.New(),
	}
}

// RunAll executes every URL and returns exactly one Result per input URL,
// in input order, regardless of completion order within a batch.
func (s *Scheduler) RunAll(ctx context.Context, urls []string) []Result {
	results := make([]Result, len(urls))

	for start := 0; start < len(urls); start += s.concurrency {
		if start > 0 {
			s.pause(ctx)
		}
		end := start + s.concurrency
		if end > len(urls) {
			end = len(urls)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int, target string) {
				defer wg.Done()
				results[idx] = s.runJob(ctx, idx, len(urls), target)
			}(i, urls[i])
		}
		wg.Wait()
	}

	return results
}

func (s *Scheduler) runJob(ctx context.Context, idx, total int, target string) (result Result) {
	metrics.IncActiveJobs()
	defer metrics.DecActiveJobs()

	// A panicking job must surface as a failure result for its own URL
	// only, never unwind past the batch join.
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("audit job panicked",
				zap.String("url", target),
				zap.Any("panic", rec),
			)
			result = FailedResult(target, fmt.Errorf("job panicked: %v", rec))
			s.finishJob(idx, total, result)
		}
	}()

	s.reporter.Report(progress.Event{
		RunID: s.runID,
		Index: idx,
		Total: total,
		URL:   target,
		Stage: progress.StageJobStart,
	})

	if err := s.waitHostBudget(ctx, target); err != nil {
		s.logger.Warn("host pacing wait interrupted", zap.String("url", target), zap.Error(err))
	}

	result = s.orchestrator.Run(ctx, target)
	s.finishJob(idx, total, result)
	return result
}

func (s *Scheduler) finishJob(idx, total int, result Result) {
	metrics.ObserveAudit(result.URL, result.Failed(), result.Duration)

	stage := progress.StageJobDone
	if result.Failed() {
		stage = progress.StageJobFailed
	}
	s.reporter.Report(progress.Event{
		RunID: s.runID,
		Index: idx,
		Total: total,
		URL:   result.URL,
		Stage: stage,
		Err:   result.Error,
		Dur:   result.Duration,
	})
}

// pause inserts the fixed pacing delay between completed batches (or between
// completed jobs in sequential mode). Never called after the last batch.
func (s *Scheduler) pause(ctx context.Context) {
	if s.pacing <= 0 {
		return
	}
	timer := time.NewTimer(s.pacing)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// waitHostBudget applies optional per-host politeness when concurrent jobs
// in a batch target the same host. Disabled when hostQPS <= 0.
func (s *Scheduler) waitHostBudget(ctx context.Context, rawURL string) error {
	if s.hostQPS <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url for host budget: %w", err)
	}
	host := strings.ToLower(parsed.Host)
	val, _ := s.hostLimiters.LoadOrStore(host, rate.NewLimiter(rate.Limit(s.hostQPS), 1))
	limiter, ok := val.(*rate.Limiter)
	if !ok {
		return fmt.Errorf("unexpected limiter type %T", val)
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait host limiter: %w", err)
	}
	return nil
}
