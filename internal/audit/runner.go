package audit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/browser"
	"github.com/beaconlabs/beacon/internal/metrics"
)

// Runner executes one audit attempt: it launches an isolated browser
// process, invokes the engine with the fixed emulation profile, persists
// the resulting artifacts, and normalizes every outcome into a Result.
// Run never returns an error; all failures land in Result.Error.
type Runner struct {
	launcher browser.Launcher
	engine   Engine
	sink     Sink
	clock    Clock
	profile  Profile
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRunner constructs a Runner using the fixed desktop profile.
func NewRunner(
	launcher browser.Launcher,
	engine Engine,
	sink Sink,
	clock Clock,
	timeout time.Duration,
	logger *zap.Logger,
) *Runner {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		launcher: launcher,
		engine:   engine,
		sink:     sink,
		clock:    clock,
		profile:  DesktopProfile(),
		timeout:  timeout,
		logger:   logger,
	}
}

// Run audits a single URL. The browser process acquired for the attempt is
// terminated on every exit path, including engine errors and timeouts.
func (r *Runner) Run(ctx context.Context, url string) Result {
	start := time.Now()
	result := r.attempt(ctx, url)
	result.Duration = time.Since(start)
	result.FinishedAt = r.clock.Now()

	metrics.ObserveAttempt(result.Failed())
	if result.Failed() {
		r.logger.Warn("audit attempt failed",
			zap.String("url", url),
			zap.String("error", result.Error),
			zap.Duration("dur", result.Duration),
		)
	} else {
		r.logger.Debug("audit attempt succeeded",
			zap.String("url", url),
			zap.Duration("dur", result.Duration),
		)
	}
	return result
}

func (r *Runner) attempt(ctx context.Context, url string) Result {
	attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	inst, err := r.launcher.Launch(attemptCtx)
	if err != nil {
		metrics.ObserveBrowserLaunchFailure()
		return FailedResult(url, fmt.Errorf("launch browser: %w", err))
	}
	defer inst.Close()

	report, err := r.engine.Audit(attemptCtx, inst, url, r.profile)
	if err != nil {
		return FailedResult(url, fmt.Errorf("audit engine: %w", err))
	}

	name := ReportName(url, r.clock.Now())
	if err := r.sink.SaveArtifacts(ctx, name, report.StructuredDoc, report.RenderedDoc); err != nil {
		return FailedResult(url, fmt.Errorf("persist artifacts: %w", err))
	}

	return Result{URL: url, Scores: report.Scores}
}
