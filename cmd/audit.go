package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/audit"
	"github.com/beaconlabs/beacon/internal/browser"
	"github.com/beaconlabs/beacon/internal/engine"
	"github.com/beaconlabs/beacon/internal/metrics"
	"github.com/beaconlabs/beacon/internal/progress"
)

// newAuditCmd creates and configures the 'audit' subcommand, which runs the
// whole batch: URL ingestion, scheduling, per-job retries, and persistence.
func newAuditCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audits every URL in the configured list",
		Long: `Loads the line-delimited URL list, audits each URL with the fixed
desktop emulation profile, writes a JSON and an HTML report per successful
job, and finishes with an aggregate CSV summary. Individual URL failures
never abort the run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuditCommand(cmd, logger)
		},
	}

	// Flag defaults mirror the viper defaults: an unchanged bound flag
	// still takes precedence over viper.SetDefault.
	flags := cmd.Flags()
	flags.String("urls", "urls.txt", "path to the line-delimited URL list")
	flags.String("out", "summary.csv", "path of the aggregate CSV summary")
	flags.String("reports-dir", "reports", "directory for per-URL report artifacts")
	flags.Int("retries", 1, "retries per URL after the first failed attempt")
	flags.Duration("timeout", 60*time.Second, "per-job audit timeout")
	flags.Int("concurrency", 1, "number of jobs per concurrent batch (1 = sequential)")
	flags.String("metrics-addr", "", "listen address for the Prometheus endpoint (empty = disabled)")

	bind := map[string]string{
		"audit.url_file":     "urls",
		"audit.summary_file": "out",
		"audit.reports_dir":  "reports-dir",
		"audit.max_retries":  "retries",
		"audit.timeout":      "timeout",
		"audit.concurrency":  "concurrency",
		"audit.metrics_addr": "metrics-addr",
	}
	for key, flag := range bind {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}

	return cmd
}

func runAuditCommand(cmd *cobra.Command, logger *zap.Logger) error {
	cfg, err := audit.LoadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load audit config: %w", err)
	}

	targets := audit.LoadTargets(cfg.URLFile, cfg.DefaultTargets, logger)
	if len(targets) == 0 {
		return audit.ErrNoTargets
	}
	logger.Info("starting audit run",
		zap.Int("urls", len(targets)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("timeout", cfg.Timeout),
	)

	metrics.Init()
	if cfg.MetricsAddr != "" {
		stop := serveMetrics(cfg.MetricsAddr, logger)
		defer stop()
	}

	sink, err := audit.NewFileSink(cfg.ReportsDir, logger)
	if err != nil {
		return fmt.Errorf("init report sink: %w", err)
	}

	clock := audit.SystemClock{}
	runner := audit.NewRunner(
		browser.NewChrome(logger),
		engine.New(clock, logger),
		sink,
		clock,
		cfg.Timeout,
		logger,
	)
	retrier := audit.NewRetrier(runner, cfg.MaxRetries, cfg.RetryBackoff, logger)
	scheduler := audit.NewScheduler(
		retrier,
		cfg.Concurrency,
		cfg.PacingDelay(),
		cfg.HostQPS,
		progress.NewLogReporter(logger),
		logger,
	)

	results := scheduler.RunAll(cmd.Context(), targets)

	path, err := sink.WriteSummary(results, cfg.SummaryFile)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	logger.Info("audit run finished",
		zap.Int("urls", len(results)),
		zap.Int("failed", failed),
		zap.String("summary", path),
	)
	return nil
}

// serveMetrics exposes the Prometheus endpoint for the run's duration and
// returns the shutdown func.
func serveMetrics(addr string, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics endpoint stopped", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("metrics endpoint shutdown", zap.Error(err))
		}
	}
}
