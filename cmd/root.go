// Package cmd defines and implements the CLI commands for the beacon executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/logging"
	"github.com/beaconlabs/beacon/pkg/config"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd(logger *zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "beacon",
		Short: "Batch web-page quality auditor",
		Long: `beacon runs performance, accessibility, best-practices and SEO audits
against a list of URLs, writing one detailed report pair per URL plus an
aggregate CSV summary. Jobs run sequentially or in fixed-size concurrent
batches, each with its own isolated browser process.`,
		SilenceUsage: true,
	}

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		}
		config.InitConfig(logger)
	})

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	cmd.AddCommand(newAuditCmd(logger))

	return cmd
}

// Execute is the main entry point. It exits non-zero only on run-fatal
// errors; per-URL audit failures still finish with exit code 0.
func Execute() {
	logger, err := logging.New(os.Getenv("BEACON_LOGGING_DEVELOPMENT") == "true")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("Command execution failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
