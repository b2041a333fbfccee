// Package config is responsible for initializing the application's configuration.
// It uses the Viper library to read settings from a config file, environment
// variables, and command-line flags, providing a unified configuration system.
package config

import (
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// InitConfig initializes the application's configuration using Viper.
// It sets up default values, defines configuration search paths, and enables
// reading from environment variables. This function is designed to be called
// once at application startup.
func InitConfig(logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}

	viper.SetConfigName("config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/beacon/")
	viper.AddConfigPath("$HOME/.beacon")

	viper.SetDefault("audit.url_file", "urls.txt")
	viper.SetDefault("audit.default_targets", []string{"https://example.com"})
	viper.SetDefault("audit.reports_dir", "reports")
	viper.SetDefault("audit.summary_file", "summary.csv")
	viper.SetDefault("audit.concurrency", 1)
	viper.SetDefault("audit.max_retries", 1)
	viper.SetDefault("audit.timeout", "60s")
	viper.SetDefault("audit.retry_backoff", "3s")
	viper.SetDefault("audit.job_delay", "2s")
	viper.SetDefault("audit.batch_delay", "500ms")
	viper.SetDefault("audit.host_qps", 0.0)
	viper.SetDefault("audit.metrics_addr", "")

	viper.SetDefault("logging.development", false)

	// e.g. BEACON_AUDIT_CONCURRENCY=4
	viper.SetEnvPrefix("BEACON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.Debug("Config file not found; using defaults and environment variables.")
		} else {
			logger.Error("Error reading config file", zap.Error(err))
		}
	} else {
		logger.Info("Using config file", zap.String("path", viper.ConfigFileUsed()))
	}
}
