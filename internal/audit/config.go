package audit

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config captures every knob that influences an audit run. The struct is
// decoupled from Viper so components can be unit-tested with synthetic
// configurations.
type Config struct {
	URLFile        string
	DefaultTargets []string
	ReportsDir     string
	SummaryFile    string
	Concurrency    int
	MaxRetries     int
	Timeout        time.Duration
	RetryBackoff   time.Duration
	JobDelay       time.Duration
	BatchDelay     time.Duration
	HostQPS        float64
	MetricsAddr    string
}

// LoadConfig constructs a Config by reading from Viper.
func LoadConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		URLFile:        v.GetString("audit.url_file"),
		DefaultTargets: v.GetStringSlice("audit.default_targets"),
		ReportsDir:     v.GetString("audit.reports_dir"),
		SummaryFile:    v.GetString("audit.summary_file"),
		Concurrency:    v.GetInt("audit.concurrency"),
		MaxRetries:     v.GetInt("audit.max_retries"),
		Timeout:        v.GetDuration("audit.timeout"),
		RetryBackoff:   v.GetDuration("audit.retry_backoff"),
		JobDelay:       v.GetDuration("audit.job_delay"),
		BatchDelay:     v.GetDuration("audit.batch_delay"),
		HostQPS:        v.GetFloat64("audit.host_qps"),
		MetricsAddr:    v.GetString("audit.metrics_addr"),
	}
	return cfg, cfg.Validate()
}

// Validate checks for obviously bad configuration combinations.
func (c Config) Validate() error {
	if c.ReportsDir == "" {
		return fmt.Errorf("audit.reports_dir must be set")
	}
	if c.SummaryFile == "" {
		return fmt.Errorf("audit.summary_file must be set")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("audit.concurrency must be > 0")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("audit.max_retries must be >= 0")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("audit.timeout must be > 0")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("audit.retry_backoff must be >= 0")
	}
	if c.JobDelay < 0 {
		return fmt.Errorf("audit.job_delay must be >= 0")
	}
	if c.BatchDelay < 0 {
		return fmt.Errorf("audit.batch_delay must be >= 0")
	}
	if c.HostQPS < 0 {
		return fmt.Errorf("audit.host_qps must be >= 0")
	}
	return nil
}

// Sequential reports whether jobs run one at a time.
func (c Config) Sequential() bool {
	return c.Concurrency == 1
}

// PacingDelay returns the delay inserted between jobs (sequential mode) or
// between batches (concurrent mode).
func (c Config) PacingDelay() time.Duration {
	if c.Sequential() {
		return c.JobDelay
	}
	return c.BatchDelay
}
