// Package progress reports audit run milestones. Reporting is a side
// effect only; the scheduler's results contract does not depend on it.
package progress

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageJobStart  Stage = "JOB_START"
	StageJobDone   Stage = "JOB_DONE"
	StageJobFailed Stage = "JOB_FAILED"
)

// Event captures one milestone of the batch run.
type Event struct {
	RunID uuid.UUID
	Index int
	Total int
	URL   string
	Stage Stage
	Err   string
	Dur   time.Duration
}

// Reporter consumes progress events.
type Reporter interface {
	Report(evt Event)
}

// LogReporter emits structured logs for each event.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter wires a Zap logger to the Reporter interface.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogReporter{logger: logger}
}

// Report logs the event using structured fields.
func (r *LogReporter) Report(evt Event) {
	fields := []zap.Field{
		zap.String("run_id", evt.RunID.String()),
		zap.String("stage", string(evt.Stage)),
		zap.Int("index", evt.Index+1),
		zap.Int("total", evt.Total),
		zap.String("url", evt.URL),
	}
	if evt.Dur > 0 {
		fields = append(fields, zap.Duration("dur", evt.Dur))
	}
	if evt.Err != "" {
		fields = append(fields, zap.String("error", evt.Err))
	}

	switch evt.Stage {
	case StageJobFailed:
		r.logger.Warn("audit progress", fields...)
	default:
		r.logger.Info("audit progress", fields...)
	}
}

// Nop discards all events.
type Nop struct{}

// Report implements Reporter and does nothing.
func (Nop) Report(Event) {}
