package audit

import (
	"context"
	"time"

	"github.com/beaconlabs/beacon/internal/browser"
)

// Engine performs the actual page audit against a running browser. The
// orchestration core treats it as a black box: it only consumes the four
// category scores and the two output documents.
type Engine interface {
	Audit(ctx context.Context, inst *browser.Instance, url string, profile Profile) (Report, error)
}

// Sink persists per-job artifacts and the aggregate summary.
type Sink interface {
	SaveArtifacts(ctx context.Context, name string, structured, rendered []byte) error
	WriteSummary(results []Result, path string) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock with the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
