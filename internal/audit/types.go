// Package audit defines core types shared across the batch auditor.
package audit

import (
	"math"
	"strconv"
	"time"
)

// Category names the four quality dimensions an audit evaluates.
type Category string

// Categories requested from the engine on every run.
const (
	CategoryPerformance   Category = "performance"
	CategoryAccessibility Category = "accessibility"
	CategoryBestPractices Category = "best-practices"
	CategorySEO           Category = "seo"
)

// Score holds a single 0-100 category score. OK is false when the engine
// omitted the category; such scores render as "N/A".
type Score struct {
	Value int
	OK    bool
}

// NewScore rounds and clamps a raw engine score into the 0-100 range.
func NewScore(raw float64) Score {
	v := int(math.Round(raw))
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return Score{Value: v, OK: true}
}

// Unavailable is the sentinel for a category the engine did not score.
func Unavailable() Score {
	return Score{}
}

// String renders the score for the summary table.
func (s Score) String() string {
	if !s.OK {
		return "N/A"
	}
	return strconv.Itoa(s.Value)
}

// Scores groups the four category scores of one audit.
type Scores struct {
	Performance   Score
	Accessibility Score
	BestPractices Score
	SEO           Score
}

// UnavailableScores returns a Scores with every category marked N/A.
func UnavailableScores() Scores {
	return Scores{
		Performance:   Unavailable(),
		Accessibility: Unavailable(),
		BestPractices: Unavailable(),
		SEO:           Unavailable(),
	}
}

// Result is the terminal outcome for one input URL. Exactly one Result is
// produced per URL regardless of how many attempts were made; it always
// reflects the last attempt.
type Result struct {
	URL        string
	Scores     Scores
	Error      string
	Duration   time.Duration
	FinishedAt time.Time
}

// Failed reports whether the result represents a failed audit.
func (r Result) Failed() bool {
	return r.Error != ""
}

// FailedResult builds the uniform failure record for a URL.
func FailedResult(url string, err error) Result {
	msg := "audit failed"
	if err != nil {
		msg = err.Error()
	}
	return Result{
		URL:    url,
		Scores: UnavailableScores(),
		Error:  msg,
	}
}

// Report is the engine's raw output for one successful audit: the four
// category scores plus two opaque documents persisted verbatim.
type Report struct {
	Scores        Scores
	StructuredDoc []byte
	RenderedDoc   []byte
}

// Profile is the fixed device and network emulation applied to every audit
// so runs stay reproducible.
type Profile struct {
	Width          int64
	Height         int64
	Scale          float64
	Mobile         bool
	RTT            time.Duration
	ThroughputKbps int64
	CPUSlowdown    float64
	Locale         string
}

// DesktopProfile is the emulation profile used for every job: desktop
// viewport, deterministic throttling, en-US locale.
func DesktopProfile() Profile {
	return Profile{
		Width:          1366,
		Height:         768,
		Scale:          1,
		Mobile:         false,
		RTT:            40 * time.Millisecond,
		ThroughputKbps: 10240,
		CPUSlowdown:    1,
		Locale:         "en-US",
	}
}
