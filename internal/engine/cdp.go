// Package engine implements the default page quality audit engine on top
// of the Chrome DevTools Protocol.
package engine

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/beaconlabs/beacon/internal/audit"
	"github.com/beaconlabs/beacon/internal/browser"
)

// Timing holds the navigation timing samples used for performance scoring.
// All values are milliseconds since navigation start.
type Timing struct {
	TTFB             float64 `json:"ttfb_ms"`
	DOMContentLoaded float64 `json:"dom_content_loaded_ms"`
	Load             float64 `json:"load_ms"`
}

const timingScript = `(() => {
	const nav = performance.getEntriesByType('navigation')[0];
	if (nav) {
		return {
			ttfb_ms: nav.responseStart,
			dom_content_loaded_ms: nav.domContentLoadedEventEnd,
			load_ms: nav.loadEventEnd > 0 ? nav.loadEventEnd : nav.domContentLoadedEventEnd,
		};
	}
	const t = performance.timing;
	return {
		ttfb_ms: t.responseStart - t.navigationStart,
		dom_content_loaded_ms: t.domContentLoadedEventEnd - t.navigationStart,
		load_ms: (t.loadEventEnd > 0 ? t.loadEventEnd : t.domContentLoadedEventEnd) - t.navigationStart,
	};
})()`

// CDP audits pages by driving a headless browser tab with the fixed
// emulation profile, then scoring the rendered document.
type CDP struct {
	clock  audit.Clock
	logger *zap.Logger
}

// New constructs the CDP engine.
func New(clock audit.Clock, logger *zap.Logger) *CDP {
	if clock == nil {
		clock = audit.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CDP{clock: clock, logger: logger}
}

// Audit navigates the URL inside the job's browser instance, applies the
// emulation profile, and produces scores plus the two report documents.
func (e *CDP) Audit(ctx context.Context, inst *browser.Instance, url string, profile audit.Profile) (audit.Report, error) {
	tabCtx, cancelTab := chromedp.NewContext(inst.Ctx)
	defer cancelTab()

	// Bound the tab by the caller's deadline and propagate cancellation.
	stop := forwardCancel(ctx, cancelTab)
	defer stop()
	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		tabCtx, cancelDeadline = context.WithDeadline(tabCtx, deadline)
		defer cancelDeadline()
	}

	meta := &documentMeta{}
	chromedp.ListenTarget(tabCtx, meta.captureEvent)

	var (
		html   string
		timing Timing
	)
	tasks := chromedp.Tasks{
		network.Enable(),
		emulation.SetDeviceMetricsOverride(profile.Width, profile.Height, profile.Scale, profile.Mobile),
		network.EmulateNetworkConditions(
			false,
			float64(profile.RTT.Milliseconds()),
			kbpsToBytesPerSecond(profile.ThroughputKbps),
			kbpsToBytesPerSecond(profile.ThroughputKbps),
		),
		emulation.SetCPUThrottlingRate(profile.CPUSlowdown),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": profile.Locale}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Evaluate(timingScript, &timing),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(tabCtx, tasks); err != nil {
		return audit.Report{}, fmt.Errorf("navigate %s: %w", url, err)
	}

	status, finalURL := meta.snapshotWithFallbacks(url)
	page := Page{
		URL:        url,
		FinalURL:   finalURL,
		StatusCode: status,
		HTML:       html,
		Timing:     timing,
		FetchedAt:  e.clock.Now(),
	}

	scores, checks, err := ScoreDocument(page)
	if err != nil {
		return audit.Report{}, fmt.Errorf("score document: %w", err)
	}

	structured, err := buildStructuredDoc(page, scores, checks)
	if err != nil {
		return audit.Report{}, fmt.Errorf("build structured report: %w", err)
	}
	rendered, err := buildRenderedDoc(page, scores, checks)
	if err != nil {
		return audit.Report{}, fmt.Errorf("build rendered report: %w", err)
	}

	e.logger.Debug("page audited",
		zap.String("url", url),
		zap.Int("status", page.StatusCode),
		zap.Float64("load_ms", timing.Load),
	)
	return audit.Report{
		Scores:        scores,
		StructuredDoc: structured,
		RenderedDoc:   rendered,
	}, nil
}

func kbpsToBytesPerSecond(kbps int64) float64 {
	return float64(kbps) * 1024 / 8
}

// documentMeta captures the main document's response metadata from CDP
// network events. Events arrive on chromedp's dispatch goroutine, so every
// access goes through the mutex. Later document responses overwrite earlier
// ones, which keeps the final hop of a redirect chain.
type documentMeta struct {
	mu         sync.RWMutex
	statusCode int
	url        string
}

func (m *documentMeta) captureEvent(ev any) {
	resp, ok := ev.(*network.EventResponseReceived)
	if !ok || resp.Type != network.ResourceTypeDocument || resp.Response == nil {
		return
	}
	m.mu.Lock()
	m.statusCode = int(resp.Response.Status)
	m.url = resp.Response.URL
	m.mu.Unlock()
}

// snapshotWithFallbacks returns the captured status and final URL,
// defaulting to 200 and the requested URL when no document response was
// observed before navigation settled.
func (m *documentMeta) snapshotWithFallbacks(requestURL string) (int, string) {
	m.mu.RLock()
	status, url := m.statusCode, m.url
	m.mu.RUnlock()

	if status == 0 {
		status = http.StatusOK
	}
	if url == "" {
		url = requestURL
	}
	return status, url
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

var _ audit.Engine = (*CDP)(nil)

// Page is the raw material handed to the scorer: the rendered DOM plus
// navigation metadata.
type Page struct {
	URL        string    `json:"url"`
	FinalURL   string    `json:"final_url"`
	StatusCode int       `json:"status_code"`
	HTML       string    `json:"-"`
	Timing     Timing    `json:"timing"`
	FetchedAt  time.Time `json:"fetched_at"`
}
