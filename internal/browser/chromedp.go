// Package browser manages headless Chrome processes for audit jobs. Every
// job gets its own isolated process: one Launch, exactly one Close.
package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Launcher starts a browser process scoped to one audit job.
type Launcher interface {
	Launch(ctx context.Context) (*Instance, error)
}

// Instance is a running browser process. Ctx is the chromedp browser context
// new tabs derive from; Close tears the process down.
type Instance struct {
	Ctx           context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	closed        bool
}

// Close terminates the browser process. Safe to call more than once.
func (i *Instance) Close() {
	if i == nil || i.closed {
		return
	}
	i.closed = true
	if i.browserCancel != nil {
		i.browserCancel()
	}
	if i.allocCancel != nil {
		i.allocCancel()
	}
}

// Closed reports whether Close has been called.
func (i *Instance) Closed() bool {
	return i != nil && i.closed
}

// ChromeLauncher launches headless Chrome via chromedp.
type ChromeLauncher struct {
	logger *zap.Logger
}

// NewChrome builds a ChromeLauncher.
func NewChrome(logger *zap.Logger) *ChromeLauncher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChromeLauncher{logger: logger}
}

// Launch starts a fresh headless Chrome process. The sandbox is disabled so
// the auditor runs inside containers and CI runners.
func (l *ChromeLauncher) Launch(ctx context.Context) (*Instance, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Warm up so a missing Chrome binary surfaces here, not mid-audit.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chrome warmup: %w", err)
	}

	l.logger.Debug("browser process launched")
	return &Instance{
		Ctx:           browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

// Unavailable implements Launcher but always fails, for builds and tests
// where no Chrome binary is present.
type Unavailable struct{}

// Launch returns an error since no browser is available.
func (Unavailable) Launch(context.Context) (*Instance, error) {
	return nil, fmt.Errorf("no browser available in this build")
}
