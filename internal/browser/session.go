// Package browser opens a single controllable page in a real browser and
// exposes it both to the discovery harness (navigation, waits, snapshots)
// and to the selector probe (as a probe.Page).
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"carrier-probe/internal/probe"
)

// Session is one browser with one open page. It is owned by a single
// goroutine; none of its methods are safe for concurrent use.
type Session interface {
	// Navigate loads url and waits according to the session's wait policy.
	Navigate(ctx context.Context, url string) error
	// Settle waits for a fixed duration to let client-side rendering finish.
	Settle(ctx context.Context, d time.Duration) error
	// Submit clicks the first element matching selector. It reports false
	// without error when nothing matches.
	Submit(ctx context.Context, selector string) (bool, error)
	// Markup returns the serialized document.
	Markup(ctx context.Context) (string, error)
	// Title returns the document title.
	Title(ctx context.Context) (string, error)
	// VisibleText returns the rendered text of the first element matching scope.
	VisibleText(ctx context.Context, scope string) (string, error)
	// Screenshot captures the full page as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
	// Page returns the probe view of the current document.
	Page() probe.Page
	// Close shuts the browser down. The Page reports probe.ErrPageUnavailable afterwards.
	Close() error
}

// Error carries the driver and operation that failed
type Error struct {
	Driver Driver `json:"driver"`
	Op     string `json:"op"`
	URL    string `json:"url,omitempty"`
	Err    error  `json:"-"`
}

func (e *Error) Error() string {
	msg := string(e.Driver) + ": " + e.Op
	if e.URL != "" {
		msg += " " + e.URL
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Open launches a browser with the given options and opens a blank page.
func Open(ctx context.Context, opts *Options, logger *slog.Logger) (Session, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid browser options: %w", err)
	}

	resolved := *opts
	resolved.Driver, _ = ParseDriver(string(opts.Driver))
	resolved.Wait, _ = ParseWaitPolicy(string(opts.Wait))
	if resolved.QueryTimeout <= 0 {
		resolved.QueryTimeout = DefaultOptions().QueryTimeout
	}

	logger.Debug("Opening browser session",
		"driver", resolved.Driver,
		"headless", resolved.Headless,
		"stealth", resolved.Stealth,
		"wait", resolved.Wait)

	switch resolved.Driver {
	case DriverRod:
		return openRod(ctx, &resolved, logger)
	case DriverHTTP:
		return openHTTP(&resolved, logger), nil
	default:
		return openChromedp(ctx, &resolved, logger)
	}
}

// boundContext derives an operation context from base that is also cancelled
// when ctx is, and that expires after timeout or at ctx's deadline, whichever
// comes first. A non-positive timeout leaves only ctx's deadline.
func boundContext(base, ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var opCtx context.Context
	var cancel context.CancelFunc

	deadline, hasDeadline := ctx.Deadline()
	switch {
	case hasDeadline && (timeout <= 0 || time.Until(deadline) < timeout):
		opCtx, cancel = context.WithDeadline(base, deadline)
	case timeout > 0:
		opCtx, cancel = context.WithTimeout(base, timeout)
	default:
		opCtx, cancel = context.WithCancel(base)
	}

	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}
