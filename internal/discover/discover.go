// Package discover runs one selector discovery pass against a carrier
// tracking page: it renders the page in a browser, persists what it saw and
// probes the candidate selectors against the rendered document.
package discover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"carrier-probe/internal/artifacts"
	"carrier-probe/internal/browser"
	"carrier-probe/internal/carriers"
	"carrier-probe/internal/config"
	"carrier-probe/internal/probe"
	"carrier-probe/internal/selectors"
)

// Opener opens a browser session. browser.Open is used unless overridden.
type Opener func(ctx context.Context, opts *browser.Options, logger *slog.Logger) (browser.Session, error)

// Request names what to discover.
type Request struct {
	Target         *carriers.Target
	TrackingNumber string
	// Selectors replaces the target's selector set when non-nil
	Selectors selectors.Set
}

// Run is the outcome of a discovery pass.
type Run struct {
	Target         *carriers.Target
	TrackingNumber string
	URL            string
	Title          string
	HTMLLength     int
	Text           string
	Submitted      bool
	Selectors      selectors.Set
	Outcomes       []probe.Outcome
	Report         *artifacts.Report
}

// Results returns the matched selectors in probe order.
func (r *Run) Results() []probe.Result {
	return probe.Matched(r.Outcomes)
}

// Runner performs discovery runs.
type Runner struct {
	cfg      *config.Config
	logger   *slog.Logger
	open     Opener
	progress func(step string)
}

// Option configures a Runner.
type Option func(*Runner)

// WithOpener replaces how browser sessions are opened.
func WithOpener(open Opener) Option {
	return func(r *Runner) {
		r.open = open
	}
}

// WithProgress registers a callback for human-readable step descriptions.
func WithProgress(fn func(step string)) Option {
	return func(r *Runner) {
		r.progress = fn
	}
}

// NewRunner creates a runner
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		cfg:    cfg,
		logger: logger,
		open:   browser.Open,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runner) step(format string, args ...any) {
	if r.progress != nil {
		r.progress(fmt.Sprintf(format, args...))
	}
}

// Run renders the target page, saves the artifacts and probes the selectors.
// Failures before the page is captured abort the run. Screenshot, text and
// markdown failures are logged and skipped. A page that becomes unavailable
// during the probe aborts the run with probe.ErrPageUnavailable.
func (r *Runner) Run(ctx context.Context, req Request) (*Run, error) {
	target := req.Target
	if target == nil {
		return nil, fmt.Errorf("no carrier target given")
	}

	tracking := strings.TrimSpace(req.TrackingNumber)
	if tracking == "" {
		tracking = carriers.DefaultTrackingNumber
	}
	pageURL, err := target.URL(tracking)
	if err != nil {
		return nil, err
	}
	if !target.RecognizesTrackingNumber(tracking) {
		r.logger.Warn("Tracking number does not match a known format for carrier, probing anyway",
			"carrier", target.Name,
			"tracking_number", tracking)
	}

	set := target.Selectors
	if req.Selectors != nil {
		set = req.Selectors
	}

	run := &Run{
		Target:         target,
		TrackingNumber: tracking,
		URL:            pageURL,
		Selectors:      set,
		Report:         artifacts.NewReport(target.Name, tracking, pageURL),
	}

	writer, err := artifacts.NewWriter(r.cfg.OutputDir(), target.Name)
	if err != nil {
		return nil, err
	}

	opts := r.cfg.BrowserOptions(target.Stealth, !target.Headful)
	run.Report.Driver = string(opts.Driver)
	run.Report.Stealth = opts.Stealth

	logger := r.logger.With("carrier", target.Name, "run_id", run.Report.RunID)
	logger.Info("Starting discovery run",
		"url", pageURL,
		"driver", opts.Driver,
		"stealth", opts.Stealth,
		"headless", opts.Headless,
		"selectors", len(set))

	r.step("Launching %s", opts.Driver)
	session, err := r.open(ctx, opts, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug("Failed to close browser session", "error", err)
		}
	}()

	if err := r.render(ctx, session, target, run, logger); err != nil {
		return nil, err
	}
	if err := r.capture(ctx, session, writer, run, logger); err != nil {
		return nil, err
	}

	r.step("Probing %d selectors", len(set))
	outcomes, err := probe.Inspect(session.Page(), set.Selectors(), r.cfg.ProbeOptions(target.Preview))
	if err != nil {
		return nil, fmt.Errorf("selector probe aborted: %w", err)
	}
	run.Outcomes = outcomes
	logOutcomes(logger, outcomes)

	run.Report.AddOutcomes(outcomes)
	if _, err := writer.WriteReport(run.Report); err != nil {
		return nil, err
	}

	logger.Info("Discovery run complete",
		"matched", len(run.Report.Results),
		"unmatched", len(run.Report.Unmatched),
		"failed", len(run.Report.Failed),
		"duration", run.Report.FinishedAt.Sub(run.Report.StartedAt).Round(time.Millisecond))
	return run, nil
}

// render navigates and waits until the page is in the state to capture.
func (r *Runner) render(ctx context.Context, session browser.Session, target *carriers.Target, run *Run, logger *slog.Logger) error {
	r.step("Loading %s", run.URL)
	if err := session.Navigate(ctx, run.URL); err != nil {
		return fmt.Errorf("failed to load tracking page: %w", err)
	}

	settle := r.cfg.SettleOr(target.Settle)
	r.step("Waiting %s for the page to render", settle)
	if err := session.Settle(ctx, settle); err != nil {
		return err
	}

	if target.SubmitSelector != "" {
		clicked, err := session.Submit(ctx, target.SubmitSelector)
		switch {
		case err != nil:
			logger.Warn("Failed to click submit control, continuing", "selector", target.SubmitSelector, "error", err)
		case clicked:
			logger.Info("Clicked submit control", "selector", target.SubmitSelector)
			run.Submitted = true
			run.Report.Submitted = true
			r.step("Waiting %s after submitting", target.SubmitSettle)
			if err := session.Settle(ctx, target.SubmitSettle); err != nil {
				return err
			}
		default:
			logger.Debug("No submit control found", "selector", target.SubmitSelector)
		}
	}

	if target.FinalSettle > 0 {
		r.step("Waiting %s for late content", target.FinalSettle)
		if err := session.Settle(ctx, target.FinalSettle); err != nil {
			return err
		}
	}
	return nil
}

// capture saves the rendered page. Only the markup is required.
func (r *Runner) capture(ctx context.Context, session browser.Session, writer *artifacts.Writer, run *Run, logger *slog.Logger) error {
	r.step("Saving rendered page")
	markup, err := session.Markup(ctx)
	if err != nil {
		return fmt.Errorf("failed to read rendered page: %w", err)
	}
	run.HTMLLength = len(markup)
	run.Report.HTMLLength = run.HTMLLength
	if _, err := writer.WriteMarkup(markup); err != nil {
		return err
	}

	if r.cfg.Output.Screenshot {
		if png, err := session.Screenshot(ctx); err != nil {
			logger.Warn("Failed to capture screenshot", "error", err)
		} else if _, err := writer.WriteScreenshot(png); err != nil {
			logger.Warn("Failed to save screenshot", "error", err)
		}
	}

	if run.Title, err = session.Title(ctx); err != nil {
		logger.Warn("Failed to read page title", "error", err)
	}
	run.Report.Title = run.Title

	if run.Text, err = session.VisibleText(ctx, "body"); err != nil {
		logger.Warn("Failed to read visible text", "error", err)
	} else if _, err := writer.WriteText(run.Text); err != nil {
		logger.Warn("Failed to save visible text", "error", err)
	}

	if r.cfg.Output.Markdown {
		if _, err := writer.WriteMarkdown(markup, run.URL); err != nil {
			logger.Warn("Failed to save markdown rendering", "error", err)
		}
	}
	return nil
}

// logOutcomes records why selectors produced nothing. These failures are
// expected while exploring and only logged at debug level.
func logOutcomes(logger *slog.Logger, outcomes []probe.Outcome) {
	for _, o := range outcomes {
		switch o.Status {
		case probe.StatusFailed:
			logger.Debug("Selector evaluation failed", "selector", o.Selector, "error", o.Err)
		case probe.StatusEmpty:
			logger.Debug("Selector matched nothing", "selector", o.Selector)
		}
		for _, err := range o.ElementErrors {
			var readErr *probe.ElementReadError
			if errors.As(err, &readErr) {
				logger.Debug("Element text unreadable", "selector", o.Selector, "index", readErr.Index, "error", readErr.Err)
			}
		}
	}
}
