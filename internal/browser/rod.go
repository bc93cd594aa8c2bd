package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"carrier-probe/internal/probe"
)

// rodSession drives one Chrome tab through go-rod.
type rodSession struct {
	opts     *Options
	logger   *slog.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	closed   atomic.Bool
}

func openRod(ctx context.Context, opts *Options, logger *slog.Logger) (*rodSession, error) {
	l := newLauncher(opts)

	controlURL, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, &Error{Driver: DriverRod, Op: "launch", Err: err}
	}
	logger.Debug("Browser launched", "driver", DriverRod, "control_url", controlURL)

	s := &rodSession{opts: opts, logger: logger, launcher: l}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		s.Close()
		return nil, &Error{Driver: DriverRod, Op: "connect", Err: err}
	}
	s.browser = browser

	if opts.Stealth {
		s.page, err = stealth.Page(s.browser)
	} else {
		s.page, err = s.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		s.Close()
		return nil, &Error{Driver: DriverRod, Op: "open page", Err: err}
	}

	if err := s.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent:      opts.UserAgent,
		AcceptLanguage: opts.Locale,
	}); err != nil {
		s.Close()
		return nil, &Error{Driver: DriverRod, Op: "set user agent", Err: err}
	}

	if err := s.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.ViewportWidth,
		Height:            opts.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		s.Close()
		return nil, &Error{Driver: DriverRod, Op: "set viewport", Err: err}
	}

	return s, nil
}

func newLauncher(opts *Options) *launcher.Launcher {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true).
		Set(flags.Flag("window-size"), fmt.Sprintf("%d,%d", opts.ViewportWidth, opts.ViewportHeight))

	if opts.ExecPath != "" {
		l = l.Bin(opts.ExecPath)
	}
	if opts.Locale != "" {
		l = l.Set(flags.Flag("lang"), opts.Locale)
	}
	if opts.DisableImages {
		l = l.Set(flags.Flag("blink-settings"), "imagesEnabled=false")
	}
	if opts.Stealth {
		l = l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l = l.Delete(flags.Flag("enable-automation"))
	}
	return l
}

// bound returns the page bound to an operation context.
func (s *rodSession) bound(ctx context.Context, timeout time.Duration) (*rod.Page, context.CancelFunc, error) {
	if s.closed.Load() {
		return nil, nil, probe.ErrPageUnavailable
	}
	opCtx, cancel := boundContext(context.Background(), ctx, timeout)
	return s.page.Context(opCtx), cancel, nil
}

func (s *rodSession) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Driver: DriverRod, Op: op, Err: err}
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p, cancel, err := s.bound(ctx, s.opts.NavigationTimeout)
	if err != nil {
		return s.wrap("navigate", err)
	}
	defer cancel()

	// The idle waiter must be registered before navigating or it can miss
	// the event entirely.
	var waitIdle func()
	if s.opts.Wait == WaitNetworkIdle {
		waitIdle = p.WaitNavigation(proto.PageLifecycleEventNameNetworkIdle)
	}

	if err := p.Navigate(url); err != nil {
		return &Error{Driver: DriverRod, Op: "navigate", URL: url, Err: err}
	}

	if waitIdle != nil {
		waitIdle()
		if errors.Is(p.GetContext().Err(), context.DeadlineExceeded) {
			s.logger.Warn("Network idle not reached before timeout, continuing with current document",
				"url", url)
		}
		return nil
	}

	if err := p.WaitLoad(); err != nil {
		return &Error{Driver: DriverRod, Op: "wait load", URL: url, Err: err}
	}
	if s.opts.Wait == WaitFixedDelay {
		return s.Settle(ctx, s.opts.FixedDelay)
	}
	return nil
}

func (s *rodSession) Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if s.closed.Load() {
		return s.wrap("settle", probe.ErrPageUnavailable)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return s.wrap("settle", ctx.Err())
	}
}

func (s *rodSession) Submit(ctx context.Context, selector string) (bool, error) {
	p, cancel, err := s.bound(ctx, s.opts.QueryTimeout)
	if err != nil {
		return false, s.wrap("submit", err)
	}
	defer cancel()

	has, el, err := p.Has(selector)
	if err != nil || !has {
		return false, s.wrap("submit", err)
	}

	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		// Covered or zero-sized buttons can still be clicked from script.
		if _, jsErr := el.Eval(`() => this.click()`); jsErr != nil {
			return false, s.wrap("submit", err)
		}
	}
	return true, nil
}

func (s *rodSession) Markup(ctx context.Context) (string, error) {
	p, cancel, err := s.bound(ctx, s.opts.QueryTimeout)
	if err != nil {
		return "", s.wrap("markup", err)
	}
	defer cancel()

	html, err := p.HTML()
	return html, s.wrap("markup", err)
}

func (s *rodSession) Title(ctx context.Context) (string, error) {
	p, cancel, err := s.bound(ctx, s.opts.QueryTimeout)
	if err != nil {
		return "", s.wrap("title", err)
	}
	defer cancel()

	res, err := p.Eval(`() => document.title`)
	if err != nil {
		return "", s.wrap("title", err)
	}
	return res.Value.Str(), nil
}

func (s *rodSession) VisibleText(ctx context.Context, scope string) (string, error) {
	p, cancel, err := s.bound(ctx, s.opts.QueryTimeout)
	if err != nil {
		return "", s.wrap("visible text", err)
	}
	defer cancel()

	res, err := p.Eval(`sel => { const el = document.querySelector(sel); return el ? el.innerText : ""; }`, scope)
	if err != nil {
		return "", s.wrap("visible text", err)
	}
	return res.Value.Str(), nil
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	p, cancel, err := s.bound(ctx, s.opts.NavigationTimeout)
	if err != nil {
		return nil, s.wrap("screenshot", err)
	}
	defer cancel()

	buf, err := p.Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	return buf, s.wrap("screenshot", err)
}

func (s *rodSession) Page() probe.Page {
	return &rodPage{session: s}
}

func (s *rodSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}

	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	return s.wrap("close", err)
}

// rodPage answers probe queries through rod's non-waiting Elements lookup.
type rodPage struct {
	session *rodSession
}

func (p *rodPage) Alive() error {
	page, cancel, err := p.session.bound(context.Background(), p.session.opts.QueryTimeout)
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := page.Eval(`() => document.readyState`); err != nil {
		return probe.Unavailable(err)
	}
	return nil
}

func (p *rodPage) QueryAll(selector string) ([]probe.Element, error) {
	page, cancel, err := p.session.bound(context.Background(), p.session.opts.QueryTimeout)
	if err != nil {
		return nil, err
	}
	defer cancel()

	found, err := page.Elements(selector)
	if err != nil {
		// Distinguish a rejected selector from a page that went away.
		if aliveErr := p.Alive(); aliveErr != nil {
			return nil, aliveErr
		}
		return nil, err
	}

	elements := make([]probe.Element, len(found))
	for i, el := range found {
		elements[i] = &rodElement{session: p.session, el: el}
	}
	return elements, nil
}

type rodElement struct {
	session *rodSession
	el      *rod.Element
}

func (e *rodElement) VisibleText() (string, error) {
	if e.session.closed.Load() {
		return "", probe.ErrPageUnavailable
	}
	ctx, cancel := context.WithTimeout(context.Background(), e.session.opts.QueryTimeout)
	defer cancel()

	return e.el.Context(ctx).Text()
}
