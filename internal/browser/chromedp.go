package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/go-rod/stealth"

	"carrier-probe/internal/probe"
)

// ValidateChromeAvailable checks if Chrome/Chromium is available and working
func ValidateChromeAvailable(ctx context.Context) error {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(),
		chromedp.Headless,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	testCtx, testCancel := boundContext(browserCtx, ctx, 10*time.Second)
	defer testCancel()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		return fmt.Errorf("Chrome/Chromium not available or not working: %w", err)
	}
	return nil
}

// chromedpSession drives one Chrome tab through chromedp.
type chromedpSession struct {
	opts        *Options
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	closed      atomic.Bool
}

func openChromedp(ctx context.Context, opts *Options, logger *slog.Logger) (*chromedpSession, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(opts)...)

	var ctxOpts []chromedp.ContextOption
	if opts.DebugMode {
		ctxOpts = append(ctxOpts, chromedp.WithDebugf(func(format string, args ...any) {
			logger.Debug(fmt.Sprintf(format, args...), "driver", DriverChromedp)
		}))
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx, ctxOpts...)

	s := &chromedpSession{
		opts:        opts,
		logger:      logger,
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
	}

	// The first Run starts the browser and must use the tab context itself;
	// a derived timeout context would tear the browser down when it expires.
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(browserCtx, s.setupTasks())
	}()

	select {
	case err := <-done:
		if err != nil {
			s.Close()
			return nil, &Error{Driver: DriverChromedp, Op: "launch", Err: err}
		}
	case <-ctx.Done():
		s.Close()
		return nil, &Error{Driver: DriverChromedp, Op: "launch", Err: ctx.Err()}
	}

	return s, nil
}

// setupTasks prepares the blank tab before any navigation happens.
func (s *chromedpSession) setupTasks() chromedp.Tasks {
	tasks := chromedp.Tasks{
		chromedp.Navigate("about:blank"),
	}

	if s.opts.Locale != "" {
		tasks = append(tasks, emulation.SetLocaleOverride().WithLocale(s.opts.Locale))
	}

	if s.opts.Stealth {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(stealth.JS).Do(ctx)
			return err
		}))
	}

	return tasks
}

// allocatorOptions builds Chrome allocator options based on configuration
func allocatorOptions(opts *Options) []chromedp.ExecAllocatorOption {
	allocOpts := []chromedp.ExecAllocatorOption{
		chromedp.UserAgent(opts.UserAgent),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
		chromedp.NoSandbox, // Often needed in containerized environments
		chromedp.DisableGPU,
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
	}

	if opts.Headless {
		allocOpts = append(allocOpts, chromedp.Headless)
	}

	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	if opts.Locale != "" {
		allocOpts = append(allocOpts, chromedp.Flag("lang", opts.Locale))
	}

	if opts.DisableImages {
		allocOpts = append(allocOpts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	if opts.Stealth {
		allocOpts = append(allocOpts,
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.Flag("enable-automation", false),
		)
	}

	if opts.DebugMode {
		allocOpts = append(allocOpts,
			chromedp.Flag("enable-logging", true),
			chromedp.Flag("log-level", "0"),
		)
	}

	// Keep timers running in headful windows that lose focus
	allocOpts = append(allocOpts,
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	)

	return allocOpts
}

func (s *chromedpSession) run(ctx context.Context, timeout time.Duration, op string, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return &Error{Driver: DriverChromedp, Op: op, Err: probe.ErrPageUnavailable}
	}
	runCtx, cancel := boundContext(s.ctx, ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return &Error{Driver: DriverChromedp, Op: op, Err: err}
	}
	return nil
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	var action chromedp.Action = chromedp.Navigate(url)
	if s.opts.Wait == WaitNetworkIdle {
		action = s.navigateNetworkIdle(url)
	}

	if err := s.run(ctx, s.opts.NavigationTimeout, "navigate", action); err != nil {
		var browserErr *Error
		if errors.As(err, &browserErr) {
			browserErr.URL = url
		}
		return err
	}

	if s.opts.Wait == WaitFixedDelay {
		return s.Settle(ctx, s.opts.FixedDelay)
	}
	return nil
}

// navigateNetworkIdle navigates and then waits for the networkIdle lifecycle
// event of the new document. If the event does not arrive before the
// deadline the page is used as it is.
func (s *chromedpSession) navigateNetworkIdle(url string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := page.SetLifecycleEventsEnabled(true).Do(ctx); err != nil {
			return err
		}

		idle := make(chan struct{})
		var once sync.Once
		var started atomic.Bool

		listenCtx, stopListening := context.WithCancel(ctx)
		defer stopListening()

		// Lifecycle events for the previous document can still arrive, so
		// only count networkIdle after the new document's init event.
		chromedp.ListenTarget(listenCtx, func(ev any) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok {
				return
			}
			switch e.Name {
			case "init":
				started.Store(true)
			case "networkIdle":
				if started.Load() {
					once.Do(func() { close(idle) })
				}
			}
		})

		if err := chromedp.Navigate(url).Do(ctx); err != nil {
			return err
		}

		select {
		case <-idle:
			return nil
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.logger.Warn("Network idle not reached before timeout, continuing with current document",
					"url", url)
				return nil
			}
			return ctx.Err()
		}
	}
}

func (s *chromedpSession) Settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return s.run(ctx, 0, "settle", chromedp.Sleep(d))
}

func (s *chromedpSession) Submit(ctx context.Context, selector string) (bool, error) {
	clicked := false
	err := s.run(ctx, s.opts.QueryTimeout, "submit", chromedp.ActionFunc(func(ctx context.Context) error {
		root, err := dom.GetDocument().WithDepth(0).Do(ctx)
		if err != nil {
			return err
		}
		nodeID, err := dom.QuerySelector(root.NodeID, selector).Do(ctx)
		if err != nil || nodeID == 0 {
			return err
		}
		if _, err := callOnNode(ctx, nodeID, `function() { this.click(); }`); err != nil {
			return err
		}
		clicked = true
		return nil
	}))
	return clicked, err
}

func (s *chromedpSession) Markup(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, s.opts.QueryTimeout, "markup", chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromedpSession) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, s.opts.QueryTimeout, "title", chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

func (s *chromedpSession) VisibleText(ctx context.Context, scope string) (string, error) {
	arg, err := json.Marshal(scope)
	if err != nil {
		return "", err
	}
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return el ? el.innerText : ""; })()`, arg)

	var text string
	if err := s.run(ctx, s.opts.QueryTimeout, "visible text", chromedp.Evaluate(script, &text)); err != nil {
		return "", err
	}
	return text, nil
}

func (s *chromedpSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	// quality 100 makes chromedp capture PNG instead of JPEG
	if err := s.run(ctx, s.opts.NavigationTimeout, "screenshot", chromedp.FullScreenshot(&buf, 100)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *chromedpSession) Page() probe.Page {
	return &chromedpPage{session: s}
}

// Close cleanly shuts down the browser
func (s *chromedpSession) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}

// chromedpPage answers probe queries with DOM.querySelectorAll, which fails
// immediately on an invalid selector instead of polling like chromedp's
// query actions do.
type chromedpPage struct {
	session *chromedpSession
}

func (p *chromedpPage) Alive() error {
	_, err := p.document()
	return err
}

// document fetches the root node, reporting any failure as the page being gone.
func (p *chromedpPage) document() (*cdp.Node, error) {
	s := p.session
	if s.closed.Load() || s.ctx.Err() != nil {
		return nil, probe.ErrPageUnavailable
	}

	var root *cdp.Node
	err := s.run(context.Background(), s.opts.QueryTimeout, "document", chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		root, err = dom.GetDocument().WithDepth(0).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, probe.Unavailable(err)
	}
	return root, nil
}

func (p *chromedpPage) QueryAll(selector string) ([]probe.Element, error) {
	root, err := p.document()
	if err != nil {
		return nil, err
	}

	var ids []cdp.NodeID
	err = p.session.run(context.Background(), p.session.opts.QueryTimeout, "query", chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		ids, err = dom.QuerySelectorAll(root.NodeID, selector).Do(ctx)
		return err
	}))
	if err != nil {
		if p.session.ctx.Err() != nil {
			return nil, probe.Unavailable(err)
		}
		return nil, err
	}

	elements := make([]probe.Element, len(ids))
	for i, id := range ids {
		elements[i] = &chromedpElement{session: p.session, id: id}
	}
	return elements, nil
}

type chromedpElement struct {
	session *chromedpSession
	id      cdp.NodeID
}

func (e *chromedpElement) VisibleText() (string, error) {
	var text string
	err := e.session.run(context.Background(), e.session.opts.QueryTimeout, "element text", chromedp.ActionFunc(func(ctx context.Context) error {
		res, err := callOnNode(ctx, e.id, `function() { return this.innerText; }`)
		if err != nil {
			return err
		}
		if res == nil || len(res.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(res.Value), &text)
	}))
	if err != nil && e.session.ctx.Err() != nil {
		return "", probe.Unavailable(err)
	}
	return text, err
}

// callOnNode resolves nodeID to a remote object and calls fn with it bound
// to this, returning the result by value.
func callOnNode(ctx context.Context, nodeID cdp.NodeID, fn string) (*runtime.RemoteObject, error) {
	obj, err := dom.ResolveNode().WithNodeID(nodeID).Do(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = runtime.ReleaseObject(obj.ObjectID).Do(ctx)
	}()

	res, exception, err := runtime.CallFunctionOn(fn).
		WithObjectID(obj.ObjectID).
		WithReturnByValue(true).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if exception != nil {
		return nil, fmt.Errorf("javascript exception: %s", exception.Text)
	}
	return res, nil
}
