package browser

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"carrier-probe/internal/probe"
)

// ErrNotSupported is returned for operations a driver cannot perform.
var ErrNotSupported = errors.New("not supported by this driver")

// maxDocumentSize caps how much of a response the http driver parses.
const maxDocumentSize = 32 << 20

// httpSession fetches pages with a plain HTTP client and probes the parsed
// document. Scripts never run, so it only sees server-rendered markup and
// cannot click or take screenshots.
type httpSession struct {
	opts   *Options
	logger *slog.Logger
	client *http.Client
	page   *StaticPage
}

func openHTTP(opts *Options, logger *slog.Logger) *httpSession {
	if opts.Stealth {
		logger.Debug("Stealth has no effect without a browser", "driver", DriverHTTP)
	}
	return &httpSession{
		opts:   opts,
		logger: logger,
		client: &http.Client{Timeout: opts.NavigationTimeout},
		page:   &StaticPage{},
	}
}

func (s *httpSession) Navigate(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &Error{Driver: DriverHTTP, Op: "navigate", URL: url, Err: err}
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if s.opts.Locale != "" {
		req.Header.Set("Accept-Language", s.opts.Locale)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return &Error{Driver: DriverHTTP, Op: "navigate", URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		// A browser renders error pages too; they are probed like any other.
		s.logger.Warn("Tracking page returned an error status", "url", url, "status", resp.StatusCode)
	}

	page, err := NewStaticPage(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return &Error{Driver: DriverHTTP, Op: "navigate", URL: url, Err: err}
	}
	s.page.doc = page.doc

	s.logger.Debug("Fetched page",
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Settle returns at once: nothing changes a fetched document.
func (s *httpSession) Settle(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// Submit reports whether selector matches, but never clicks.
func (s *httpSession) Submit(ctx context.Context, selector string) (bool, error) {
	elements, err := s.page.QueryAll(selector)
	if err != nil {
		return false, &Error{Driver: DriverHTTP, Op: "submit", Err: err}
	}
	if len(elements) > 0 {
		s.logger.Debug("Submit control found but cannot be clicked without a browser", "selector", selector)
	}
	return false, nil
}

func (s *httpSession) Markup(ctx context.Context) (string, error) {
	markup, err := s.page.Markup()
	if err != nil {
		return "", &Error{Driver: DriverHTTP, Op: "markup", Err: err}
	}
	return markup, nil
}

func (s *httpSession) Title(ctx context.Context) (string, error) {
	if err := s.page.Alive(); err != nil {
		return "", &Error{Driver: DriverHTTP, Op: "title", Err: err}
	}
	return s.page.Title(), nil
}

func (s *httpSession) VisibleText(ctx context.Context, scope string) (string, error) {
	text, err := s.page.VisibleText(scope)
	if err != nil {
		return "", &Error{Driver: DriverHTTP, Op: "text", Err: err}
	}
	return text, nil
}

func (s *httpSession) Screenshot(ctx context.Context) ([]byte, error) {
	return nil, &Error{Driver: DriverHTTP, Op: "screenshot", Err: ErrNotSupported}
}

func (s *httpSession) Page() probe.Page {
	return s.page
}

func (s *httpSession) Close() error {
	s.page.Close()
	s.client.CloseIdleConnections()
	return nil
}

var _ Session = (*httpSession)(nil)
