package browser

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Driver selects the browser automation library.
type Driver string

const (
	// DriverChromedp drives Chrome through chromedp.
	DriverChromedp Driver = "chromedp"
	// DriverRod drives Chrome through go-rod.
	DriverRod Driver = "rod"
	// DriverHTTP fetches pages without a browser. Scripts do not run.
	DriverHTTP Driver = "http"
)

// Engine selects the browser engine.
type Engine string

const (
	EngineChromium Engine = "chromium"
	EngineFirefox  Engine = "firefox"
)

// WaitPolicy defines how navigation decides the page has loaded.
type WaitPolicy string

const (
	// WaitNetworkIdle waits for the page lifecycle to report network idle.
	WaitNetworkIdle WaitPolicy = "networkidle"
	// WaitFixedDelay waits for the load event and then a fixed delay.
	WaitFixedDelay WaitPolicy = "fixed-delay"
	// WaitLoad waits for the load event only.
	WaitLoad WaitPolicy = "load"
)

var (
	// ErrUnknownDriver is returned for a driver name that is not registered.
	ErrUnknownDriver = errors.New("unknown browser driver")
	// ErrUnsupportedEngine is returned when the selected driver cannot run the engine.
	ErrUnsupportedEngine = errors.New("unsupported browser engine")
)

// ParseDriver converts a configuration value into a Driver.
func ParseDriver(s string) (Driver, error) {
	switch d := Driver(strings.ToLower(strings.TrimSpace(s))); d {
	case DriverChromedp, DriverRod, DriverHTTP:
		return d, nil
	case "":
		return DriverChromedp, nil
	}
	return "", fmt.Errorf("%w: %q (must be one of: chromedp, rod, http)", ErrUnknownDriver, s)
}

// ParseEngine converts a configuration value into an Engine.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(strings.TrimSpace(s))); e {
	case EngineChromium, EngineFirefox:
		return e, nil
	case "", "chrome":
		return EngineChromium, nil
	}
	return "", fmt.Errorf("%w: %q (must be one of: chromium, firefox)", ErrUnsupportedEngine, s)
}

// ParseWaitPolicy converts a configuration value into a WaitPolicy.
func ParseWaitPolicy(s string) (WaitPolicy, error) {
	switch w := WaitPolicy(strings.ToLower(strings.TrimSpace(s))); w {
	case WaitNetworkIdle, WaitFixedDelay, WaitLoad:
		return w, nil
	case "":
		return WaitNetworkIdle, nil
	}
	return "", fmt.Errorf("invalid wait policy %q (must be one of: networkidle, fixed-delay, load)", s)
}

// Options contains configuration for one browser session.
type Options struct {
	// Driver selects chromedp, rod or the browserless http fetcher
	Driver Driver
	// Engine is the browser engine; both drivers speak CDP and only run chromium
	Engine Engine
	// Stealth masks common automation fingerprints
	Stealth bool
	// Headless controls whether to run browser in headless mode
	Headless bool
	// Wait defines how navigation waits for the page
	Wait WaitPolicy
	// FixedDelay is the extra wait used by WaitFixedDelay
	FixedDelay time.Duration
	// NavigationTimeout bounds navigation including the wait policy
	NavigationTimeout time.Duration
	// QueryTimeout bounds each DOM query issued on behalf of the probe
	QueryTimeout time.Duration
	// DisableImages stops image loading
	DisableImages bool
	// UserAgent to use for requests
	UserAgent string
	// Locale sets the browser locale and Accept-Language
	Locale string
	// ViewportWidth sets browser viewport width
	ViewportWidth int
	// ViewportHeight sets browser viewport height
	ViewportHeight int
	// ExecPath overrides the browser binary
	ExecPath string
	// DebugMode enables browser logging
	DebugMode bool
}

// DefaultUserAgent is the desktop Chrome user agent used by the discovery runs.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultOptions returns sensible defaults for a discovery session
func DefaultOptions() *Options {
	return &Options{
		Driver:            DriverChromedp,
		Engine:            EngineChromium,
		Stealth:           false,
		Headless:          true,
		Wait:              WaitNetworkIdle,
		FixedDelay:        3 * time.Second,
		NavigationTimeout: 60 * time.Second,
		QueryTimeout:      10 * time.Second,
		DisableImages:     false,
		UserAgent:         DefaultUserAgent,
		Locale:            "en-US",
		ViewportWidth:     1920,
		ViewportHeight:    1080,
	}
}

// Validate checks the options for values the drivers cannot honour.
func (o *Options) Validate() error {
	if _, err := ParseDriver(string(o.Driver)); err != nil {
		return err
	}
	if _, err := ParseWaitPolicy(string(o.Wait)); err != nil {
		return err
	}
	engine, err := ParseEngine(string(o.Engine))
	if err != nil {
		return err
	}
	if engine != EngineChromium {
		return fmt.Errorf("%w: %s cannot be driven by %s, which only controls chromium over CDP",
			ErrUnsupportedEngine, engine, o.Driver)
	}
	if o.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be positive")
	}
	if o.ViewportWidth <= 0 || o.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive, got %dx%d", o.ViewportWidth, o.ViewportHeight)
	}
	if o.FixedDelay < 0 {
		return fmt.Errorf("fixed delay must not be negative")
	}
	return nil
}
