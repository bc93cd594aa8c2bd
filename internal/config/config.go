// Package config loads carrier-probe settings from defaults, an optional
// config file, CARRIER_PROBE_* environment variables and command flags.
//
// Settings that a carrier target also defines (stealth, headless, settle and
// the preview bounds) have no defaults here: they are nil unless explicitly
// set, so the carrier's own values apply otherwise.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"carrier-probe/internal/browser"
	"carrier-probe/internal/probe"
)

// Config holds all application configuration
type Config struct {
	Browser BrowserConfig
	Probe   ProbeConfig
	Output  OutputConfig

	// Logging
	LogLevel string
	NoColor  bool

	// ConfigFile is the file that was read, if any
	ConfigFile string
}

// BrowserConfig holds browser session settings.
type BrowserConfig struct {
	Driver            browser.Driver
	Engine            browser.Engine
	Wait              browser.WaitPolicy
	Stealth           *bool
	Headless          *bool
	Settle            *time.Duration
	NavigationTimeout time.Duration
	UserAgent         string
	Locale            string
	ViewportWidth     int
	ViewportHeight    int
	DisableImages     bool
	ExecPath          string
}

// ProbeConfig holds selector probe settings.
type ProbeConfig struct {
	PreviewLimit *int
	PreviewCount *int
	Verbose      bool
}

// OutputConfig holds artifact and console output settings.
type OutputConfig struct {
	Dir        string
	Screenshot bool
	Markdown   bool
	TextChars  int
	Format     string
}

// Output formats
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// BrowserOptions returns browser options from the configuration. Stealth and
// headless fall back to the given carrier defaults unless set explicitly.
func (c *Config) BrowserOptions(stealth, headless bool) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Driver = c.Browser.Driver
	opts.Engine = c.Browser.Engine
	opts.Wait = c.Browser.Wait
	opts.Stealth = boolOr(c.Browser.Stealth, stealth)
	opts.Headless = boolOr(c.Browser.Headless, headless)
	opts.NavigationTimeout = c.Browser.NavigationTimeout
	opts.UserAgent = c.Browser.UserAgent
	opts.Locale = c.Browser.Locale
	opts.ViewportWidth = c.Browser.ViewportWidth
	opts.ViewportHeight = c.Browser.ViewportHeight
	opts.DisableImages = c.Browser.DisableImages
	opts.ExecPath = c.Browser.ExecPath
	opts.DebugMode = strings.EqualFold(c.LogLevel, "debug")
	return opts
}

// SettleOr returns the configured settle time, or d when none is set.
func (c *Config) SettleOr(d time.Duration) time.Duration {
	if c.Browser.Settle != nil {
		return *c.Browser.Settle
	}
	return d
}

// ProbeOptions overlays explicitly set preview bounds on base.
func (c *Config) ProbeOptions(base probe.Options) probe.Options {
	if c.Probe.PreviewLimit != nil {
		base.PreviewLimit = *c.Probe.PreviewLimit
	}
	if c.Probe.PreviewCount != nil {
		base.PreviewCount = *c.Probe.PreviewCount
	}
	return base
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// OutputDir returns the artifact directory, defaulting to the system temp dir.
func (c *Config) OutputDir() string {
	if c.Output.Dir == "" {
		return os.TempDir()
	}
	return c.Output.Dir
}

func (c *Config) validate() error {
	var err error
	if c.Browser.Driver, err = browser.ParseDriver(string(c.Browser.Driver)); err != nil {
		return fmt.Errorf("browser.driver: %w", err)
	}
	if c.Browser.Engine, err = browser.ParseEngine(string(c.Browser.Engine)); err != nil {
		return fmt.Errorf("browser.engine: %w", err)
	}
	if c.Browser.Wait, err = browser.ParseWaitPolicy(string(c.Browser.Wait)); err != nil {
		return fmt.Errorf("browser.wait: %w", err)
	}
	if c.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be positive")
	}
	if c.Browser.Settle != nil && *c.Browser.Settle < 0 {
		return fmt.Errorf("browser.settle must not be negative")
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight)
	}
	if c.Probe.PreviewLimit != nil && *c.Probe.PreviewLimit < 0 {
		return fmt.Errorf("probe.preview_limit must not be negative, got %d", *c.Probe.PreviewLimit)
	}
	if c.Probe.PreviewCount != nil && *c.Probe.PreviewCount < 0 {
		return fmt.Errorf("probe.preview_count must not be negative, got %d", *c.Probe.PreviewCount)
	}
	if c.Output.TextChars < 0 {
		return fmt.Errorf("output.text_chars must not be negative, got %d", c.Output.TextChars)
	}

	validFormats := []string{FormatText, FormatTable, FormatJSON}
	isValidFormat := false
	for _, format := range validFormats {
		if c.Output.Format == format {
			isValidFormat = true
			break
		}
	}
	if !isValidFormat {
		return fmt.Errorf("invalid output.format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log_level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

func boolOr(v *bool, fallback bool) bool {
	if v != nil {
		return *v
	}
	return fallback
}
