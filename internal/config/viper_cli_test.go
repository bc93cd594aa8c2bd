package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrier-probe/internal/browser"
	"carrier-probe/internal/probe"
)

// clearEnvVars blanks every variable the loader reads for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	suffixes := []string{
		"DRIVER", "ENGINE", "WAIT", "STEALTH", "HEADLESS", "SETTLE", "NAVIGATION_TIMEOUT",
		"USER_AGENT", "LOCALE", "VIEWPORT_WIDTH", "VIEWPORT_HEIGHT", "DISABLE_IMAGES",
		"CHROME_PATH", "PREVIEW_LIMIT", "PREVIEW_COUNT", "VERBOSE", "OUT", "SCREENSHOT",
		"MARKDOWN", "TEXT_CHARS", "FORMAT", "LOG_LEVEL", "NO_COLOR",
	}
	for _, suffix := range suffixes {
		t.Setenv(EnvPrefix+"_"+suffix, "")
	}
	t.Setenv("NO_COLOR", "")
}

func TestViperConfig_LoadFromDefaults(t *testing.T) {
	clearEnvVars(t)

	config, err := LoadWithViper(viper.New())
	require.NoError(t, err)

	if config.Browser.Driver != browser.DriverChromedp {
		t.Errorf("Expected Driver to be 'chromedp', got '%s'", config.Browser.Driver)
	}
	if config.Browser.Engine != browser.EngineChromium {
		t.Errorf("Expected Engine to be 'chromium', got '%s'", config.Browser.Engine)
	}
	if config.Browser.Wait != browser.WaitNetworkIdle {
		t.Errorf("Expected Wait to be 'networkidle', got '%s'", config.Browser.Wait)
	}
	if config.Browser.NavigationTimeout != 60*time.Second {
		t.Errorf("Expected NavigationTimeout to be 60s, got %v", config.Browser.NavigationTimeout)
	}
	if config.Output.Format != FormatText {
		t.Errorf("Expected Format to be 'text', got '%s'", config.Output.Format)
	}
	if config.Output.TextChars != 2000 {
		t.Errorf("Expected TextChars to be 2000, got %d", config.Output.TextChars)
	}
	if !config.Output.Screenshot {
		t.Error("Expected Screenshot to be true")
	}
	if config.NoColor {
		t.Error("Expected NoColor to be false")
	}

	// Carrier-overridable settings stay unset.
	assert.Nil(t, config.Browser.Stealth)
	assert.Nil(t, config.Browser.Headless)
	assert.Nil(t, config.Browser.Settle)
	assert.Nil(t, config.Probe.PreviewLimit)
	assert.Nil(t, config.Probe.PreviewCount)

	assert.Equal(t, slog.LevelInfo, config.SlogLevel())
	assert.Equal(t, os.TempDir(), config.OutputDir())
}

func TestViperConfig_LoadFromEnvironment(t *testing.T) {
	clearEnvVars(t)

	envVars := map[string]string{
		"CARRIER_PROBE_DRIVER":        "rod",
		"CARRIER_PROBE_STEALTH":       "true",
		"CARRIER_PROBE_HEADLESS":      "false",
		"CARRIER_PROBE_SETTLE":        "7",
		"CARRIER_PROBE_PREVIEW_LIMIT": "80",
		"CARRIER_PROBE_PREVIEW_COUNT": "0",
		"CARRIER_PROBE_OUT":           "/tmp/probe-out",
		"CARRIER_PROBE_FORMAT":        "JSON",
		"CARRIER_PROBE_LOG_LEVEL":     "debug",
		"NO_COLOR":                    "1",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	config, err := LoadWithViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, browser.DriverRod, config.Browser.Driver)
	require.NotNil(t, config.Browser.Stealth)
	assert.True(t, *config.Browser.Stealth)
	require.NotNil(t, config.Browser.Headless)
	assert.False(t, *config.Browser.Headless)
	require.NotNil(t, config.Browser.Settle)
	assert.Equal(t, 7*time.Second, *config.Browser.Settle)
	require.NotNil(t, config.Probe.PreviewLimit)
	assert.Equal(t, 80, *config.Probe.PreviewLimit)
	require.NotNil(t, config.Probe.PreviewCount)
	assert.Equal(t, 0, *config.Probe.PreviewCount)
	assert.Equal(t, "/tmp/probe-out", config.OutputDir())
	assert.Equal(t, FormatJSON, config.Output.Format)
	assert.Equal(t, slog.LevelDebug, config.SlogLevel())
	assert.True(t, config.NoColor)
}

func TestViperConfig_LoadFromYAMLFile(t *testing.T) {
	clearEnvVars(t)

	configFile := filepath.Join(t.TempDir(), "carrier-probe.yaml")
	configContent := `browser:
  driver: rod
  wait: fixed-delay
  navigation_timeout: 90s
  stealth: false
  viewport_width: 1280
  viewport_height: 800
probe:
  preview_limit: 60
  verbose: true
output:
  format: table
  markdown: true
  screenshot: false
log_level: warn
`
	require.NoError(t, os.WriteFile(configFile, []byte(configContent), 0644))

	config, err := LoadWithFile(configFile)
	require.NoError(t, err)

	assert.Equal(t, configFile, config.ConfigFile)
	assert.Equal(t, browser.DriverRod, config.Browser.Driver)
	assert.Equal(t, browser.WaitFixedDelay, config.Browser.Wait)
	assert.Equal(t, 90*time.Second, config.Browser.NavigationTimeout)
	require.NotNil(t, config.Browser.Stealth)
	assert.False(t, *config.Browser.Stealth)
	assert.Nil(t, config.Browser.Headless)
	assert.Equal(t, 1280, config.Browser.ViewportWidth)
	require.NotNil(t, config.Probe.PreviewLimit)
	assert.Equal(t, 60, *config.Probe.PreviewLimit)
	assert.Nil(t, config.Probe.PreviewCount)
	assert.True(t, config.Probe.Verbose)
	assert.Equal(t, FormatTable, config.Output.Format)
	assert.True(t, config.Output.Markdown)
	assert.False(t, config.Output.Screenshot)
	assert.Equal(t, slog.LevelWarn, config.SlogLevel())
}

func TestViperConfig_EnvironmentOverridesFile(t *testing.T) {
	clearEnvVars(t)

	configFile := filepath.Join(t.TempDir(), "carrier-probe.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("output:\n  format: table\n"), 0644))
	t.Setenv("CARRIER_PROBE_FORMAT", "json")

	config, err := LoadWithFile(configFile)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, config.Output.Format)
}

func TestViperConfig_FlagsOverrideEnvironment(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("CARRIER_PROBE_PREVIEW_COUNT", "5")
	t.Setenv("CARRIER_PROBE_STEALTH", "true")

	flags := pflag.NewFlagSet("discover", pflag.ContinueOnError)
	flags.Int("preview-count", 2, "")
	flags.Bool("stealth", false, "")
	flags.Duration("settle", 0, "")
	flags.Bool("headless", true, "")
	require.NoError(t, flags.Parse([]string{"--preview-count=1", "--settle=2s"}))

	v := viper.New()
	require.NoError(t, BindFlags(v, flags, map[string]string{
		"probe.preview_count": "preview-count",
		"browser.stealth":     "stealth",
		"browser.settle":      "settle",
		"browser.headless":    "headless",
		"output.dir":          "out", // not defined on this command
	}))

	config, err := LoadWithViper(v)
	require.NoError(t, err)

	require.NotNil(t, config.Probe.PreviewCount)
	assert.Equal(t, 1, *config.Probe.PreviewCount, "changed flag wins over environment")
	require.NotNil(t, config.Browser.Stealth)
	assert.True(t, *config.Browser.Stealth, "unchanged flag leaves the environment value")
	require.NotNil(t, config.Browser.Settle)
	assert.Equal(t, 2*time.Second, *config.Browser.Settle)
	assert.Nil(t, config.Browser.Headless, "unchanged flag default does not count as set")
}

func TestViperConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr string
	}{
		{name: "unknown driver", envVars: map[string]string{"CARRIER_PROBE_DRIVER": "selenium"}, wantErr: "browser.driver"},
		{name: "unknown engine", envVars: map[string]string{"CARRIER_PROBE_ENGINE": "webkit"}, wantErr: "browser.engine"},
		{name: "unknown wait", envVars: map[string]string{"CARRIER_PROBE_WAIT": "forever"}, wantErr: "browser.wait"},
		{name: "zero timeout", envVars: map[string]string{"CARRIER_PROBE_NAVIGATION_TIMEOUT": "0s"}, wantErr: "navigation_timeout"},
		{name: "bad timeout", envVars: map[string]string{"CARRIER_PROBE_NAVIGATION_TIMEOUT": "soon"}, wantErr: "navigation_timeout"},
		{name: "negative settle", envVars: map[string]string{"CARRIER_PROBE_SETTLE": "-1s"}, wantErr: "browser.settle"},
		{name: "negative preview limit", envVars: map[string]string{"CARRIER_PROBE_PREVIEW_LIMIT": "-1"}, wantErr: "preview_limit"},
		{name: "non-numeric preview count", envVars: map[string]string{"CARRIER_PROBE_PREVIEW_COUNT": "two"}, wantErr: "preview_count"},
		{name: "bad stealth", envVars: map[string]string{"CARRIER_PROBE_STEALTH": "sometimes"}, wantErr: "browser.stealth"},
		{name: "bad format", envVars: map[string]string{"CARRIER_PROBE_FORMAT": "xml"}, wantErr: "output.format"},
		{name: "bad log level", envVars: map[string]string{"CARRIER_PROBE_LOG_LEVEL": "loud"}, wantErr: "log_level"},
		{name: "bad viewport", envVars: map[string]string{"CARRIER_PROBE_VIEWPORT_WIDTH": "0"}, wantErr: "viewport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			_, err := LoadWithViper(viper.New())
			require.Error(t, err)
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestViperConfig_MissingExplicitFile(t *testing.T) {
	clearEnvVars(t)

	_, err := LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestConfig_BrowserOptions(t *testing.T) {
	clearEnvVars(t)

	config, err := LoadWithViper(viper.New())
	require.NoError(t, err)

	opts := config.BrowserOptions(true, false)
	assert.True(t, opts.Stealth, "carrier default applies when unset")
	assert.False(t, opts.Headless, "carrier default applies when unset")
	assert.NoError(t, opts.Validate())

	off, on := false, true
	config.Browser.Stealth = &off
	config.Browser.Headless = &on
	opts = config.BrowserOptions(true, false)
	assert.False(t, opts.Stealth)
	assert.True(t, opts.Headless)
}

func TestConfig_ProbeOptionsAndSettle(t *testing.T) {
	config := &Config{}
	base := probe.Options{PreviewLimit: 100, PreviewCount: 3}

	assert.Equal(t, base, config.ProbeOptions(base))
	assert.Equal(t, 3*time.Second, config.SettleOr(3*time.Second))

	limit, settle := 40, time.Second
	config.Probe.PreviewLimit = &limit
	config.Browser.Settle = &settle
	assert.Equal(t, probe.Options{PreviewLimit: 40, PreviewCount: 3}, config.ProbeOptions(base))
	assert.Equal(t, time.Second, config.SettleOr(3*time.Second))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{input: "90s", want: 90 * time.Second},
		{input: "1m30s", want: 90 * time.Second},
		{input: "45", want: 45 * time.Second},
		{input: " 5s ", want: 5 * time.Second},
		{input: "0", want: 0},
		{input: "later", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseDuration(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestViperConfig_SwitchValues(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{value: "on", want: true},
		{value: "OFF", want: false},
		{value: "yes", want: true},
		{value: "no", want: false},
		{value: "1", want: true},
		{value: "false", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv("CARRIER_PROBE_STEALTH", tt.value)

			config, err := LoadWithViper(viper.New())
			require.NoError(t, err)
			require.NotNil(t, config.Browser.Stealth)
			assert.Equal(t, tt.want, *config.Browser.Stealth)
		})
	}
}
