package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"carrier-probe/internal/browser"
)

// EnvPrefix prefixes every environment variable read by carrier-probe.
const EnvPrefix = "CARRIER_PROBE"

// LoadWithViper loads configuration using v. Flags bound to v with
// BindFlags take precedence over the environment, which takes precedence
// over the config file.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	// Set defaults
	setDefaults(v)

	// Set up environment variable binding
	setupEnvBinding(v)

	// Load configuration file if specified
	if err := loadConfigFile(v); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Unmarshal configuration
	config := &Config{}
	if err := unmarshalConfig(v, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Load loads configuration using a fresh Viper instance
func Load() (*Config, error) {
	return LoadWithViper(viper.New())
}

// LoadWithFile loads configuration from a specific file
func LoadWithFile(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	return LoadWithViper(v)
}

// BindFlags binds command flags to configuration keys. Keys whose flag is
// missing from flags are skipped, so commands can share one binding table.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default values. Keys that carrier targets also define
// are intentionally absent, see the package documentation.
func setDefaults(v *viper.Viper) {
	defaults := browser.DefaultOptions()

	v.SetDefault("browser.driver", string(defaults.Driver))
	v.SetDefault("browser.engine", string(defaults.Engine))
	v.SetDefault("browser.wait", string(defaults.Wait))
	v.SetDefault("browser.navigation_timeout", defaults.NavigationTimeout.String())
	v.SetDefault("browser.user_agent", defaults.UserAgent)
	v.SetDefault("browser.locale", defaults.Locale)
	v.SetDefault("browser.viewport_width", defaults.ViewportWidth)
	v.SetDefault("browser.viewport_height", defaults.ViewportHeight)
	v.SetDefault("browser.disable_images", false)
	v.SetDefault("browser.exec_path", "")

	v.SetDefault("probe.verbose", false)

	v.SetDefault("output.dir", "")
	v.SetDefault("output.screenshot", true)
	v.SetDefault("output.markdown", false)
	v.SetDefault("output.text_chars", 2000)
	v.SetDefault("output.format", FormatText)

	v.SetDefault("log_level", "info")
	v.SetDefault("no_color", false)
}

// setupEnvBinding sets up environment variable binding
func setupEnvBinding(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Short names for the settings changed most often
	envBindings := map[string]string{
		"browser.driver":             "DRIVER",
		"browser.engine":             "ENGINE",
		"browser.wait":               "WAIT",
		"browser.stealth":            "STEALTH",
		"browser.headless":           "HEADLESS",
		"browser.settle":             "SETTLE",
		"browser.navigation_timeout": "NAVIGATION_TIMEOUT",
		"browser.user_agent":         "USER_AGENT",
		"browser.locale":             "LOCALE",
		"browser.viewport_width":     "VIEWPORT_WIDTH",
		"browser.viewport_height":    "VIEWPORT_HEIGHT",
		"browser.disable_images":     "DISABLE_IMAGES",
		"browser.exec_path":          "CHROME_PATH",
		"probe.preview_limit":        "PREVIEW_LIMIT",
		"probe.preview_count":        "PREVIEW_COUNT",
		"probe.verbose":              "VERBOSE",
		"output.dir":                 "OUT",
		"output.screenshot":          "SCREENSHOT",
		"output.markdown":            "MARKDOWN",
		"output.text_chars":          "TEXT_CHARS",
		"output.format":              "FORMAT",
		"log_level":                  "LOG_LEVEL",
	}

	for configKey, envSuffix := range envBindings {
		v.BindEnv(configKey, EnvPrefix+"_"+envSuffix)
	}

	// Special handling for NO_COLOR environment variable
	v.BindEnv("no_color", EnvPrefix+"_NO_COLOR", "NO_COLOR")
}

// loadConfigFile loads configuration file if it exists
func loadConfigFile(v *viper.Viper) error {
	// Check if a specific config file was set
	if v.ConfigFileUsed() == "" {
		// Add configuration search paths
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME")

		// Set configuration file name (without extension)
		v.SetConfigName("carrier-probe")
	}

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		// Config file is optional, only return error if it's not a "not found" error
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	return nil
}

// unmarshalConfig copies Viper values into config
func unmarshalConfig(v *viper.Viper, config *Config) error {
	var err error

	config.ConfigFile = v.ConfigFileUsed()

	config.Browser.Driver = browser.Driver(v.GetString("browser.driver"))
	config.Browser.Engine = browser.Engine(v.GetString("browser.engine"))
	config.Browser.Wait = browser.WaitPolicy(v.GetString("browser.wait"))
	config.Browser.UserAgent = v.GetString("browser.user_agent")
	config.Browser.Locale = v.GetString("browser.locale")
	config.Browser.ViewportWidth = v.GetInt("browser.viewport_width")
	config.Browser.ViewportHeight = v.GetInt("browser.viewport_height")
	config.Browser.DisableImages = v.GetBool("browser.disable_images")
	config.Browser.ExecPath = v.GetString("browser.exec_path")

	if config.Browser.NavigationTimeout, err = parseDuration(v.GetString("browser.navigation_timeout")); err != nil {
		return fmt.Errorf("browser.navigation_timeout: %w", err)
	}
	if config.Browser.Stealth, err = optionalBool(v, "browser.stealth"); err != nil {
		return err
	}
	if config.Browser.Headless, err = optionalBool(v, "browser.headless"); err != nil {
		return err
	}
	if config.Browser.Settle, err = optionalDuration(v, "browser.settle"); err != nil {
		return err
	}

	if config.Probe.PreviewLimit, err = optionalInt(v, "probe.preview_limit"); err != nil {
		return err
	}
	if config.Probe.PreviewCount, err = optionalInt(v, "probe.preview_count"); err != nil {
		return err
	}
	config.Probe.Verbose = v.GetBool("probe.verbose")

	config.Output.Dir = v.GetString("output.dir")
	config.Output.Screenshot = v.GetBool("output.screenshot")
	config.Output.Markdown = v.GetBool("output.markdown")
	config.Output.TextChars = v.GetInt("output.text_chars")
	config.Output.Format = strings.ToLower(v.GetString("output.format"))

	config.LogLevel = strings.ToLower(v.GetString("log_level"))
	config.NoColor = v.GetBool("no_color") || os.Getenv("NO_COLOR") != ""

	return nil
}
