package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"carrier-probe/internal/carriers"
	"carrier-probe/internal/cli"
	"carrier-probe/internal/config"
	"carrier-probe/internal/discover"
)

// Version information
const Version = "0.3.0"

// flagBindings maps configuration keys to the flags that override them.
// Commands only define the flags they use; the rest are skipped.
var flagBindings = map[string]string{
	"output.format":       "format",
	"log_level":           "log-level",
	"no_color":            "no-color",
	"browser.driver":      "driver",
	"browser.engine":      "engine",
	"browser.wait":        "wait",
	"browser.stealth":     "stealth",
	"browser.headless":    "headless",
	"browser.settle":      "settle",
	"browser.exec_path":   "chrome-path",
	"output.dir":          "out",
	"output.markdown":     "markdown",
	"output.text_chars":   "text-chars",
	"probe.preview_limit": "preview-limit",
	"probe.preview_count": "preview-count",
	"probe.verbose":       "verbose",
}

// app holds state shared by all commands.
type app struct {
	configFile string
	registry   *carriers.Registry
	// opener replaces browser.Open when set
	opener discover.Opener
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := fang.Execute(ctx, newRootCmd(&app{registry: carriers.NewRegistry()}), fang.WithVersion(Version))
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "carrier-probe",
		Short: "Discover CSS selectors on carrier tracking pages",
		Long: `carrier-probe loads a carrier's tracking results page in a real browser,
saves what the browser rendered and reports which candidate CSS selectors
match, with a preview of the text each one finds.

Use it to find stable selectors before writing a scraper for a carrier, or to
check that known selectors still work after a site redesign.

CONFIGURATION:
    Settings are read from carrier-probe.yaml (or .json/.toml) in the current
    directory, ./config or $HOME, then from CARRIER_PROBE_* environment
    variables, then from flags. For example:

        CARRIER_PROBE_DRIVER       - browser driver: chromedp, rod
        CARRIER_PROBE_STEALTH      - hide automation markers: on, off
        CARRIER_PROBE_WAIT         - networkidle, fixed-delay, load
        CARRIER_PROBE_SETTLE       - extra wait after loading (e.g. 5s)
        CARRIER_PROBE_OUT          - artifact directory (default: temp dir)
        CARRIER_PROBE_CHROME_PATH  - browser executable
        CARRIER_PROBE_LOG_LEVEL    - debug, info, warn, error`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is carrier-probe.yaml in ., ./config or $HOME)")
	rootCmd.PersistentFlags().StringP("format", "f", config.FormatText, "Output format (text, table, json)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable color output")

	rootCmd.AddCommand(
		newDiscoverCmd(a),
		newProbeCmd(a),
		newCarriersCmd(a),
		newCheckCmd(a),
		newCompletionCmd(),
	)
	return rootCmd
}

// loadConfig loads configuration for cmd, with its flags taking precedence.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	v := viper.New()
	if a.configFile != "" {
		if _, err := os.Stat(a.configFile); err != nil {
			return nil, nil, fmt.Errorf("config file: %w", err)
		}
		v.SetConfigFile(a.configFile)
	}
	if err := config.BindFlags(v, cmd.Flags(), flagBindings); err != nil {
		return nil, nil, err
	}

	cfg, err := config.LoadWithViper(v)
	if err != nil {
		return nil, nil, err
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	if cfg.ConfigFile != "" {
		logger.Debug("Loaded config file", "path", cfg.ConfigFile)
	}
	return cfg, logger, nil
}

func (a *app) formatter(cmd *cobra.Command, cfg *config.Config) *cli.OutputFormatter {
	return cli.NewOutputFormatter(cfg.Output.Format, cfg.NoColor, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func (a *app) runner(cfg *config.Config, logger *slog.Logger, opts ...discover.Option) *discover.Runner {
	if a.opener != nil {
		opts = append(opts, discover.WithOpener(a.opener))
	}
	return discover.NewRunner(cfg, logger, opts...)
}

// addProbeFlags adds the flags shared by commands that print probe results.
func addProbeFlags(cmd *cobra.Command) {
	cmd.Flags().String("selectors", "", "YAML file with the selectors to probe instead of the carrier's")
	cmd.Flags().Int("preview-limit", 0, "Maximum characters per preview (default: carrier's)")
	cmd.Flags().Int("preview-count", 0, "Maximum previews per selector (default: carrier's)")
	cmd.Flags().Int("text-chars", 2000, "Characters of visible page text to print (0 to skip)")
	cmd.Flags().BoolP("verbose", "v", false, "Also list selectors that matched nothing or failed")
	cmd.Flags().BoolP("interactive", "i", false, "Browse the results in an interactive table")
}
