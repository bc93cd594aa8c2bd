package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"carrier-probe/internal/carriers"
	"carrier-probe/internal/cli"
	"carrier-probe/internal/config"
	"carrier-probe/internal/discover"
	"carrier-probe/internal/selectors"
)

func newDiscoverCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <carrier> [tracking-number]",
		Short: "Render a carrier tracking page and probe selectors on it",
		Long: `Loads the carrier's tracking page for a tracking number in a browser, saves
the rendered HTML, a screenshot and the visible text, and reports which of the
carrier's candidate selectors match.

With --url the carrier argument is omitted and the page is built from a URL
template containing {tracking}, probed with a generic selector set.`,
		Example: `  carrier-probe discover usps 9400111699000367046792
  carrier-probe discover 17track LX123456789CN --driver rod
  carrier-probe discover usps --selectors candidates.yaml --verbose
  carrier-probe discover --url 'https://example.com/track?n={tracking}' 1234`,
		Args: func(cmd *cobra.Command, args []string) error {
			if url, _ := cmd.Flags().GetString("url"); url != "" {
				return cobra.MaximumNArgs(1)(cmd, args)
			}
			return cobra.RangeArgs(1, 2)(cmd, args)
		},
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return a.registry.Names(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: a.runDiscover,
	}

	cmd.Flags().String("url", "", "Tracking page URL template containing {tracking}")
	cmd.Flags().String("driver", "chromedp", "Browser driver (chromedp, rod)")
	cmd.Flags().String("engine", "chromium", "Browser engine (chromium)")
	cmd.Flags().String("wait", "networkidle", "Navigation wait (networkidle, fixed-delay, load)")
	cmd.Flags().Bool("stealth", false, "Hide automation markers (default: carrier's)")
	cmd.Flags().Bool("headless", true, "Run without a visible window (default: carrier's)")
	cmd.Flags().Duration("settle", 0, "Wait after loading before capturing (default: carrier's)")
	cmd.Flags().String("chrome-path", "", "Browser executable to launch")
	cmd.Flags().StringP("out", "o", "", "Directory for saved artifacts (default: temp dir)")
	cmd.Flags().Bool("no-screenshot", false, "Skip the full-page screenshot")
	cmd.Flags().Bool("markdown", false, "Also save a markdown rendering of the page")
	addProbeFlags(cmd)

	return cmd
}

func (a *app) runDiscover(cmd *cobra.Command, args []string) error {
	cfg, logger, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	if noScreenshot, _ := cmd.Flags().GetBool("no-screenshot"); noScreenshot {
		cfg.Output.Screenshot = false
	}

	req, err := a.discoverRequest(cmd, args)
	if err != nil {
		return err
	}

	formatter := a.formatter(cmd, cfg)
	interactive, _ := cmd.Flags().GetBool("interactive")

	var opts []discover.Option
	var spinner *cli.ProgressSpinner
	if showSpinner(cfg, interactive) {
		spinner = cli.NewProgressSpinner(fmt.Sprintf("Discovering %s", req.Target.DisplayName), cfg.NoColor, cmd.ErrOrStderr())
		opts = append(opts, discover.WithProgress(spinner.Update))
		spinner.Start()
	}

	start := time.Now()
	run, err := a.runner(cfg, logger, opts...).Run(cmd.Context(), req)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		return fmt.Errorf("discovery failed for %s: %w", req.Target.Name, err)
	}

	if interactive {
		title := fmt.Sprintf("%s %s: %s", req.Target.DisplayName, run.TrackingNumber, run.Title)
		return cli.RunResultsTable(title, run.Outcomes, cfg.Probe.Verbose, !cfg.NoColor)
	}

	if err := formatter.PrintRun(run, cfg.Probe.Verbose, cfg.Output.TextChars); err != nil {
		return err
	}
	if cfg.Output.Format != config.FormatJSON {
		fmt.Fprintln(cmd.OutOrStdout())
		formatter.PrintDuration(time.Since(start))
	}
	return nil
}

// discoverRequest resolves the target, tracking number and selector override.
func (a *app) discoverRequest(cmd *cobra.Command, args []string) (discover.Request, error) {
	var req discover.Request

	if url, _ := cmd.Flags().GetString("url"); url != "" {
		target, err := carriers.Custom(url)
		if err != nil {
			return req, err
		}
		req.Target = target
		if len(args) > 0 {
			req.TrackingNumber = args[0]
		}
	} else {
		target, err := a.registry.Get(args[0])
		if err != nil {
			return req, err
		}
		req.Target = target
		if len(args) > 1 {
			req.TrackingNumber = args[1]
		}
	}

	set, err := selectorOverride(cmd)
	if err != nil {
		return req, err
	}
	req.Selectors = set
	return req, nil
}

// selectorOverride loads the --selectors file, if given.
func selectorOverride(cmd *cobra.Command) (selectors.Set, error) {
	path, _ := cmd.Flags().GetString("selectors")
	if path == "" {
		return nil, nil
	}
	return selectors.Load(path)
}

// showSpinner reports whether a progress spinner may draw on stderr without
// fighting log output or structured stdout.
func showSpinner(cfg *config.Config, interactive bool) bool {
	return !interactive &&
		cfg.Output.Format != config.FormatJSON &&
		cfg.SlogLevel() > slog.LevelInfo
}
