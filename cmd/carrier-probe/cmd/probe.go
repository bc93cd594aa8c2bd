package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"carrier-probe/internal/carriers"
	"carrier-probe/internal/cli"
	"carrier-probe/internal/probe"
)

func newProbeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "probe <file.html>",
		Short: "Probe selectors against a saved page without a browser",
		Long: `Re-runs the selector probe against HTML saved by an earlier discover run,
or any other saved page. The carrier's selector set is used; the carrier is
taken from --carrier or from a <carrier>_rendered.html file name, and the
generic selector set applies when neither names a known carrier.`,
		Example: `  carrier-probe probe /tmp/usps_rendered.html
  carrier-probe probe page.html --carrier 17track --verbose
  carrier-probe probe page.html --selectors candidates.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: a.runProbe,
	}

	cmd.Flags().StringP("carrier", "c", "", "Carrier whose selectors to probe")
	addProbeFlags(cmd)

	_ = cmd.RegisterFlagCompletionFunc("carrier", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return a.registry.Names(), cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func (a *app) runProbe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("carrier")
	target, err := a.snapshotTarget(args[0], name)
	if err != nil {
		return err
	}

	set, err := selectorOverride(cmd)
	if err != nil {
		return err
	}

	run, err := a.runner(cfg, logger).Replay(args[0], target, set)
	if err != nil {
		return err
	}

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		title := fmt.Sprintf("%s: %s", filepath.Base(args[0]), run.Title)
		return cli.RunResultsTable(title, run.Outcomes, cfg.Probe.Verbose, !cfg.NoColor)
	}
	return a.formatter(cmd, cfg).PrintRun(run, cfg.Probe.Verbose, cfg.Output.TextChars)
}

// snapshotTarget picks the target whose selectors a saved page is probed
// with: the named carrier, the carrier in the file name, or a generic one.
func (a *app) snapshotTarget(path, name string) (*carriers.Target, error) {
	if name != "" {
		return a.registry.Get(name)
	}

	base := filepath.Base(path)
	if prefix, _, ok := strings.Cut(base, "_rendered"); ok {
		target, err := a.registry.Get(prefix)
		if err == nil {
			return target, nil
		}
		if !errors.Is(err, carriers.ErrUnknownCarrier) {
			return nil, err
		}
	}

	return &carriers.Target{
		Name:        "snapshot",
		DisplayName: "Saved page",
		Selectors:   carriers.GenericSelectors(),
		Preview:     probe.DefaultOptions(),
	}, nil
}
