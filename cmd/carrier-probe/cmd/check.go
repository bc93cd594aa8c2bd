package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"carrier-probe/internal/browser"
)

// chromeCheck is replaced in tests.
var chromeCheck = browser.ValidateChromeAvailable

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check that a local Chrome or Chromium can be driven",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			formatter := a.formatter(cmd, cfg)

			logger.Debug("Launching headless browser for check")
			if err := chromeCheck(cmd.Context()); err != nil {
				formatter.PrintError(err)
				return fmt.Errorf("browser check failed")
			}
			formatter.PrintSuccess("Chrome/Chromium is available")
			return nil
		},
	}
}
