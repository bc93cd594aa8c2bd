package cmd

import (
	"github.com/spf13/cobra"
)

func newCarriersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "carriers",
		Aliases: []string{"list"},
		Short:   "List known carriers and their candidate selectors",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			return a.formatter(cmd, cfg).PrintCarriers(a.registry.Targets())
		},
	}
}
