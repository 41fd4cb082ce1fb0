package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"roadeye/internal/assets"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "assets",
		Short: "List asset categories and the default selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			defaults := assets.NewSelection()
			if len(cfg.Assets.Default) > 0 {
				defaults, err = assets.SelectionOf(cfg.Assets.Default...)
				if err != nil {
					return err
				}
			}
			rows := make([][]string, 0, len(assets.All()))
			for _, category := range assets.All() {
				rows = append(rows, []string{
					string(category),
					category.Label(),
					yesNo(defaults.IsSelected(category)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Name", "Label", "Default"}, rows, nil))
			return nil
		},
	}
}
