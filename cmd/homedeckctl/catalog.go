package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"homedeck/internal/shortcuts"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with app catalog files",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "validate <file>",
		Short: "Check a catalog extension file and print the merged catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := shortcuts.LoadCatalog(args[0])
			if err != nil {
				return err
			}
			apps := catalog.All()
			for _, app := range apps {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", app.ID, app.Name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d apps\n", len(apps))
			return nil
		},
	})
	return cmd
}
