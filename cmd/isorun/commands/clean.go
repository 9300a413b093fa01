package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/isorun/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the blob cache and its state file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetString("cache")
			return c.app.Clean(cmd.Context(), app.CleanOptions{CacheDir: cache})
		},
	}

	cmd.Flags().String("cache", "", "Cache directory")

	return cmd
}
