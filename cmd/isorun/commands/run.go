package commands

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.trai.ch/isorun/internal/app"
	"go.trai.ch/isorun/internal/core/domain"
	"go.trai.ch/zerr"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Materialize a manifest and execute its command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manifest, _ := cmd.Flags().GetString("manifest")
			hash, _ := cmd.Flags().GetString("hash")
			remote, _ := cmd.Flags().GetString("remote")
			cache, _ := cmd.Flags().GetString("cache")
			maxItems, _ := cmd.Flags().GetInt("max-items")
			noRun, _ := cmd.Flags().GetBool("no-run")

			maxSize, err := sizeFlag(cmd, "max-cache-size")
			if err != nil {
				return err
			}
			minFreeSpace, err := sizeFlag(cmd, "min-free-space")
			if err != nil {
				return err
			}

			code, err := c.app.Run(cmd.Context(), app.RunOptions{
				ManifestPath: manifest,
				Hash:         hash,
				Remote:       remote,
				CacheDir:     cache,
				Policy: domain.CachePolicy{
					MaxSize:      maxSize,
					MinFreeSpace: minFreeSpace,
					MaxItems:     maxItems,
				},
				NoRun: noRun,
			})
			if err != nil {
				return err
			}
			c.exitCode = code
			return nil
		},
	}

	cmd.Flags().StringP("manifest", "m", "", "Path or URL of the manifest to run")
	cmd.Flags().String("hash", "", "Manifest digest, resolved against the remote")
	cmd.Flags().StringP("remote", "r", "", "Blob server URL or directory")
	cmd.Flags().String("cache", "", "Cache directory")
	cmd.Flags().String("max-cache-size", "", "Cache size budget, e.g. 20GB")
	cmd.Flags().String("min-free-space", "", "Free space to keep on the cache filesystem, e.g. 2GB")
	cmd.Flags().Int("max-items", 0, "Maximum number of cached blobs")
	cmd.Flags().Bool("no-run", false, "Materialize only and print the scratch directory")
	cmd.MarkFlagsMutuallyExclusive("manifest", "hash")

	return cmd
}

// sizeFlag parses a human readable size flag such as "20GB" into bytes.
func sizeFlag(cmd *cobra.Command, name string) (int64, error) {
	value, _ := cmd.Flags().GetString(name)
	if value == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(value)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(err, "invalid size value"), "flag", name)
	}
	return int64(n), nil //nolint:gosec // cache budgets stay far below MaxInt64
}
