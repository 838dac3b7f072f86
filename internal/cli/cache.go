package cli

import (
	"time"

	"dirview/internal/preview"
	"dirview/internal/session"

	"github.com/spf13/cobra"
)

type cacheStatsOut struct {
	Path     string `json:"path"`
	Previews int    `json:"previews"`
}

type cachePruneOut struct {
	Path    string    `json:"path"`
	Cutoff  time.Time `json:"cutoff"`
	Removed int64     `json:"removed"`
}

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and prune the preview cache",
	}
	cmd.AddCommand(newCacheStatsCmd(app))
	cmd.AddCommand(newCachePruneCmd(app))
	return cmd
}

func openCache(cmd *cobra.Command) (*preview.Cache, string, error) {
	path, err := session.DefaultCachePath()
	if err != nil {
		return nil, "", err
	}
	c, err := preview.OpenCache(cmd.Context(), path)
	if err != nil {
		return nil, "", err
	}
	return c, path, nil
}

func newCacheStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show where the preview cache is and how much it holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, path, err := openCache(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer c.Close()

			n, err := c.Count(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, cacheStatsOut{Path: path, Previews: n}, "dirview cache prune --older-than 720h")
		},
	}
}

func newCachePruneCmd(app *App) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove previews older than a duration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan < 0 {
				return writeErr(cmd, errNegativeFlag("older-than"))
			}
			c, path, err := openCache(cmd)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer c.Close()

			cutoff := time.Now().Add(-olderThan)
			n, err := c.Prune(cmd.Context(), cutoff)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, cachePruneOut{Path: path, Cutoff: cutoff.UTC(), Removed: n})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "Age of the previews to remove")
	return cmd
}
