package cli

import (
	"fmt"
	"strings"

	"dirview/internal/config"
	"dirview/internal/fileitem"
	"dirview/internal/loop"
	"dirview/internal/preview"
	"dirview/internal/session"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
)

type previewOut struct {
	URL     string          `json:"url"`
	Mime    string          `json:"mime"`
	Preview preview.Preview `json:"preview"`
}

func newPreviewCmd(app *App) *cobra.Command {
	var size, cols int
	var plugins []string
	var raw bool
	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Generate the preview of a file and draw it in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it, err := fileitem.FromPath(args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if len(plugins) == 0 {
				cfg, err := config.Load()
				if err != nil {
					return writeErr(cmd, err)
				}
				plugins = cfg.EnabledPlugins
			}

			var cache *preview.Cache
			if !app.NoCache {
				path, err := session.DefaultCachePath()
				if err != nil {
					return writeErr(cmd, err)
				}
				ctx := cmd.Context()
				if cache, err = preview.OpenCache(ctx, path); err != nil {
					return writeErr(cmd, err)
				}
				defer cache.Close()
			}

			l := loop.New()
			r := preview.NewRunner(l, preview.RunnerOptions{Workers: 1, Cache: cache})
			var got *preview.Preview
			done := false
			r.Start(preview.Request{
				Items:             []*fileitem.Item{it},
				Size:              size,
				Plugins:           plugins,
				IgnoreMaximumSize: true,
			}, preview.Handlers{
				OnGot:      func(_ *fileitem.Item, p preview.Preview) { got = &p },
				OnFinished: func() { done = true },
			})
			for !done {
				select {
				case <-cmd.Context().Done():
					return writeErr(cmd, cmd.Context().Err())
				case <-l.Ready():
					l.RunPending()
				}
			}
			if got == nil {
				return writeErr(cmd, errNoPreview(it.URL()))
			}

			if raw {
				return writeOut(cmd, app, previewOut{URL: it.URL(), Mime: it.MimeType(), Preview: *got})
			}
			if cols <= 0 {
				cols = size / 4
			}
			profile := termenv.EnvColorProfile()
			s, err := got.ANSI(cols, profile)
			if err != nil {
				return writeErr(cmd, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(s, "\n"))
			return nil
		},
	}
	cmd.Flags().IntVar(&size, "size", 128, "Edge of the preview in pixels")
	cmd.Flags().IntVar(&cols, "cols", 0, "Terminal columns to draw into (default size/4)")
	cmd.Flags().StringSliceVar(&plugins, "plugins", nil, "Preview plugins to use ("+strings.Join(preview.Plugins(), ",")+")")
	cmd.Flags().BoolVar(&raw, "raw", false, "Write the preview data in --format instead of drawing it")
	return cmd
}
