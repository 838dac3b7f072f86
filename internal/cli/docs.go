package cli

import (
	"fmt"

	"dirview/internal/docs"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/spf13/cobra"
)

type unknownTopicError struct {
	topic string
}

func (e unknownTopicError) Error() string {
	return fmt.Sprintf("unknown docs topic: %q (run `dirview docs` to list topics)", e.topic)
}

func newDocsCmd(app *App) *cobra.Command {
	var raw bool
	var width int

	cmd := &cobra.Command{
		Use:   "docs [topic]",
		Short: "Show documentation topics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return writeOut(cmd, app, map[string]any{"topics": docs.Topics()}, "dirview docs browsing --raw")
			}

			topic := args[0]
			body, ok := docs.Get(topic)
			if !ok {
				return writeErr(cmd, unknownTopicError{topic: topic})
			}
			if !raw {
				return writeOut(cmd, app, map[string]any{"topic": topic, "markdown": body})
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithStandardStyle(styles.NoTTYStyle),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return writeErr(cmd, err)
			}
			out, err := r.Render(body)
			if err != nil {
				return writeErr(cmd, err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), out)
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Print the rendered topic instead of the JSON envelope")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap rendered text at this width")

	return cmd
}
