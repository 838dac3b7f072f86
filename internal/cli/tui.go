package cli

import (
	"dirview/internal/logging"
	"dirview/internal/session"
	"dirview/internal/tui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTUICmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "tui [dir]",
		Short: "Browse a directory interactively",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, app, targetDir(args))
		},
	}
}

func runTUI(cmd *cobra.Command, app *App, dir string) error {
	// Log lines would tear the screen; only a log file gets them.
	if app.LogFile == "" {
		restore := logging.Replace(zap.NewNop())
		defer restore()
	}

	s, err := openSession(cmd, app, session.Options{Tree: true, Watch: true})
	if err != nil {
		return writeErr(cmd, err)
	}
	defer s.Close()

	return tui.Run(cmd.Context(), s, dir)
}
