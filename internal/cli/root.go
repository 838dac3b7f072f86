package cli

import (
	"fmt"
	"os"
	"strings"

	"dirview/internal/config"
	"dirview/internal/format"
	"dirview/internal/logging"
	"dirview/internal/role"
	"dirview/internal/session"

	"github.com/spf13/cobra"
)

type App struct {
	Format     string
	PrettyJSON bool
	LogLevel   string
	LogFile    string
	LogFormat  string
	NoCache    bool

	// View flags override the config file when set.
	Sort     string
	Order    string
	Hidden   bool
	DirsOnly bool
	Roles    []string
	Grouped  bool
	Previews bool
	DirSize  string
	Filter   string
	Mimes    []string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "dirview",
		Short:        "Browse and inspect directories the way a file manager's view sees them",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Browse the current directory interactively
  dirview

  # List a directory sorted by size, directories counted
  dirview ls --sort size --roles size,type ~/Downloads

  # Print two levels of a tree as a table
  dirview tree --depth 2 --format table .
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand means the browser.
			if len(args) == 0 {
				return runTUI(cmd, app, ".")
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return logging.Init(logging.Config{
			Level:      app.LogLevel,
			Format:     app.LogFormat,
			OutputPath: app.LogFile,
		})
	}
	cmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		_ = logging.Sync()
		return nil
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&app.Format, "format", envOr("DIRVIEW_FORMAT", "json"), "Output format ("+strings.Join(format.Formats(), "|")+")")
	pf.BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output (indented JSON/EDN, bordered tables)")
	pf.StringVar(&app.LogLevel, "log-level", envOr("DIRVIEW_LOG_LEVEL", "warn"), "Log level (debug|info|warn|error)")
	pf.StringVar(&app.LogFile, "log-file", envOr("DIRVIEW_LOG_FILE", ""), "Write logs to this file instead of stderr")
	pf.StringVar(&app.LogFormat, "log-format", envOr("DIRVIEW_LOG_FORMAT", "console"), "Log encoding (console|json)")
	pf.BoolVar(&app.NoCache, "no-cache", false, "Do not read or write the preview cache")

	pf.StringVar(&app.Sort, "sort", "", "Sort role (see `dirview roles`)")
	pf.StringVar(&app.Order, "order", "", "Sort order (ascending|descending)")
	pf.BoolVarP(&app.Hidden, "hidden", "a", false, "Show hidden files")
	pf.BoolVar(&app.DirsOnly, "dirs-only", false, "Show directories only")
	pf.StringSliceVar(&app.Roles, "roles", nil, "Roles to show next to the name (comma separated)")
	pf.BoolVar(&app.Grouped, "group", false, "Group items by the sort role")
	pf.BoolVar(&app.Previews, "previews", false, "Generate previews")
	pf.StringVar(&app.DirSize, "dir-size", "", "What the size of a directory means (count|size)")
	pf.StringVar(&app.Filter, "filter", "", "Only show items matching this pattern (wildcards allowed)")
	pf.StringSliceVar(&app.Mimes, "mime", nil, "Only show items of these MIME types")

	cmd.AddCommand(newLsCmd(app))
	cmd.AddCommand(newTreeCmd(app))
	cmd.AddCommand(newGroupsCmd(app))
	cmd.AddCommand(newWatchCmd(app))
	cmd.AddCommand(newRolesCmd(app))
	cmd.AddCommand(newPreviewCmd(app))
	cmd.AddCommand(newCacheCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newTUICmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// viewConfig loads the config file and applies the flags that were given.
func viewConfig(cmd *cobra.Command, app *App) (*config.View, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	overrides := []struct {
		flag, key string
		value     func() string
	}{
		{"sort", "sortRole", func() string { return app.Sort }},
		{"order", "sortOrder", func() string { return app.Order }},
		{"hidden", "showHidden", func() string { return fmt.Sprint(app.Hidden) }},
		{"dirs-only", "dirsOnly", func() string { return fmt.Sprint(app.DirsOnly) }},
		{"roles", "roles", func() string { return strings.Join(app.Roles, ",") }},
		{"group", "grouped", func() string { return fmt.Sprint(app.Grouped) }},
		{"previews", "previews", func() string { return fmt.Sprint(app.Previews) }},
		{"dir-size", "directorySizeMode", func() string { return app.DirSize }},
	}
	for _, o := range overrides {
		if !flags.Changed(o.flag) {
			continue
		}
		if err := cfg.Set(o.key, o.value()); err != nil {
			return nil, fmt.Errorf("--%s: %w", o.flag, err)
		}
	}
	return cfg, nil
}

// openSession opens a session for cmd with the view config and preview cache
// filled in. The caller closes it.
func openSession(cmd *cobra.Command, app *App, opts session.Options) (*session.Session, error) {
	cfg, err := viewConfig(cmd, app)
	if err != nil {
		return nil, err
	}
	cachePath := ""
	if !app.NoCache && cfg.Previews {
		if cachePath, err = session.DefaultCachePath(); err != nil {
			return nil, err
		}
	}
	opts.Config = cfg
	opts.CachePath = cachePath
	opts.Logger = logging.L()
	s, err := session.Open(cmd.Context(), opts)
	if err != nil {
		return nil, err
	}
	if app.Filter != "" {
		s.Model.SetNameFilter(app.Filter)
	}
	if len(app.Mimes) > 0 {
		s.Model.SetMimeTypeFilters(app.Mimes)
	}
	return s, nil
}

// shownRoles are the roles printed next to the name, in registry order.
func shownRoles(s *session.Session) []string {
	roles := s.Model.Roles()
	var out []string
	for _, info := range role.All() {
		if info.Name != role.Text && roles.Has(info.Name) {
			out = append(out, info.Name)
		}
	}
	return out
}

func targetDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, data any, hints ...string) error {
	if t, ok := data.(format.Tabular); ok && (app.Format == "table" || app.Format == "csv") {
		return format.Write(cmd.OutOrStdout(), t, app.Format, app.PrettyJSON)
	}
	env := map[string]any{"data": data}
	if len(hints) > 0 {
		env["_hints"] = hints
	}
	return format.Write(cmd.OutOrStdout(), env, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
