package cli

import (
	"dirview/internal/role"

	"github.com/spf13/cobra"
)

type rolesOut []role.Info

func (r rolesOut) Header() []string { return []string{"Name", "Title", "Group", "Indexer"} }

func (r rolesOut) Rows() [][]string {
	rows := make([][]string, 0, len(r))
	for _, info := range r {
		indexer := ""
		if info.RequiresIndexer {
			indexer = "yes"
		}
		rows = append(rows, []string{info.Name, info.Title, info.Group, indexer})
	}
	return rows
}

func newRolesCmd(app *App) *cobra.Command {
	var available bool
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List the roles items can be shown and sorted by",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var out rolesOut
			for _, info := range role.All() {
				if available && info.RequiresIndexer {
					continue
				}
				out = append(out, info)
			}
			return writeOut(cmd, app, out, "dirview ls --roles size,type --sort size")
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "Only roles that resolve without a metadata indexer")
	return cmd
}
