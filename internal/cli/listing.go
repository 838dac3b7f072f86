package cli

import (
	"fmt"
	"sort"
	"strings"

	"dirview/internal/model"
	"dirview/internal/preview"
	"dirview/internal/role"
	"dirview/internal/session"

	"github.com/spf13/cobra"
)

type itemOut struct {
	Index  int            `json:"index"`
	Name   string         `json:"name"`
	URL    string         `json:"url"`
	Dir    bool           `json:"dir"`
	Level  int            `json:"level,omitempty"`
	Group  string         `json:"group,omitempty"`
	Icon   string         `json:"icon,omitempty"`
	Values map[string]any `json:"values,omitempty"`
}

type groupOut struct {
	Index int    `json:"index"`
	Title string `json:"title"`
}

type listingOut struct {
	URL       string     `json:"url"`
	Count     int        `json:"count"`
	SortRole  string     `json:"sortRole"`
	SortOrder string     `json:"sortOrder"`
	Roles     []string   `json:"roles"`
	Items     []itemOut  `json:"items"`
	Groups    []groupOut `json:"groups,omitempty"`
}

// snapshot captures the model's current rows.
func snapshot(s *session.Session) listingOut {
	m := s.Model
	out := listingOut{
		URL:       m.URL(),
		Count:     m.Count(),
		SortRole:  m.SortRole(),
		SortOrder: m.SortOrder().String(),
		Roles:     shownRoles(s),
		Items:     make([]itemOut, 0, m.Count()),
	}

	var groups []model.Group
	if m.GroupedSorting() {
		groups = m.Groups()
		for _, g := range groups {
			out.Groups = append(out.Groups, groupOut{Index: g.Index, Title: fmt.Sprint(g.Value)})
		}
	}

	for i := range m.Count() {
		it := m.Item(i)
		d := m.Data(i)
		row := itemOut{
			Index:  i,
			Name:   it.Name(),
			URL:    it.URL(),
			Dir:    it.IsDir(),
			Level:  m.ExpandedParentsCount(i),
			Values: map[string]any{},
		}
		if name, ok := d[role.IconName].(string); ok {
			row.Icon = name
		}
		if g := groupAt(groups, i); g != nil {
			row.Group = fmt.Sprint(g.Value)
		}
		for _, r := range out.Roles {
			if v, ok := d[r]; ok {
				row.Values[r] = v
			}
		}
		if c, ok := d[role.Count]; ok && it.IsDir() {
			row.Values[role.Count] = c
		}
		if p, ok := d[role.IconPixmap].(preview.Preview); ok && !p.IsZero() {
			row.Values["preview"] = map[string]any{"kind": p.Kind.String(), "width": p.Width, "height": p.Height}
		}
		out.Items = append(out.Items, row)
	}
	return out
}

// groupAt returns the group the item at index belongs to.
func groupAt(groups []model.Group, index int) *model.Group {
	i := sort.Search(len(groups), func(i int) bool { return groups[i].Index > index })
	if i == 0 {
		return nil
	}
	return &groups[i-1]
}

func (l listingOut) Header() []string {
	h := []string{"Name"}
	for _, r := range l.Roles {
		h = append(h, role.TitleOf(r))
	}
	if len(l.Groups) > 0 {
		h = append(h, "Group")
	}
	return h
}

func (l listingOut) Rows() [][]string {
	rows := make([][]string, 0, len(l.Items))
	for _, it := range l.Items {
		name := strings.Repeat("  ", it.Level) + it.Name
		if it.Dir {
			name += "/"
		}
		row := []string{name}
		for _, r := range l.Roles {
			row = append(row, session.DisplayValue(r, it.Values, it.Dir))
		}
		if len(l.Groups) > 0 {
			row = append(row, it.Group)
		}
		rows = append(rows, row)
	}
	return rows
}

func newLsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [dir]",
		Short: "List a directory with the requested roles resolved",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, session.Options{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			if err := s.LoadAndSettle(cmd.Context(), targetDir(args)); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, snapshot(s), "dirview tree "+s.Model.URL(), "dirview groups --sort size "+s.Model.URL())
		},
	}
}

func newTreeCmd(app *App) *cobra.Command {
	var depth int
	cmd := &cobra.Command{
		Use:   "tree [dir]",
		Short: "List a directory with its subdirectories expanded in place",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if depth < 0 {
				return writeErr(cmd, errNegativeFlag("depth"))
			}
			s, err := openSession(cmd, app, session.Options{Tree: true})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			ctx := cmd.Context()
			if err := s.LoadAndSettle(ctx, targetDir(args)); err != nil {
				return writeErr(cmd, err)
			}
			if err := s.ExpandAll(ctx, depth); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, snapshot(s))
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "Levels of subdirectories to expand")
	return cmd
}

func newGroupsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "groups [dir]",
		Short: "Show how the sort role groups a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, app, session.Options{})
			if err != nil {
				return writeErr(cmd, err)
			}
			defer s.Close()

			s.Model.SetGroupedSorting(true)
			if err := s.LoadAndSettle(cmd.Context(), targetDir(args)); err != nil {
				return writeErr(cmd, err)
			}
			l := snapshot(s)
			return writeOut(cmd, app, groupsOut{SortRole: l.SortRole, Groups: groupMembers(l)})
		},
	}
}

type groupMembersOut struct {
	Title string   `json:"title"`
	Index int      `json:"index"`
	Items []string `json:"items"`
}

type groupsOut struct {
	SortRole string            `json:"sortRole"`
	Groups   []groupMembersOut `json:"groups"`
}

func groupMembers(l listingOut) []groupMembersOut {
	out := make([]groupMembersOut, 0, len(l.Groups))
	for _, g := range l.Groups {
		out = append(out, groupMembersOut{Title: g.Title, Index: g.Index, Items: []string{}})
	}
	for _, it := range l.Items {
		i := sort.Search(len(out), func(i int) bool { return out[i].Index > it.Index }) - 1
		if i >= 0 && it.Level == 0 {
			out[i].Items = append(out[i].Items, it.Name)
		}
	}
	return out
}

func (g groupsOut) Header() []string { return []string{"Group", "Items"} }

func (g groupsOut) Rows() [][]string {
	rows := make([][]string, 0, len(g.Groups))
	for _, grp := range g.Groups {
		rows = append(rows, []string{grp.Title, strings.Join(grp.Items, ", ")})
	}
	return rows
}
