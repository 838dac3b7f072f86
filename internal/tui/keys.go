package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Open     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Parent   key.Binding
	Filter   key.Binding
	Jump     key.Binding
	Sort     key.Binding
	Order    key.Binding
	Group    key.Binding
	Hidden   key.Binding
	Previews key.Binding
	Refresh  key.Binding
	Edit     key.Binding
	Yank     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:   key.NewBinding(key.WithKeys("pgup", "ctrl+b"), key.WithHelp("pgup", "page up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Home:     key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		End:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open dir")),
		Expand:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Parent:   key.NewBinding(key.WithKeys("backspace", "-"), key.WithHelp("-", "parent dir")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Jump:     key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "fuzzy jump")),
		Sort:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort role")),
		Order:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort order")),
		Group:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "groups")),
		Hidden:   key.NewBinding(key.WithKeys("."), key.WithHelp(".", "hidden files")),
		Previews: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previews")),
		Refresh:  key.NewBinding(key.WithKeys("r", "f5"), key.WithHelp("r", "refresh")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit file")),
		Yank:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy path")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Expand, k.Parent, k.Filter, k.Sort, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Home, k.End},
		{k.Open, k.Expand, k.Collapse, k.Parent, k.Refresh, k.Edit, k.Yank},
		{k.Filter, k.Jump, k.Sort, k.Order, k.Group},
		{k.Hidden, k.Previews, k.Help, k.Quit},
	}
}
