package tui

import (
	"fmt"
	"slices"

	"dirview/internal/fileitem"
	"dirview/internal/loop"
	"dirview/internal/model"
	"dirview/internal/role"
	"dirview/internal/session"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sahilm/fuzzy"
)

// sortCycle is the order the sort key steps through roles.
var sortCycle = []string{role.Text, role.Size, role.ModificationTime, role.Type, role.Extension}

// loopReadyMsg reports that the session's loop has queued work.
type loopReadyMsg struct{}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeFilter
	modeJump
)

// Lines taken by the header and the status line.
const chromeLines = 2

// browser shows one session. Update is the only place the session is used,
// so the loop is pumped there too.
type browser struct {
	s       *session.Session
	keys    keyMap
	help    help.Model
	spinner spinner.Model
	input   textinput.Model
	mode    inputMode

	width     int
	height    int
	cursor    int
	top       int
	// current is the URL under the cursor. The cursor follows it when items
	// move.
	current   string
	// selectURL becomes current once a load lists it.
	selectURL string
	// notice is a one-off message shown in the status line.
	notice    string

	previewKey string
	previewStr string
}

func newBrowser(s *session.Session, url string) *browser {
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = styleMuted()

	in := textinput.New()
	in.CharLimit = 200
	in.Width = 40

	b := &browser{
		s:       s,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spinner: sp,
		input:   in,
		width:   80,
		height:  24,
	}
	s.Load(url)
	return b
}

func waitLoop(l *loop.Loop) tea.Cmd {
	return func() tea.Msg {
		<-l.Ready()
		return loopReadyMsg{}
	}
}

func (b *browser) Init() tea.Cmd {
	return tea.Batch(waitLoop(b.s.Loop), b.spinner.Tick)
}

func (b *browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height
		b.help.Width = msg.Width

	case loopReadyMsg:
		b.s.Loop.RunPending()
		cmd = waitLoop(b.s.Loop)

	case spinner.TickMsg:
		b.spinner, cmd = b.spinner.Update(msg)

	case editorDoneMsg:
		if msg.err != nil {
			b.notice = fmt.Sprintf("%s failed: %v", editorName(), msg.err)
		}

	case tea.KeyMsg:
		switch b.mode {
		case modeFilter, modeJump:
			cmd = b.updateInput(msg)
		default:
			if key.Matches(msg, b.keys.Quit) {
				return b, tea.Quit
			}
			cmd = b.updateBrowse(msg)
		}
	}
	b.followCurrent()
	b.scroll()
	return b, cmd
}

func (b *browser) updateBrowse(msg tea.KeyMsg) tea.Cmd {
	m := b.s.Model
	b.notice = ""
	switch {
	case key.Matches(msg, b.keys.Up):
		b.moveCursor(-1)
	case key.Matches(msg, b.keys.Down):
		b.moveCursor(1)
	case key.Matches(msg, b.keys.PageUp):
		b.moveCursor(-b.listHeight())
	case key.Matches(msg, b.keys.PageDown):
		b.moveCursor(b.listHeight())
	case key.Matches(msg, b.keys.Home):
		b.moveCursor(-m.Count())
	case key.Matches(msg, b.keys.End):
		b.moveCursor(m.Count())

	case key.Matches(msg, b.keys.Open):
		it := b.currentItem()
		if it == nil {
			return nil
		}
		if !it.IsDir() {
			b.notice = it.Name() + " is not a directory"
			return nil
		}
		b.open(it.URL(), "")
	case key.Matches(msg, b.keys.Parent):
		url := m.URL()
		if parent := fileitem.ParentURL(url); parent != "" {
			b.open(parent, url)
		}
	case key.Matches(msg, b.keys.Expand):
		if m.IsExpandable(b.cursor) && !m.IsExpanded(b.cursor) {
			m.SetExpanded(b.cursor, true)
		}
	case key.Matches(msg, b.keys.Collapse):
		b.collapse()
	case key.Matches(msg, b.keys.Refresh):
		m.Refresh(m.URL())
	case key.Matches(msg, b.keys.Edit):
		it := b.currentItem()
		if it == nil {
			return nil
		}
		if it.IsDir() {
			b.notice = it.Name() + " is a directory"
			return nil
		}
		return editFile(it.URL())
	case key.Matches(msg, b.keys.Yank):
		it := b.currentItem()
		if it == nil {
			return nil
		}
		if err := copyToClipboard(it.URL()); err != nil {
			b.notice = "copy failed: " + err.Error()
		} else {
			b.notice = "copied " + it.URL()
		}

	case key.Matches(msg, b.keys.Sort):
		i := slices.Index(sortCycle, m.SortRole())
		b.s.SetSortRole(sortCycle[(i+1)%len(sortCycle)])
	case key.Matches(msg, b.keys.Order):
		if m.SortOrder() == model.Ascending {
			m.SetSortOrder(model.Descending)
		} else {
			m.SetSortOrder(model.Ascending)
		}
	case key.Matches(msg, b.keys.Group):
		m.SetGroupedSorting(!m.GroupedSorting())
	case key.Matches(msg, b.keys.Hidden):
		b.s.SetShowHiddenFiles(!m.ShowHiddenFiles())
	case key.Matches(msg, b.keys.Previews):
		b.s.Updater.SetPreviewsShown(!b.s.Updater.PreviewsShown())

	case key.Matches(msg, b.keys.Filter):
		b.mode = modeFilter
		b.input.Prompt = "/"
		b.input.SetValue(m.NameFilter())
		return b.input.Focus()
	case key.Matches(msg, b.keys.Jump):
		b.mode = modeJump
		b.input.Prompt = "jump: "
		b.input.SetValue("")
		return b.input.Focus()
	case key.Matches(msg, b.keys.Help):
		b.help.ShowAll = !b.help.ShowAll
	}
	return nil
}

func (b *browser) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEnter:
		b.leaveInput()
		return nil
	case tea.KeyEsc:
		if b.mode == modeFilter {
			b.s.Model.SetNameFilter("")
		}
		b.leaveInput()
		return nil
	}

	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	switch b.mode {
	case modeFilter:
		b.s.Model.SetNameFilter(b.input.Value())
	case modeJump:
		b.jump(b.input.Value())
	}
	return cmd
}

func (b *browser) leaveInput() {
	b.mode = modeBrowse
	b.input.Blur()
}

// jump moves to the first item starting with text, or to the best fuzzy
// match when nothing does.
func (b *browser) jump(text string) {
	if text == "" {
		return
	}
	m := b.s.Model
	if i := m.IndexForKeyboardSearch(text, b.cursor); i >= 0 {
		b.setCursor(i)
		return
	}
	names := make([]string, m.Count())
	for i := range names {
		names[i] = m.Item(i).Name()
	}
	if matches := fuzzy.Find(text, names); len(matches) > 0 {
		b.setCursor(matches[0].Index)
	}
}

// open loads url. selectURL is put under the cursor once it shows up.
func (b *browser) open(url, selectURL string) {
	b.s.Load(url)
	b.cursor = 0
	b.top = 0
	b.current = ""
	b.selectURL = selectURL
}

// collapse closes the directory under the cursor, or moves to the parent of
// an item inside an expanded one.
func (b *browser) collapse() {
	m := b.s.Model
	if m.IsExpanded(b.cursor) {
		m.SetExpanded(b.cursor, false)
		return
	}
	level := m.ExpandedParentsCount(b.cursor)
	if level == 0 {
		return
	}
	for i := b.cursor - 1; i >= 0; i-- {
		if m.ExpandedParentsCount(i) < level {
			b.setCursor(i)
			return
		}
	}
}

func (b *browser) currentItem() *fileitem.Item {
	if b.cursor < 0 || b.cursor >= b.s.Model.Count() {
		return nil
	}
	return b.s.Model.Item(b.cursor)
}

func (b *browser) setCursor(i int) {
	b.cursor = i
	if it := b.currentItem(); it != nil {
		b.current = it.URL()
	}
}

func (b *browser) moveCursor(delta int) {
	n := b.s.Model.Count()
	if n == 0 {
		return
	}
	b.setCursor(min(max(b.cursor+delta, 0), n-1))
}

// followCurrent puts the cursor back on the current item after the model
// changed, and clamps it.
func (b *browser) followCurrent() {
	m := b.s.Model
	if b.selectURL != "" {
		if m.Index(b.selectURL) >= 0 {
			b.current, b.selectURL = b.selectURL, ""
		} else if !b.s.Lister.IsListing() {
			b.selectURL = ""
		}
	}
	if b.current != "" {
		if i := m.Index(b.current); i >= 0 {
			b.cursor = i
			return
		}
	}
	b.cursor = min(max(b.cursor, 0), max(m.Count()-1, 0))
	if it := b.currentItem(); it != nil {
		b.current = it.URL()
	}
}

func (b *browser) listHeight() int { return max(b.height-chromeLines-b.footerLines(), 1) }

func (b *browser) footerLines() int {
	if !b.help.ShowAll {
		return 1
	}
	n := 0
	for _, col := range b.keys.FullHelp() {
		n = max(n, len(col))
	}
	return n
}

// scroll keeps the cursor on screen and tells the roles updater which items
// are visible.
func (b *browser) scroll() {
	count := b.s.Model.Count()
	groups := b.groupStarts()
	if b.cursor < b.top {
		b.top = b.cursor
	}
	for b.top < b.cursor && b.lastShown(b.top, groups) < b.cursor {
		b.top++
	}
	b.top = min(max(b.top, 0), max(count-1, 0))

	visible := b.lastShown(b.top, groups) - b.top + 1
	b.s.Updater.SetMaximumVisibleItems(b.listHeight())
	b.s.Updater.SetVisibleIndexRange(b.top, visible)
}

// lastShown returns the last item index that fits on screen from top, with
// group headers taking a line each.
func (b *browser) lastShown(top int, groups map[int]string) int {
	lines := b.listHeight()
	count := b.s.Model.Count()
	i := top
	for ; i < count; i++ {
		need := 1
		if _, ok := groups[i]; ok {
			need++
		}
		if lines < need {
			break
		}
		lines -= need
	}
	return i - 1
}

// groupStarts maps the first index of each group to its title, nil when
// items are not grouped.
func (b *browser) groupStarts() map[int]string {
	m := b.s.Model
	if !m.GroupedSorting() {
		return nil
	}
	out := map[int]string{}
	for _, g := range m.Groups() {
		out[g.Index] = fmt.Sprint(g.Value)
	}
	return out
}
