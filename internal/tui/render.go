package tui

import (
	"fmt"
	"strings"

	"dirview/internal/model"
	"dirview/internal/preview"
	"dirview/internal/role"
	"dirview/internal/session"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	previewPaneWidth = 34
	// Panes only split when the name column keeps at least this many cells.
	minNameWidth = 24
)

// columnWidth is the width of a role column, name excluded.
func columnWidth(name string) int {
	switch name {
	case role.ModificationTime, role.CreationTime, role.AccessTime, role.DeletionTime, role.ImageDateTime:
		return len(session.TimeLayout)
	case role.Type, role.Path, role.Destination, role.OriginURL:
		return 22
	case role.Permissions:
		return 10
	default:
		return 12
	}
}

// columns are the roles shown next to the name that fit into width.
func (b *browser) columns(width int) []string {
	roles := b.s.Model.Roles()
	var out []string
	used := minNameWidth
	for _, info := range role.All() {
		if info.Name == role.Text || !roles.Has(info.Name) {
			continue
		}
		w := columnWidth(info.Name) + 1
		if used+w > width {
			break
		}
		used += w
		out = append(out, info.Name)
	}
	return out
}

func (b *browser) showsPreviewPane() bool {
	return b.s.Updater.PreviewsShown() && b.width-previewPaneWidth >= minNameWidth+previewPaneWidth/2
}

func (b *browser) View() string {
	listWidth := b.width
	if b.showsPreviewPane() {
		listWidth -= previewPaneWidth
	}

	body := b.renderList(listWidth)
	if b.showsPreviewPane() {
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			normalizePane(body, listWidth, b.listHeight()),
			normalizePane(b.renderPreview(previewPaneWidth-1), previewPaneWidth, b.listHeight()),
		)
	} else {
		body = normalizePane(body, listWidth, b.listHeight())
	}

	return strings.Join([]string{
		b.renderHeader(),
		body,
		b.renderStatus(),
		b.renderFooter(),
	}, "\n")
}

func (b *browser) renderHeader() string {
	m := b.s.Model
	title := styleTitle().Render(m.URL())
	sort := fmt.Sprintf("%s %s", role.TitleOf(m.SortRole()), glyphSortArrow(m.SortOrder() == model.Descending))
	right := styleChrome().Render(sort)
	gap := b.width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		return fitWidth(title, b.width)
	}
	return title + strings.Repeat(" ", gap) + right
}

func (b *browser) renderList(width int) string {
	m := b.s.Model
	cols := b.columns(width)
	nameWidth := width
	for _, c := range cols {
		nameWidth -= columnWidth(c) + 1
	}

	groups := b.groupStarts()
	last := b.lastShown(b.top, groups)
	var lines []string
	for i := b.top; i <= last; i++ {
		if title, ok := groups[i]; ok {
			lines = append(lines, fitWidth(styleGroup().Render(title), width))
		}
		lines = append(lines, b.renderRow(i, nameWidth, cols))
	}
	if len(lines) == 0 {
		switch {
		case b.s.Status.Loading:
			lines = append(lines, styleMuted().Render("loading"+glyphEllipsis()))
		case m.NameFilter() != "":
			lines = append(lines, styleMuted().Render("nothing matches "+m.NameFilter()))
		default:
			lines = append(lines, styleMuted().Render("empty directory"))
		}
	}
	return strings.Join(lines, "\n")
}

func (b *browser) renderRow(i, nameWidth int, cols []string) string {
	m := b.s.Model
	it := m.Item(i)
	data := m.Data(i)

	indent := strings.Repeat("  ", m.ExpandedParentsCount(i))
	twisty := " "
	switch {
	case m.IsExpanded(i):
		twisty = glyphTwistyExpanded()
	case m.IsExpandable(i):
		twisty = glyphTwistyCollapsed()
	}
	name := it.Name()
	style := lipgloss.NewStyle()
	switch {
	case it.IsDir():
		name += "/"
		style = styleDir()
	case it.IsLink():
		style = styleLink()
	}
	if it.IsHidden() {
		style = faintIfDark(style)
	}
	if i == b.cursor {
		style = style.Inherit(styleSelected())
	}

	cells := []string{fitWidth(indent+twisty+" "+name, nameWidth)}
	for _, c := range cols {
		v := session.DisplayValue(c, data, it.IsDir())
		cells = append(cells, alignRight(v, columnWidth(c)))
	}
	return style.Render(strings.Join(cells, " "))
}

// renderPreview draws the preview of the current item. The rendering is
// kept until the preview changes.
func (b *browser) renderPreview(width int) string {
	it := b.currentItem()
	if it == nil {
		return ""
	}
	p, _ := b.s.Model.Data(b.cursor)[role.IconPixmap].(preview.Preview)
	if p.IsZero() {
		return styleMuted().Render(" no preview")
	}
	k := fmt.Sprintf("%s|%d|%dx%d|%d", it.URL(), width, p.Width, p.Height, len(p.Data)+len(p.Lines))
	if k != b.previewKey {
		s, err := p.ANSI(width, lipgloss.ColorProfile())
		if err != nil {
			s = styleError().Render(err.Error())
		}
		b.previewKey, b.previewStr = k, s
	}
	lines := strings.Split(b.previewStr, "\n")
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n")
}

func (b *browser) renderStatus() string {
	m := b.s.Model
	st := b.s.Status
	switch b.mode {
	case modeFilter, modeJump:
		return fitWidth(b.input.View(), b.width)
	}

	var parts []string
	if !b.s.Settled() {
		parts = append(parts, b.spinner.View())
	}
	switch {
	case st.Err() != nil:
		parts = append(parts, styleError().Render(st.Err().Error()))
	case st.Loading:
		parts = append(parts, fmt.Sprintf("loading %d%%", st.Progress))
	case st.SortProgress < 100:
		parts = append(parts, fmt.Sprintf("sorting %d%%", st.SortProgress))
	default:
		parts = append(parts, b.summary())
	}
	if f := m.NameFilter(); f != "" {
		parts = append(parts, styleChrome().Render("filter: "+f))
	}
	if b.notice != "" {
		parts = append(parts, styleMuted().Render(b.notice))
	} else if st.Message != "" && st.Err() == nil {
		parts = append(parts, styleMuted().Render(st.Message))
	}
	return fitWidth(strings.Join(parts, "  "), b.width)
}

// summary counts the listed items the way a status bar does.
func (b *browser) summary() string {
	m := b.s.Model
	var dirs, files int
	var size int64
	for i := range m.Count() {
		it := m.Item(i)
		if it.IsDir() {
			dirs++
			continue
		}
		files++
		size += it.Size()
	}
	return fmt.Sprintf("%s folders, %s files (%s)", humanize.Comma(int64(dirs)), humanize.Comma(int64(files)), humanize.IBytes(uint64(size)))
}

func (b *browser) renderFooter() string {
	if b.help.ShowAll {
		return b.help.View(b.keys)
	}
	return fitWidth(styleMuted().Render(strings.Repeat(glyphHRule(), 2))+" "+b.help.View(b.keys), b.width)
}
