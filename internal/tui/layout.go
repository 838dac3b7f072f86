package tui

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// fitWidth cuts or pads s to exactly width columns. Escape sequences do not
// count.
func fitWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	// Bound the width computation on huge lines.
	if len(s) > 8192 {
		s = xansi.Cut(s, 0, width+1)
	}
	w := xansi.StringWidth(s)
	if w > width {
		s = xansi.Truncate(s, width, glyphEllipsis())
		w = xansi.StringWidth(s)
	}
	if w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

// alignRight cuts s to width columns and pads it on the left.
func alignRight(s string, width int) string {
	if w := xansi.StringWidth(s); w < width {
		return strings.Repeat(" ", width-w) + s
	}
	return fitWidth(s, width)
}

// normalizePane forces s to be exactly width columns wide and height lines
// tall, so panes line up when joined horizontally.
func normalizePane(s string, width, height int) string {
	width = max(width, 0)
	height = max(height, 0)

	lines := strings.Split(s, "\n")
	if height > 0 {
		if len(lines) > height {
			lines = lines[:height]
		}
		for len(lines) < height {
			lines = append(lines, "")
		}
	}
	for i, ln := range lines {
		lines[i] = fitWidth(ln, width)
	}
	return strings.Join(lines, "\n")
}
