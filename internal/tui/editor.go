package tui

import (
	"os"
	"os/exec"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"
)

type editorDoneMsg struct {
	url string
	err error
}

func editorName() string {
	if v := strings.TrimSpace(os.Getenv("VISUAL")); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv("EDITOR")); v != "" {
		return v
	}
	return "vi"
}

// editorCommand builds the command that opens path in the user's editor.
func editorCommand(path string) *exec.Cmd {
	args := splitShellWords(editorName())
	if len(args) == 0 {
		args = []string{"vi"}
	}
	return exec.Command(args[0], append(args[1:], path)...)
}

// editFile suspends the program while the editor runs on url.
func editFile(url string) tea.Cmd {
	return tea.ExecProcess(editorCommand(url), func(err error) tea.Msg {
		return editorDoneMsg{url: url, err: err}
	})
}

// splitShellWords splits a command line into argv. Single and double quotes
// group words, and a backslash escapes the next rune outside single quotes.
func splitShellWords(s string) []string {
	var out []string
	var cur []rune
	inSingle, inDouble, escaped := false, false, false

	flush := func() {
		if len(cur) == 0 {
			return
		}
		out = append(out, string(cur))
		cur = cur[:0]
	}

	for _, r := range s {
		switch {
		case escaped:
			cur = append(cur, r)
			escaped = false
		case r == '\\' && !inSingle:
			escaped = true
		case r == '\'' && !inDouble:
			inSingle = !inSingle
		case r == '"' && !inSingle:
			inDouble = !inDouble
		case !inSingle && !inDouble && unicode.IsSpace(r):
			flush()
		default:
			cur = append(cur, r)
		}
	}
	flush()
	return out
}
