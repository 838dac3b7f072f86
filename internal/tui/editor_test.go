package tui

import (
	"reflect"
	"testing"
)

func TestSplitShellWords(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"vim", []string{"vim"}},
		{"code --wait", []string{"code", "--wait"}},
		{"vim -u 'foo bar'", []string{"vim", "-u", "foo bar"}},
		{"vim -c \"set ft=markdown\"", []string{"vim", "-c", "set ft=markdown"}},
		{"vim\\ -u\\ foo", []string{"vim -u foo"}},
	}

	for _, tt := range tests {
		if got := splitShellWords(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("splitShellWords(%q)=%v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestEditorCommand(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "code --wait")
	cmd := editorCommand("/tmp/a b.txt")
	if got, want := cmd.Args, []string{"code", "--wait", "/tmp/a b.txt"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}

	t.Setenv("VISUAL", "nano")
	if got := editorCommand("x").Args[0]; got != "nano" {
		t.Fatalf("VISUAL must win, got %s", got)
	}

	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "  ")
	if got := editorCommand("x").Args[0]; got != "vi" {
		t.Fatalf("fallback = %s", got)
	}
}
