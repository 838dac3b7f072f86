package main

import (
	"reflect"
	"testing"
)

func TestRewriteDirectBrowseArgs(t *testing.T) {
	t.Parallel()

	commands := map[string]bool{"ls": true, "tree": true, "tui": true, "help": true}
	dirs := map[string]bool{"src": true, "./docs": true, "ls": true}
	isDir := func(p string) bool { return dirs[p] }

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "no args",
			in:   []string{"dirview"},
			want: []string{"dirview"},
		},
		{
			name: "directory first token",
			in:   []string{"dirview", "src"},
			want: []string{"dirview", "tui", "src"},
		},
		{
			name: "directory after value flag",
			in:   []string{"dirview", "--sort", "size", "./docs"},
			want: []string{"dirview", "--sort", "size", "tui", "./docs"},
		},
		{
			name: "directory after equals flag",
			in:   []string{"dirview", "--sort=size", "src"},
			want: []string{"dirview", "--sort=size", "tui", "src"},
		},
		{
			name: "directory after bool flag",
			in:   []string{"dirview", "-a", "src"},
			want: []string{"dirview", "-a", "tui", "src"},
		},
		{
			name: "directory after double dash",
			in:   []string{"dirview", "--", "src"},
			want: []string{"dirview", "tui", "--", "src"},
		},
		{
			name: "subcommand not rewritten",
			in:   []string{"dirview", "ls", "src"},
			want: []string{"dirview", "ls", "src"},
		},
		{
			name: "command wins over a directory of the same name",
			in:   []string{"dirview", "ls"},
			want: []string{"dirview", "ls"},
		},
		{
			name: "unknown token that is no directory",
			in:   []string{"dirview", "wat"},
			want: []string{"dirview", "wat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rewriteDirectBrowseArgs(tt.in, commands, isDir)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("rewriteDirectBrowseArgs(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
