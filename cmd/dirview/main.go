package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"dirview/internal/cli"
)

// valueFlags are the persistent flags that take a separate value.
var valueFlags = map[string]bool{
	"--format":     true,
	"--log-level":  true,
	"--log-file":   true,
	"--log-format": true,
	"--sort":       true,
	"--order":      true,
	"--roles":      true,
	"--dir-size":   true,
	"--filter":     true,
	"--mime":       true,
}

// rewriteDirectBrowseArgs turns `dirview <dir>` into `dirview tui <dir>`.
// Cobra takes the first positional token for a subcommand, so argv is
// rewritten before parsing. Tokens naming a command are left alone.
func rewriteDirectBrowseArgs(argv []string, commands map[string]bool, isDir func(string) bool) []string {
	for i := 1; i < len(argv); i++ {
		a := strings.TrimSpace(argv[i])
		switch {
		case a == "":
			continue
		case a == "--":
			if i+1 < len(argv) && !commands[argv[i+1]] && isDir(argv[i+1]) {
				return insertAt(argv, i, "tui")
			}
			return argv
		case strings.HasPrefix(a, "-"):
			if !strings.Contains(a, "=") && valueFlags[a] {
				i++
			}
			continue
		}

		if !commands[a] && isDir(a) {
			return insertAt(argv, i, "tui")
		}
		return argv
	}
	return argv
}

func insertAt(argv []string, i int, tokens ...string) []string {
	out := make([]string, 0, len(argv)+len(tokens))
	out = append(out, argv[:i]...)
	out = append(out, tokens...)
	return append(out, argv[i:]...)
}

func isDir(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func main() {
	cmd := cli.NewRootCmd()

	commands := map[string]bool{"help": true, "completion": true}
	for _, c := range cmd.Commands() {
		commands[c.Name()] = true
		for _, a := range c.Aliases {
			commands[a] = true
		}
	}
	cmd.SetArgs(rewriteDirectBrowseArgs(os.Args, commands, isDir)[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
