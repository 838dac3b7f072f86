// Package tui is the interactive directory browser.
package tui

import (
	"context"
	"errors"

	"dirview/internal/session"

	tea "github.com/charmbracelet/bubbletea"
)

// Run browses url in s until the user quits or ctx ends. s must not be used
// by anything else while Run is active.
func Run(ctx context.Context, s *session.Session, url string) error {
	applyThemePreference()
	applyColorProfilePreference()
	applyGlyphPreference()

	p := tea.NewProgram(newBrowser(s, url), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
