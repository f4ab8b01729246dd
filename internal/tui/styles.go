package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/leapstack-labs/leapexport/internal/notify"
)

type styles struct {
	title    lipgloss.Style
	bold     lipgloss.Style
	muted    lipgloss.Style
	cursor   lipgloss.Style
	selected lipgloss.Style
	success  lipgloss.Style
	errText  lipgloss.Style
	info     lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		bold:     lipgloss.NewStyle().Bold(true),
		muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		cursor:   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		selected: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		success:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		errText:  lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		info:     lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

func (s styles) notice(n notify.Notice) string {
	switch n.Level {
	case notify.LevelSuccess:
		return s.success.Render("✓ " + n.Message)
	case notify.LevelError:
		return s.errText.Render("✗ " + n.Message)
	default:
		return s.info.Render("i " + n.Message)
	}
}
