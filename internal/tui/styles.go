package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bytetube/bytetube-chat/internal/chatclient"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141"))
	countStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("183"))
	timeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))

	badgeStyle = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("0"))
)

func stateColor(s chatclient.State) lipgloss.Color {
	switch s {
	case chatclient.StateOpen:
		return lipgloss.Color("42")
	case chatclient.StateConnecting:
		return lipgloss.Color("214")
	default:
		return lipgloss.Color("196")
	}
}

func renderBadge(s chatclient.State) string {
	return badgeStyle.Background(stateColor(s)).Render(s.Label())
}
