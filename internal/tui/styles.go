package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#F97316")
	primary = lipgloss.Color("#10B981")
	muted   = lipgloss.Color("240")
	warning = lipgloss.Color("#EAB308")
)

type styles struct {
	Sidebar      lipgloss.Style
	SidebarItem  lipgloss.Style
	SidebarFocus lipgloss.Style
	Header       lipgloss.Style
	User         lipgloss.Style
	Assistant    lipgloss.Style
	Timestamp    lipgloss.Style
	DevPane      lipgloss.Style
	Pending      lipgloss.Style
	Input        lipgloss.Style
	Status       lipgloss.Style
	Help         lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Sidebar: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(muted).
			Padding(0, 1),
		SidebarItem:  lipgloss.NewStyle(),
		SidebarFocus: lipgloss.NewStyle().Bold(true).Foreground(accent),
		Header:       lipgloss.NewStyle().Bold(true).Foreground(accent),
		User:         lipgloss.NewStyle().Bold(true).Foreground(primary),
		Assistant:    lipgloss.NewStyle().Bold(true).Foreground(accent),
		Timestamp:    lipgloss.NewStyle().Foreground(muted),
		DevPane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1),
		Pending: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warning).
			Padding(0, 1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
		Status: lipgloss.NewStyle().Foreground(muted).Italic(true),
		Help:   lipgloss.NewStyle().Foreground(muted),
	}
}
