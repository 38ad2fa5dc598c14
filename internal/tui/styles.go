package tui

import "github.com/charmbracelet/lipgloss"

// Theme holds the editor's styles.
type Theme struct {
	Title        lipgloss.Style
	Group        lipgloss.Style
	Label        lipgloss.Style
	FocusedLabel lipgloss.Style
	Loaded       lipgloss.Style
	Banner       lipgloss.Style
	Status       lipgloss.Style
	ApplyButton  lipgloss.Style
	StopButton   lipgloss.Style
	Disabled     lipgloss.Style
}

// DefaultTheme uses a green apply button and a red stop button.
var DefaultTheme = Theme{
	Title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7289DA")),
	Group: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1),
	Label:        lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	FocusedLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("#7289DA")).Bold(true),
	Loaded:       lipgloss.NewStyle().Italic(true),
	Banner: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#990000")).
		Padding(0, 1),
	Status: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	ApplyButton: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#274E13")).
		Padding(0, 2),
	StopButton: lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#990000")).
		Padding(0, 2),
	Disabled: lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Background(lipgloss.Color("236")).
		Padding(0, 2),
}
