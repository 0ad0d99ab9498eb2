package cli

import "github.com/charmbracelet/lipgloss"

var (
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	okMark   = green.Render("✓")
	failMark = red.Render("✗")
	warnMark = yellow.Render("!")
)
