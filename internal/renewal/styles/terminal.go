// Package styles holds the terminal palette of the renewal CLI.
package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
)

var (
	Title     = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	Stable    = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	Divergent = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	Muted     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	Failure   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	Success   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
)
