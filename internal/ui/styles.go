package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/harshul/coderun/internal/orchestrator"
)

// Styles holds all lipgloss styles for the workbench
type Styles struct {
	Header lipgloss.Style
	Footer lipgloss.Style

	// Session panes
	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneTitle   lipgloss.Style
	Floating    lipgloss.Style
	Modal       lipgloss.Style

	// Notice levels
	Info    lipgloss.Style
	Success lipgloss.Style
	Warn    lipgloss.Style
	Error   lipgloss.Style

	Dim      lipgloss.Style
	HelpKey  lipgloss.Style
	HelpDesc lipgloss.Style
}

var (
	subtle     = lipgloss.AdaptiveColor{Light: "#666", Dark: "#999"}
	highlight  = lipgloss.AdaptiveColor{Light: "#7D56F4", Dark: "#AD8EE6"}
	success    = lipgloss.AdaptiveColor{Light: "#00AA00", Dark: "#00FF00"}
	warning    = lipgloss.AdaptiveColor{Light: "#CC6600", Dark: "#FFAA00"}
	errorColor = lipgloss.AdaptiveColor{Light: "#AA0000", Dark: "#FF0000"}
	info       = lipgloss.AdaptiveColor{Light: "#0066CC", Dark: "#00AAFF"}
)

// DefaultStyles returns the default color scheme
func DefaultStyles() *Styles {
	return &Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(highlight).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(subtle).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(subtle).
			Padding(0, 1),

		Pane: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.AdaptiveColor{Light: "#CCCCCC", Dark: "#444444"}).
			Padding(0, 1),

		PaneFocused: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(0, 1),

		PaneTitle: lipgloss.NewStyle().
			Bold(true).
			Foreground(info),

		Floating: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(highlight).
			Padding(0, 1),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlight).
			Padding(1, 2),

		Info:    lipgloss.NewStyle().Foreground(info),
		Success: lipgloss.NewStyle().Foreground(success),
		Warn:    lipgloss.NewStyle().Foreground(warning),
		Error:   lipgloss.NewStyle().Foreground(errorColor).Bold(true),

		Dim: lipgloss.NewStyle().Foreground(subtle),

		HelpKey: lipgloss.NewStyle().
			Foreground(highlight).
			Bold(true),

		HelpDesc: lipgloss.NewStyle().
			Foreground(subtle),
	}
}

// Level picks the style for a notice level.
func (s *Styles) Level(l orchestrator.Level) lipgloss.Style {
	switch l {
	case orchestrator.LevelSuccess:
		return s.Success
	case orchestrator.LevelWarn:
		return s.Warn
	case orchestrator.LevelError:
		return s.Error
	default:
		return s.Info
	}
}
