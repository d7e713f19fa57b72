package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// ToolState represents the state of a tool invocation in the view
type ToolState int

const (
	ToolStateNone ToolState = iota
	ToolStatePending
	ToolStateCompleted
	ToolStateFailed
	ToolStateSkipped
)

// String returns the string representation of a ToolState
func (ts ToolState) String() string {
	switch ts {
	case ToolStatePending:
		return "pending"
	case ToolStateCompleted:
		return "completed"
	case ToolStateFailed:
		return "failed"
	case ToolStateSkipped:
		return "skipped"
	default:
		return ""
	}
}

// Indicator is the glyph shown in front of a tool header.
func (ts ToolState) Indicator() string {
	switch ts {
	case ToolStatePending:
		return "⏸"
	case ToolStateCompleted:
		return "✓"
	case ToolStateFailed:
		return "✗"
	case ToolStateSkipped:
		return "⊘"
	default:
		return "•"
	}
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginLeft(2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			MarginLeft(2)

	timestampStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	userRoleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	assistantRoleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	systemRoleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	toolNameStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("243")).Bold(true)
	summaryStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))

	writeModeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	readModeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

var toolStateStyles = map[ToolState]lipgloss.Style{
	ToolStateNone:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	ToolStatePending:   lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
	ToolStateCompleted: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	ToolStateFailed:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	ToolStateSkipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
}

// stateStyle returns the style for a tool state.
func stateStyle(state ToolState) lipgloss.Style {
	if s, ok := toolStateStyles[state]; ok {
		return s
	}
	return toolStateStyles[ToolStateNone]
}
