package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary    = lipgloss.Color("#6366F1") // Indigo accent
	Secondary  = lipgloss.Color("#0EA5E9") // Sky blue
	Success    = lipgloss.Color("#10B981") // Emerald
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			MarginBottom(1)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Foreground).
			Background(Primary).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(Muted).
			MarginTop(1)

	ChatNameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Secondary)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Italic(true)
)

// Table styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Primary).
				Align(lipgloss.Center)

	tableCellStyle = lipgloss.NewStyle().Padding(0, 1)

	TableRowStyle = tableCellStyle.Foreground(lipgloss.Color("255"))

	TableRowAltStyle = tableCellStyle.Foreground(lipgloss.Color("245"))

	TableRowSelectedStyle = tableCellStyle.
				Foreground(Foreground).
				Background(Secondary)
)

// Spinner style
var SpinnerStyle = lipgloss.NewStyle().Foreground(Primary)

// Emoji helpers for consistent iconography
const (
	IconSuccess = "✅"
	IconError   = "❌"
	IconWarning = "⚠️"
	IconRoom    = "🚪"
	IconHost    = "🎓"
	IconMicOn   = "🎤"
	IconMicOff  = "🔇"
	IconCamOn   = "🎥"
	IconCamOff  = "🚫"
	IconScreen  = "🖥️"
	IconChat    = "💬"
)

func PrintError(msg string) {
	fmt.Printf("%s %s\n", ErrorStyle.Render(IconError), ErrorStyle.Render(msg))
}

func PrintErrorf(format string, args ...any) {
	PrintError(fmt.Sprintf(format, args...))
}

func PrintWarning(msg string) {
	fmt.Printf("%s %s\n", WarningStyle.Render(IconWarning), WarningStyle.Render(msg))
}

func PrintSuccess(msg string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render(IconSuccess), msg)
}

func PrintSuccessf(format string, args ...any) {
	PrintSuccess(fmt.Sprintf(format, args...))
}
