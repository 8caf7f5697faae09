// Package cli provides styled terminal output for the yesan commands.
package cli

import (
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
	"github.com/forPelevin/gomoji"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#667eea")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#48bb78")
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#f6ad55")
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#f56565")
	// InfoColor indicates informational messages.
	InfoColor = lipgloss.Color("#63b3ed")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#718096")

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// InfoStyle formats informational messages.
	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// BoxStyle is used for bordered content boxes.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(PrimaryColor)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "⚠️"
	InfoIcon    = "ℹ️"
	BudgetIcon  = "💰"
	VoucherIcon = "📝"
	SearchIcon  = "🔍"
	ChatIcon    = "💬"
)

var plain atomic.Bool

// SetPlain switches every formatter to unstyled, emoji-free output.
func SetPlain(v bool) {
	plain.Store(v)
}

// IsPlain reports whether plain output is on.
func IsPlain() bool {
	return plain.Load()
}

// Plain strips emoji from s and collapses the spaces they leave behind.
func Plain(s string) string {
	lines := strings.Split(gomoji.RemoveEmojis(s), "\n")
	for i, line := range lines {
		lines[i] = strings.Join(strings.Fields(line), " ")
	}
	return strings.Join(lines, "\n")
}

// Text passes s through unchanged, or plain when plain output is on.
func Text(s string) string {
	if IsPlain() {
		return Plain(s)
	}
	return s
}

func render(style lipgloss.Style, s string) string {
	if IsPlain() {
		return Plain(s)
	}
	return style.Render(s)
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return render(SuccessStyle, SuccessIcon+" "+message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return render(ErrorStyle, ErrorIcon+" "+message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return render(WarningStyle, WarningIcon+" "+message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return render(InfoStyle, InfoIcon+" "+message)
}

// FormatTitle formats a title.
func FormatTitle(icon, title string) string {
	return render(TitleStyle, icon+" "+title)
}

// StyleSubtle formats secondary text.
func StyleSubtle(text string) string {
	return render(SubtleStyle, text)
}

// StyleBold formats emphasized text.
func StyleBold(text string) string {
	return render(BoldStyle, text)
}

// StyleColor renders text in a hex color.
func StyleColor(hex, text string) string {
	return render(lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Bold(true), text)
}

// RenderBox renders content in a styled box.
func RenderBox(title, content string) string {
	if IsPlain() {
		return Plain(title) + "\n" + Plain(content)
	}
	boxTitle := TitleStyle.UnsetMargins().Render(title)
	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, boxTitle, content))
}
