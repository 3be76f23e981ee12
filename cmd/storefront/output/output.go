package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

var (
	// Color styles for terminal output
	colorSuccess = lipgloss.Color("#10B981")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
	colorInfo    = lipgloss.Color("#3B82F6")
	colorMuted   = lipgloss.Color("#6B7280")
	colorPrimary = lipgloss.Color("#7C3AED")

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(colorInfo)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	primaryStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
)

// Success prints a success message
func Success(format string, args ...interface{}) {
	fmt.Print(successStyle.Render("✓ "))
	fmt.Printf(format+"\n", args...)
}

// Warning prints a warning message
func Warning(format string, args ...interface{}) {
	fmt.Print(warningStyle.Render("⚠ "))
	fmt.Printf(format+"\n", args...)
}

// Error prints an error message
func Error(format string, args ...interface{}) {
	fmt.Print(errorStyle.Render("✗ "))
	fmt.Printf(format+"\n", args...)
}

// Info prints an info message
func Info(format string, args ...interface{}) {
	fmt.Print(infoStyle.Render("ℹ "))
	fmt.Printf(format+"\n", args...)
}

// Muted prints a muted message
func Muted(format string, args ...interface{}) {
	fmt.Println(mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Section prints a section header
func Section(title string) {
	fmt.Println()
	fmt.Println(primaryStyle.Render(title))
	fmt.Println(mutedStyle.Render(strings.Repeat("═", lipgloss.Width(title))))
	fmt.Println()
}

// Money formats an amount with two decimals
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// Price formats a catalog price, which may be unset
func Price(p decimal.NullDecimal) string {
	if !p.Valid {
		return mutedStyle.Render("n/a")
	}
	if p.Decimal.IsZero() {
		return successStyle.Render("Free")
	}
	return Money(p.Decimal)
}

// StatusIcon returns a colored status icon
func StatusIcon(status string) string {
	switch status {
	case "applied", "approved", "Completed", "Released":
		return successStyle.Render("✓")
	case "pending", "Pending", "Early Access", "Alpha", "Beta", "Development":
		return warningStyle.Render("○")
	case "failed", "rejected", "Failed", "Cancelled":
		return errorStyle.Render("✗")
	case "Refunded", "On Hold":
		return infoStyle.Render("◉")
	default:
		return mutedStyle.Render("•")
	}
}

// Stars renders a 1-5 rating
func Stars(rating *int) string {
	if rating == nil {
		return mutedStyle.Render("unrated")
	}
	return warningStyle.Render(strings.Repeat("★", *rating)) + mutedStyle.Render(strings.Repeat("☆", 5-*rating))
}
