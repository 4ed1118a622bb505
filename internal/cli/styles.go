// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/pennywise/internal/model"
)

var (
	accentColor   = lipgloss.Color("#F4A259")
	incomeColor   = lipgloss.Color("#4ECDC4")
	expenseColor  = lipgloss.Color("#FF6B6B")
	transferColor = lipgloss.Color("#7AA2F7")
	warningColor  = lipgloss.Color("#FFE66D")
	subtleColor   = lipgloss.Color("#666666")

	// TitleStyle is used for report and section titles.
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(accentColor)

	// IncomeStyle colors money coming in. Success messages share it.
	IncomeStyle = lipgloss.NewStyle().Foreground(incomeColor)

	// ExpenseStyle colors money going out and negative balances. Errors share it.
	ExpenseStyle = lipgloss.NewStyle().Foreground(expenseColor)

	// TransferStyle colors movements between accounts.
	TransferStyle = lipgloss.NewStyle().Foreground(transferColor)

	// SubtleStyle formats footers, hints and placeholders.
	SubtleStyle = lipgloss.NewStyle().Foreground(subtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
)

// TypeStyle returns the style for a transaction type.
func TypeStyle(t model.TransactionType) lipgloss.Style {
	switch t {
	case model.TransactionTypeIncome:
		return IncomeStyle
	case model.TransactionTypeExpense:
		return ExpenseStyle
	case model.TransactionTypeTransfer:
		return TransferStyle
	}
	return SubtleStyle
}

// FormatType renders a transaction type as a lower case colored label.
func FormatType(t model.TransactionType) string {
	return TypeStyle(t).Render(strings.ToLower(string(t)))
}

// FormatSuccess formats a completed mutation.
func FormatSuccess(message string) string {
	return IncomeStyle.Render("✓ " + message)
}

// FormatError formats a failed command.
func FormatError(message string) string {
	return ExpenseStyle.Render("✗ " + message)
}

// FormatWarning formats entries skipped or work left undone.
func FormatWarning(message string) string {
	return warningStyle.Render("! " + message)
}

// FormatInfo formats progress notes such as entry counts.
func FormatInfo(message string) string {
	return SubtleStyle.Render(message)
}

// FormatTitle formats a title.
func FormatTitle(title string) string {
	return TitleStyle.Render(title)
}

// FormatPrompt formats a question waiting for an answer.
func FormatPrompt(prompt string) string {
	return BoldStyle.Render(prompt + " ")
}

// RenderBox renders a report with its title in a rounded box.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, TitleStyle.Render(title), content))
}
