// Package ui renders human-facing progress lines on stdout. Diagnostic
// output goes through slog; this package only covers the stage
// announcements, skip notices, and dry-run plans a user follows during a
// build.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	headlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	skipStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	planStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

// Headline announces the start of a build phase.
func Headline(format string, args ...any) {
	fmt.Println(headlineStyle.Render("==> " + fmt.Sprintf(format, args...)))
}

// Skip announces a phase that will not run.
func Skip(format string, args ...any) {
	fmt.Println(skipStyle.Render("==> " + fmt.Sprintf(format, args...)))
}

// Plan announces an action a dry run would have performed.
func Plan(format string, args ...any) {
	fmt.Println(planStyle.Render("[dry-run] ") + fmt.Sprintf(format, args...))
}

// Warn announces a non-fatal problem.
func Warn(format string, args ...any) {
	fmt.Println(warnStyle.Render("warning: " + fmt.Sprintf(format, args...)))
}

// Success announces a completed phase.
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render("✓ " + fmt.Sprintf(format, args...)))
}
