package main

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Color helpers mirroring the teacher's CLI styling idiom: small
// SprintFunc-backed helpers for inline text, lipgloss styles for anything
// with layout (padding, borders).
var (
	blue   = color.New(color.FgBlue).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var (
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	styleReason = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// formatTaskError renders a FAILED TaskResult's notes.error as a one-line
// summary with reason, and for RESOURCE_EXHAUSTION, the used/limit pair.
func formatTaskError(notes map[string]any) string {
	raw, ok := notes["error"]
	if !ok {
		return styleError.Render("task failed")
	}
	fields, ok := raw.(map[string]any)
	if !ok {
		return styleError.Render("task failed")
	}

	kind, _ := fields["kind"].(string)
	reason, _ := fields["reason"].(string)
	message, _ := fields["message"].(string)

	summary := styleError.Render(kind)
	if reason != "" {
		summary += " " + styleReason.Render(reason)
	}
	if message != "" {
		summary += ": " + message
	}
	if kind == "RESOURCE_EXHAUSTION" {
		if used, ok := fields["used"]; ok {
			if limit, ok := fields["limit"]; ok {
				summary += styleReason.Render(" (used=") + green(used) + styleReason.Render("/limit=") + yellow(limit) + styleReason.Render(")")
			}
		}
	}
	return summary
}
