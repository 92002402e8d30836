package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/standardbeagle/shotcheck/internal/snapshot"
)

var (
	colorRed    = lipgloss.Color("#ff5555")
	colorGreen  = lipgloss.Color("#50fa7b")
	colorYellow = lipgloss.Color("#f1fa8c")
	colorDim    = lipgloss.Color("#6272a4")

	passStyle   = lipgloss.NewStyle().Foreground(colorGreen).Bold(true)
	reviewStyle = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
)

var colorEnabled = isTerminal(os.Stdout)

func paint(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

func verdictStyle(v snapshot.Verdict) lipgloss.Style {
	switch v {
	case snapshot.VerdictPass:
		return passStyle
	case snapshot.VerdictReview:
		return reviewStyle
	default:
		return failStyle
	}
}

func verdictIcon(v snapshot.Verdict) string {
	switch v {
	case snapshot.VerdictPass:
		return "✅"
	case snapshot.VerdictReview:
		return "⚠️"
	default:
		return "❌"
	}
}
