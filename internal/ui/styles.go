package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/leafcam/leafcam/internal/severity"
)

// Colors used throughout the TUI.
var (
	ColorRed     = lipgloss.Color("#FF0000")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorOrange  = lipgloss.Color("#FF8800")
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorGray    = lipgloss.Color("#666666")
	ColorDimGray = lipgloss.Color("#444444")
	ColorWhite   = lipgloss.Color("#FFFFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
)

// Base styles reused by UI components.
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorGreen)

	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	ReadyDotStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	HaltedDotStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	PromptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorYellow)

	LabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite)

	PanelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	SavedStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	FooterKeyStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterDescStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	DividerStyle = lipgloss.NewStyle().
			Foreground(ColorDimGray)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta)

	CorrectStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	IncorrectStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)
)

// SeverityStyle colors a prediction by how severe it is.
func SeverityStyle(label severity.Label) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch label.Severity() {
	case "0", "1":
		return base.Foreground(ColorGreen)
	case "3", "5":
		return base.Foreground(ColorYellow)
	case "7":
		return base.Foreground(ColorOrange)
	case "9":
		return base.Foreground(ColorRed)
	}
	return base.Foreground(ColorGray)
}

// VerdictStyle colors a trial verdict.
func VerdictStyle(v severity.Verdict) lipgloss.Style {
	switch v {
	case severity.Correct:
		return CorrectStyle
	case severity.Incorrect:
		return IncorrectStyle
	}
	return DimStyle
}
