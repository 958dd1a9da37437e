package theme

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/fang"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Label = lipgloss.NewStyle().
		Foreground(Secondary).
		Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)
)

// Confidence tiers
var (
	High = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Medium = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	Low = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)
)

// Components
var (
	BarFilled = lipgloss.NewStyle().
			Foreground(Secondary)

	BarEmpty = lipgloss.NewStyle().
			Foreground(Border)
)

// Confidence returns the style for a confidence level string.
func Confidence(level string) lipgloss.Style {
	switch strings.ToLower(level) {
	case "high":
		return High
	case "medium":
		return Medium
	}
	return Low
}

// Bar renders a horizontal bar of width cells filled to pct percent.
func Bar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(pct/100*float64(width) + 0.5)
	filled = max(0, min(filled, width))
	return BarFilled.Render(strings.Repeat("█", filled)) +
		BarEmpty.Render(strings.Repeat("░", width-filled))
}

// FangColorScheme maps the palette onto fang's help and error output.
func FangColorScheme(c lipgloss.LightDarkFunc) fang.ColorScheme {
	return fang.ColorScheme{
		Base:           Text,
		Title:          Primary,
		Description:    TextDim,
		Codeblock:      c(lipgloss.Color("#E2E8F0"), BgCard),
		Program:        Secondary,
		DimmedArgument: TextDim,
		Comment:        TextDim,
		Flag:           Success,
		FlagDefault:    TextDim,
		Command:        Accent,
		QuotedString:   Secondary,
		Argument:       Text,
		Help:           TextDim,
		Dash:           Border,
		ErrorHeader:    [2]color.Color{Text, Error},
		ErrorDetails:   Error,
	}
}
