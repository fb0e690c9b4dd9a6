package main

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// colorEnabled returns true if colored output should be used (respects --no-color and NO_COLOR env).
// NO_COLOR: if set (any value), color is disabled per https://no-color.org
func colorEnabled() bool {
	if noColor {
		return false
	}
	return os.Getenv("NO_COLOR") == ""
}

func render(style lipgloss.Style, s string) string {
	if !colorEnabled() {
		return s
	}
	return style.Render(s)
}

func colorGreen(s string) string  { return render(greenStyle, s) }
func colorRed(s string) string    { return render(redStyle, s) }
func colorYellow(s string) string { return render(yellowStyle, s) }
func colorDim(s string) string    { return render(dimStyle, s) }
func header(s string) string      { return render(headerStyle, s) }

func yesNo(b bool) string {
	if b {
		return colorGreen("yes")
	}
	return colorDim("no")
}
