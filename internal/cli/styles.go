// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Field palette.
var (
	leafColor    = lipgloss.Color("#7BC950")
	wheatColor   = lipgloss.Color("#E9C46A")
	loamColor    = lipgloss.Color("#A0522D")
	skyColor     = lipgloss.Color("#8ECAE6")
	stubbleColor = lipgloss.Color("#6B705C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(leafColor).
			MarginBottom(1)

	noticeStyle = lipgloss.NewStyle().Foreground(skyColor)
	doneStyle   = lipgloss.NewStyle().Foreground(leafColor)
	labelStyle  = lipgloss.NewStyle().Foreground(stubbleColor)
	yieldStyle  = lipgloss.NewStyle().Bold(true).Foreground(wheatColor)
	barStyle    = lipgloss.NewStyle().Foreground(wheatColor)

	fieldBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(loamColor).
			Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(loamColor)

	cellStyle = lipgloss.NewStyle().PaddingRight(2)
)

const (
	cropIcon  = "🌾"
	chartIcon = "📊"
	seedIcon  = "🌱"
	doneIcon  = "✓"
)

// Score bands for a held-out R². A fit below poorFit is flagged in the
// training report.
const (
	goodFit = 0.8
	poorFit = 0.5
)

// scoreStyle colours an R² by band: leaf for a good fit, wheat for a usable
// one, loam for a poor one.
func scoreStyle(r2 float64) lipgloss.Style {
	switch {
	case r2 >= goodFit:
		return lipgloss.NewStyle().Foreground(leafColor)
	case r2 >= poorFit:
		return lipgloss.NewStyle().Foreground(wheatColor)
	default:
		return lipgloss.NewStyle().Foreground(loamColor)
	}
}

// FormatSuccess marks a finished step.
func FormatSuccess(message string) string {
	return doneStyle.Render(doneIcon + " " + message)
}

// FormatInfo formats a progress notice.
func FormatInfo(message string) string {
	return noticeStyle.Render(seedIcon + " " + message)
}

// FormatTitle formats a title with the crop icon.
func FormatTitle(title string) string {
	return titleStyle.Render(cropIcon + " " + title)
}

// RenderBox renders content in a bordered box.
func RenderBox(title, content string) string {
	return fieldBox.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		titleStyle.UnsetMargins().Render(title),
		content,
	))
}
