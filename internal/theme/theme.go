package theme

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
)

// HeaderStyle is used for the run title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// CourseStyle is used for course names in the summary.
var CourseStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorBlue)

// ProgressStyle is used for plain progress lines.
var ProgressStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// HelpStyle is used for hints and secondary text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// SuccessStyle marks a completed run.
var SuccessStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorGreen)

// ErrorStyle marks a failed run.
var ErrorStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorRed)

// DueStyle returns a color-coded style for an assignment due at due,
// relative to now. Undated assignments use the gray style.
func DueStyle(due *time.Time, now time.Time) lipgloss.Style {
	base := lipgloss.NewStyle()

	if due == nil {
		return base.Foreground(ColorGray)
	}

	left := due.Sub(now)
	switch {
	case left < 0:
		return base.Foreground(ColorRed).Bold(true)
	case left < 24*time.Hour:
		return base.Foreground(ColorOrange)
	case left < 72*time.Hour:
		return base.Foreground(ColorYellow)
	default:
		return base.Foreground(ColorGreen)
	}
}
