package app

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/nhle/canvas-todo/internal/theme"
)

// summaryLimit caps how many upcoming assignments the summary lists.
const summaryLimit = 5

// WriteSummary prints a short report of the run: counts, manual
// completions picked up, and the next few dated assignments.
func WriteSummary(w io.Writer, s *Summary) {
	var b strings.Builder

	b.WriteString(theme.SuccessStyle.Render("✓ "+s.OutputPath) + "\n")
	fmt.Fprintf(&b, "  %s across %s, %d hidden as done by hand\n",
		plural(len(s.Visible), "open assignment"),
		plural(len(s.Courses), "course"),
		len(s.Open)-len(s.Visible),
	)
	if n := len(s.Recovered); n > 0 {
		fmt.Fprintf(&b, "  %s checked off since the last run\n", plural(n, "assignment"))
	}
	if n := len(s.Pruned); n > 0 {
		fmt.Fprintf(&b, "  %s dropped from the completed list\n", plural(n, "stale entry"))
	}
	if s.WeeklyReset {
		b.WriteString("  weekly section reset\n")
	}
	if s.CalendarPath != "" {
		fmt.Fprintf(&b, "  calendar written to %s\n", s.CalendarPath)
	}

	shown := 0
	for _, a := range s.Visible {
		if shown == summaryLimit {
			break
		}
		if !a.HasDueDate() {
			continue
		}
		if shown == 0 {
			b.WriteString("\n" + theme.HelpStyle.Render("Next due") + "\n")
		}
		course := ""
		if a.CourseIndex >= 0 && a.CourseIndex < len(s.Courses) {
			course = s.Courses[a.CourseIndex].Name
		}
		when := humanize.RelTime(*a.DueAt, s.FinishedAt, "ago", "from now")
		fmt.Fprintf(&b, "  %s %s %s\n",
			theme.DueStyle(a.DueAt, s.FinishedAt).Render(when),
			theme.CourseStyle.Render(course),
			a.Name,
		)
		shown++
	}

	io.WriteString(w, b.String())
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	if strings.HasSuffix(noun, "y") {
		return fmt.Sprintf("%d %sies", n, strings.TrimSuffix(noun, "y"))
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
