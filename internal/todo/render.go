package todo

import (
	"fmt"
	"strings"
	"time"

	"github.com/nhle/canvas-todo/internal/crossref"
	"github.com/nhle/canvas-todo/internal/model"
)

// Section headings of the generated body.
const (
	HeadingByDueDate = "### By Due Date"
	HeadingByCourse  = "### By Course"
	HeadingUndated   = "### Undated Assignments"
)

// NoDueDate replaces the due field of undated assignments.
const NoDueDate = "NO DUE DATE"

const (
	dueLayout       = "2006-01-02T15:04"
	timestampLayout = "2006-01-02 15:04 MST"
)

var linkTextEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`)

// RenderInput carries what Render needs besides the reconciliation result.
type RenderInput struct {
	Previous Document
	Result   *Result
	Courses  []model.Course

	// Location is the display time zone for due dates and the timestamp.
	Location *time.Location

	// Now is the time written into the timestamp comment.
	Now time.Time
}

// Render builds the new file content: preserved lines, the weekly section
// (cleared when a reset is due), the header with a timestamp comment, and
// the generated assignment sections. Iteration is over slices only, so the
// output depends solely on the inputs.
func Render(in RenderInput) Document {
	loc := in.Location
	if loc == nil {
		loc = time.Local
	}
	res := in.Result
	prev := in.Previous.Lines

	var out []string

	boundary := res.ResetBoundary()
	out = append(out, prev[:boundary]...)

	if res.WeeklyReset {
		out = append(out, prev[res.Anchors.Weekly])
		for _, line := range prev[res.Anchors.Weekly+1 : res.Anchors.Header] {
			out = append(out, crossref.Uncheck(line))
		}
	}

	if res.Anchors.Header >= 0 {
		out = append(out, prev[res.Anchors.Header])
	}
	out = append(out, TimestampComment(in.Now, loc), "")

	var dated, undated []*model.Assignment
	for _, a := range res.Visible {
		if a.HasDueDate() {
			dated = append(dated, a)
		} else {
			undated = append(undated, a)
		}
	}

	if len(dated) > 0 {
		out = append(out, HeadingByDueDate, "")
		for _, a := range dated {
			out = append(out, fmt.Sprintf(
				"- [ ] %s: %s [due::%s]",
				courseName(in.Courses, a.CourseIndex), link(a), FormatDue(*a.DueAt, loc),
			))
		}
		out = append(out, "")

		out = append(out, HeadingByCourse, "")
		out = appendByCourse(out, in.Courses, dated, func(a *model.Assignment) string {
			return fmt.Sprintf("- [ ] %s [due::%s]", link(a), FormatDue(*a.DueAt, loc))
		})
	}

	if len(undated) > 0 {
		out = append(out, HeadingUndated, "")
		out = appendByCourse(out, in.Courses, undated, func(a *model.Assignment) string {
			return fmt.Sprintf("- [ ] %s %s", link(a), NoDueDate)
		})
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return Document{Lines: out}
}

// appendByCourse emits one subsection per course, in course order, for
// courses that have at least one of items. Items keep their given order.
func appendByCourse(
	out []string,
	courses []model.Course,
	items []*model.Assignment,
	format func(a *model.Assignment) string,
) []string {
	for i, c := range courses {
		var lines []string
		for _, a := range items {
			if a.CourseIndex == i {
				lines = append(lines, format(a))
			}
		}
		if len(lines) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("#### [%s](%s)", linkTextEscaper.Replace(c.Name), c.GradesURL()), "")
		out = append(out, lines...)
		out = append(out, "")
	}
	return out
}

// TimestampComment is the generated line under the header.
func TimestampComment(now time.Time, loc *time.Location) string {
	return fmt.Sprintf("<!-- canvas-todo updated %s -->", now.In(loc).Format(timestampLayout))
}

// IsTimestampComment reports whether line is a generated timestamp.
func IsTimestampComment(line string) bool {
	return strings.HasPrefix(line, "<!-- canvas-todo updated ") && strings.HasSuffix(line, " -->")
}

// FormatDue renders a due time in the display zone.
func FormatDue(due time.Time, loc *time.Location) string {
	return due.In(loc).Format(dueLayout)
}

func link(a *model.Assignment) string {
	return fmt.Sprintf("[%s](%s)", linkTextEscaper.Replace(a.Name), a.HTMLURL)
}
