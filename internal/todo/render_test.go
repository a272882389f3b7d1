package todo

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/store"
)

const header = "## Assignments"

func renderOnce(t *testing.T, courses []model.Course, previous Document, completed *store.CompletedSet, loc *time.Location) Document {
	t.Helper()
	res, err := Reconcile(Input{
		Courses:   courses,
		Previous:  previous,
		Completed: completed,
		Header:    header,
		Now:       fixedNow,
	})
	require.NoError(t, err)
	return Render(RenderInput{
		Previous: previous,
		Result:   res,
		Courses:  courses,
		Location: loc,
		Now:      fixedNow,
	})
}

func TestRenderSingleDatedAssignment(t *testing.T) {
	courses := indexed(course(1, "CS101", assignment(10, "HW1", due("2025-01-10T00:00:00Z"))))

	got := renderOnce(t, courses, SeedDocument(header), store.NewCompletedSet(), time.UTC)

	want := strings.Join([]string{
		"## Assignments",
		"<!-- canvas-todo updated 2025-01-08 09:00 UTC -->",
		"",
		"### By Due Date",
		"",
		"- [ ] CS101: [HW1](" + assignmentURL(10) + ") [due::2025-01-10T00:00]",
		"",
		"### By Course",
		"",
		"#### [CS101](https://canvas.example.edu/courses/1/grades)",
		"",
		"- [ ] [HW1](" + assignmentURL(10) + ") [due::2025-01-10T00:00]",
	}, "\n") + "\n"
	assert.Equal(t, want, got.String())
}

func TestRenderSubmittedAssignmentDisappears(t *testing.T) {
	hw1 := assignment(10, "HW1", due("2025-01-10T00:00:00Z"))
	first := renderOnce(t, indexed(course(1, "CS101", hw1)), SeedDocument(header), store.NewCompletedSet(), time.UTC)

	hw1.Submitted = true
	second := renderOnce(t, indexed(course(1, "CS101", hw1)), first, store.NewCompletedSet(), time.UTC)

	assert.NotContains(t, second.String(), "HW1")
	assert.NotContains(t, second.String(), HeadingByDueDate)
	assert.NotContains(t, second.String(), HeadingByCourse)
	assert.Equal(t, "## Assignments\n<!-- canvas-todo updated 2025-01-08 09:00 UTC -->\n", second.String())
}

func TestRenderIsIdempotent(t *testing.T) {
	courses := indexed(
		course(1, "CS101",
			assignment(10, "HW1", due("2025-01-10T00:00:00Z")),
			assignment(11, "Reading", nil),
		),
		course(2, "MATH200", assignment(20, "PS1", due("2025-01-09T12:00:00Z"))),
	)
	previous := ParseDocument("# Notes\n- [ ] buy milk\n## Assignments\n- [ ] stale line\n")

	first := renderOnce(t, courses, previous, store.NewCompletedSet(), time.UTC)
	second := renderOnce(t, courses, first, store.NewCompletedSet(), time.UTC)

	assert.Equal(t, first.String(), second.String())
	assert.True(t, strings.HasPrefix(first.String(), "# Notes\n- [ ] buy milk\n## Assignments\n"))
	assert.NotContains(t, first.String(), "stale line")
}

func TestRenderGroupsByCourseWithoutEmptySections(t *testing.T) {
	courses := indexed(
		course(1, "CS101", assignment(10, "HW1", due("2025-01-10T00:00:00Z"))),
		course(2, "ART100", assignment(20, "Sketchbook", nil)),
		course(3, "EMPTY"),
	)

	out := renderOnce(t, courses, SeedDocument(header), store.NewCompletedSet(), time.UTC).String()

	byCourse := out[strings.Index(out, HeadingByCourse):strings.Index(out, HeadingUndated)]
	assert.Contains(t, byCourse, "#### [CS101]")
	assert.NotContains(t, byCourse, "ART100")

	undated := out[strings.Index(out, HeadingUndated):]
	assert.Contains(t, undated, "#### [ART100](https://canvas.example.edu/courses/2/grades)")
	assert.Contains(t, undated, "- [ ] [Sketchbook]("+assignmentURL(20)+") NO DUE DATE")
	assert.NotContains(t, undated, "CS101")
	assert.NotContains(t, out, "EMPTY")
}

func TestRenderUsesDisplayZone(t *testing.T) {
	cst := time.FixedZone("CST", -6*3600)
	courses := indexed(course(1, "CS101", assignment(10, "HW1", due("2025-01-10T00:00:00Z"))))

	out := renderOnce(t, courses, SeedDocument(header), store.NewCompletedSet(), cst).String()

	assert.Contains(t, out, "[due::2025-01-09T18:00]")
	assert.Contains(t, out, "<!-- canvas-todo updated 2025-01-08 03:00 CST -->")
}

func TestRenderEscapesLinkText(t *testing.T) {
	courses := indexed(course(1, "CS [Honors]", assignment(10, "Lab [2]", nil)))

	out := renderOnce(t, courses, SeedDocument(header), store.NewCompletedSet(), time.UTC).String()

	assert.Contains(t, out, `- [ ] [Lab \[2\]](`+assignmentURL(10)+`) NO DUE DATE`)
	assert.Contains(t, out, `#### [CS \[Honors\]](`)
}

func TestRenderHidesManuallyCompleted(t *testing.T) {
	courses := indexed(course(1, "CS101",
		assignment(10, "HW1", due("2025-01-10T00:00:00Z")),
		assignment(11, "HW2", due("2025-01-11T00:00:00Z")),
	))
	first := renderOnce(t, courses, SeedDocument(header), store.NewCompletedSet(), time.UTC)
	checked := strings.Replace(first.String(), "- [ ] CS101: [HW1]", "- [x] CS101: [HW1]", 1)

	completed := store.NewCompletedSet()
	second := renderOnce(t, courses, ParseDocument(checked), completed, time.UTC)

	assert.NotContains(t, second.String(), "[HW1]")
	assert.Contains(t, second.String(), "[HW2]")
	assert.True(t, completed.Has(assignmentURL(10)))

	third := renderOnce(t, courses, second, completed, time.UTC)
	assert.Equal(t, second.String(), third.String())
}

func TestRenderWeeklyReset(t *testing.T) {
	previous := ParseDocument(strings.Join([]string{
		"# Notes",
		"## Weekly",
		"- [x] Laundry",
		"  - [X] Groceries",
		"- [ ] Gym",
		"## Assignments",
	}, "\n"))

	for _, active := range []bool{true, false} {
		res, err := Reconcile(Input{
			Previous:          previous,
			Header:            header,
			WeeklyHeader:      "## Weekly",
			WeeklyResetActive: active,
			Now:               fixedNow,
		})
		require.NoError(t, err)
		out := Render(RenderInput{Previous: previous, Result: res, Location: time.UTC, Now: fixedNow})

		want := []string{"# Notes", "## Weekly", "- [x] Laundry", "  - [X] Groceries", "- [ ] Gym", header}
		if active {
			want = []string{"# Notes", "## Weekly", "- [ ] Laundry", "  - [ ] Groceries", "- [ ] Gym", header}
		}
		assert.Equal(t, want, out.Lines[:6], "active=%v", active)
		assert.True(t, IsTimestampComment(out.Lines[6]))
	}
}

func TestRenderWithoutHeaderReplacesWholeFile(t *testing.T) {
	courses := indexed(course(1, "CS101", assignment(10, "HW1", nil)))
	previous := ParseDocument("old generated content\n- [ ] [Gone](https://x/1) NO DUE DATE\n")

	res, err := Reconcile(Input{Courses: courses, Previous: previous, Now: fixedNow})
	require.NoError(t, err)
	out := Render(RenderInput{Previous: previous, Result: res, Courses: courses, Location: time.UTC, Now: fixedNow})

	assert.True(t, IsTimestampComment(out.Lines[0]))
	assert.NotContains(t, out.String(), "old generated content")
	assert.Contains(t, out.String(), "[HW1]")
}
