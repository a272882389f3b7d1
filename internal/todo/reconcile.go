package todo

import (
	"sort"
	"time"

	"github.com/nhle/canvas-todo/internal/crossref"
	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/store"
)

// Input is everything one reconciliation pass needs.
type Input struct {
	// Courses is the live graph from the fetcher, in fetch order.
	Courses []model.Course

	// Previous is the last rendered file, or a seeded document.
	Previous Document

	// Completed is the persisted manually completed set. It is updated
	// in place.
	Completed *store.CompletedSet

	Header       string
	WeeklyHeader string

	// WeeklyResetActive reports whether today is a weekly reset day.
	WeeklyResetActive bool

	// Now stamps newly recorded completions.
	Now time.Time
}

// Result is the outcome of a reconciliation pass.
type Result struct {
	// Open is every open assignment: dated ones by ascending due time,
	// then undated ones in fetch order.
	Open []*model.Assignment

	// Visible is Open minus the manually completed set, same order.
	Visible []*model.Assignment

	Anchors Anchors

	// WeeklyReset reports whether the weekly section is cleared on this
	// render.
	WeeklyReset bool

	// Recovered lists URLs newly taken from checked lines, in file order.
	Recovered []string

	// Pruned lists completed entries dropped because their assignment
	// is no longer open.
	Pruned []model.CompletedAssignment
}

// ResetBoundary is the index up to which previous lines are copied
// verbatim.
func (r *Result) ResetBoundary() int {
	if r.WeeklyReset {
		return r.Anchors.Weekly
	}
	if r.Anchors.Header < 0 {
		return 0
	}
	return r.Anchors.Header
}

// Reconcile merges the live assignments with the previous render and the
// completed set. Completed is updated with recovered check-offs and pruned
// of stale entries; the caller persists it before writing the new file.
func Reconcile(in Input) (*Result, error) {
	if in.Completed == nil {
		in.Completed = store.NewCompletedSet()
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	open := OpenAssignments(in.Courses)

	byURL := make(map[string]*model.Assignment, len(open))
	known := make(map[string]bool, len(open))
	for _, a := range open {
		byURL[a.Key()] = a
		known[a.Key()] = true
	}

	anchors, err := in.Previous.Locate(in.Header, in.WeeklyHeader)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Open:        open,
		Anchors:     anchors,
		WeeklyReset: in.WeeklyResetActive && anchors.Weekly >= 0,
	}

	body := in.Previous.Lines[anchors.BodyStart():]
	for _, url := range crossref.CheckedURLs(body, known) {
		a := byURL[url]
		rec := model.CompletedAssignment{
			URL:        url,
			Name:       a.Name,
			Course:     courseName(in.Courses, a.CourseIndex),
			RecordedAt: in.Now.UTC(),
		}
		if in.Completed.Add(rec) {
			res.Recovered = append(res.Recovered, url)
		}
	}

	res.Pruned = in.Completed.Prune(func(url string) bool {
		return known[url]
	})

	for _, a := range open {
		if !in.Completed.Has(a.Key()) {
			res.Visible = append(res.Visible, a)
		}
	}

	return res, nil
}

// OpenAssignments returns every assignment that is neither submitted nor
// complete through its module item. Dated assignments come first in
// ascending due order, ties kept in fetch order, followed by undated
// assignments in fetch order.
func OpenAssignments(courses []model.Course) []*model.Assignment {
	var dated, undated []*model.Assignment
	for i := range courses {
		for j := range courses[i].Assignments {
			a := &courses[i].Assignments[j]
			if !a.IsOpen() {
				continue
			}
			if a.HasDueDate() {
				dated = append(dated, a)
			} else {
				undated = append(undated, a)
			}
		}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].DueAt.Before(*dated[j].DueAt)
	})

	return append(dated, undated...)
}

func courseName(courses []model.Course, idx int) string {
	if idx < 0 || idx >= len(courses) {
		return ""
	}
	return courses[idx].Name
}
