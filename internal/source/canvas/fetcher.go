package canvas

import (
	"context"
	"fmt"

	"github.com/nhle/canvas-todo/internal/model"
	"github.com/nhle/canvas-todo/internal/source"
)

// pageSize is large enough that no list endpoint needs pagination.
const pageSize = 200

// DuplicateAssignmentError is returned when a course lists the same
// assignment id twice, which would break the module item join.
type DuplicateAssignmentError struct {
	CourseID     int
	AssignmentID int
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf(
		"course %d lists assignment %d more than once",
		e.CourseID, e.AssignmentID,
	)
}

// Fetcher retrieves courses with their assignments and modules and links
// assignments to the module items that track their completion.
type Fetcher struct {
	caller     Caller
	webBaseURL string
}

// NewFetcher creates a Fetcher. webBaseURL is used to derive course URLs.
func NewFetcher(caller Caller, webBaseURL string) *Fetcher {
	return &Fetcher{caller: caller, webBaseURL: webBaseURL}
}

// ListCourses returns every course the user is enrolled in. An empty body
// yields no courses.
func (f *Fetcher) ListCourses(ctx context.Context) ([]model.Course, error) {
	var courses []model.Course
	path := fmt.Sprintf("courses?per_page=%d", pageSize)
	if err := getJSON(ctx, f.caller, path, &courses); err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	for i := range courses {
		courses[i].SetID(courses[i].ID, f.webBaseURL)
	}
	return courses, nil
}

// CoursesForTerm returns the courses of one enrollment term, in the order
// Canvas lists them, each populated with assignments and modules. sink is
// notified after each course completes.
func (f *Fetcher) CoursesForTerm(
	ctx context.Context,
	termID int,
	sink source.ProgressSink,
) ([]model.Course, error) {
	all, err := f.ListCourses(ctx)
	if err != nil {
		return nil, err
	}

	var courses []model.Course
	for _, c := range all {
		if c.EnrollmentTermID == termID {
			courses = append(courses, c)
		}
	}

	if err := f.populate(ctx, courses, sink); err != nil {
		return nil, err
	}
	indexCourses(courses)
	return courses, nil
}

// CoursesForLatestTerm fetches the course list once to find the highest
// enrollment term id, then fetches that term.
func (f *Fetcher) CoursesForLatestTerm(
	ctx context.Context,
	sink source.ProgressSink,
) ([]model.Course, error) {
	all, err := f.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}

	latest := all[0].EnrollmentTermID
	for _, c := range all[1:] {
		if c.EnrollmentTermID > latest {
			latest = c.EnrollmentTermID
		}
	}
	return f.CoursesForTerm(ctx, latest, sink)
}

// CoursesForTerms fetches each term in turn and concatenates the results.
// With no term ids it falls back to the latest term. Repeated term ids are
// fetched once and a course is kept only the first time it appears.
func (f *Fetcher) CoursesForTerms(
	ctx context.Context,
	termIDs []int,
	sink source.ProgressSink,
) ([]model.Course, error) {
	if len(termIDs) == 0 {
		return f.CoursesForLatestTerm(ctx, sink)
	}

	seenTerms := make(map[int]bool, len(termIDs))
	seenCourses := make(map[int]bool)
	var courses []model.Course
	for _, id := range termIDs {
		if seenTerms[id] {
			continue
		}
		seenTerms[id] = true

		termCourses, err := f.CoursesForTerm(ctx, id, sink)
		if err != nil {
			return nil, fmt.Errorf("fetching term %d: %w", id, err)
		}
		for _, c := range termCourses {
			if seenCourses[c.ID] {
				continue
			}
			seenCourses[c.ID] = true
			courses = append(courses, c)
		}
	}
	indexCourses(courses)
	return courses, nil
}

// populate fetches assignments and modules for each course sequentially.
func (f *Fetcher) populate(
	ctx context.Context,
	courses []model.Course,
	sink source.ProgressSink,
) error {
	if sink == nil {
		sink = source.Discard
	}

	for i := range courses {
		course := &courses[i]

		assignments, err := f.courseAssignments(ctx, course.ID)
		if err != nil {
			return err
		}
		course.Assignments = assignments

		// The join map must be complete before any module is processed.
		byID := make(map[int]*model.Assignment, len(course.Assignments))
		for j := range course.Assignments {
			a := &course.Assignments[j]
			if _, dup := byID[a.ID]; dup {
				return &DuplicateAssignmentError{
					CourseID:     course.ID,
					AssignmentID: a.ID,
				}
			}
			byID[a.ID] = a
		}

		modules, err := f.courseModules(ctx, course.ID, byID)
		if err != nil {
			return err
		}
		course.Modules = modules

		sink.Report(source.Progress{Done: i + 1, Total: len(courses)})
	}

	return nil
}

func (f *Fetcher) courseAssignments(
	ctx context.Context,
	courseID int,
) ([]model.Assignment, error) {
	var assignments []model.Assignment
	path := fmt.Sprintf("courses/%d/assignments?per_page=%d", courseID, pageSize)
	if err := getJSON(ctx, f.caller, path, &assignments); err != nil {
		return nil, fmt.Errorf("fetching assignments for course %d: %w", courseID, err)
	}
	return assignments, nil
}

func (f *Fetcher) courseModules(
	ctx context.Context,
	courseID int,
	byID map[int]*model.Assignment,
) ([]model.Module, error) {
	var modules []model.Module
	path := fmt.Sprintf("courses/%d/modules?per_page=%d", courseID, pageSize)
	if err := getJSON(ctx, f.caller, path, &modules); err != nil {
		return nil, fmt.Errorf("fetching modules for course %d: %w", courseID, err)
	}

	for i := range modules {
		items, err := f.moduleItems(ctx, courseID, modules[i].ID)
		if err != nil {
			return nil, err
		}
		modules[i].Items = items

		for j := range items {
			item := &items[j]
			if !item.IsAssignment() {
				continue
			}
			if a, ok := byID[item.ContentID]; ok {
				a.ModuleItem = item
			}
		}
	}

	return modules, nil
}

func (f *Fetcher) moduleItems(
	ctx context.Context,
	courseID int,
	moduleID int,
) ([]model.ModuleItem, error) {
	var items []model.ModuleItem
	path := fmt.Sprintf(
		"courses/%d/modules/%d/items?per_page=%d", courseID, moduleID, pageSize,
	)
	if err := getJSON(ctx, f.caller, path, &items); err != nil {
		return nil, fmt.Errorf(
			"fetching items for module %d in course %d: %w", moduleID, courseID, err,
		)
	}
	return items, nil
}

// indexCourses points every assignment and module at its course's
// position in courses.
func indexCourses(courses []model.Course) {
	for i := range courses {
		for j := range courses[i].Assignments {
			courses[i].Assignments[j].CourseIndex = i
		}
		for j := range courses[i].Modules {
			courses[i].Modules[j].CourseIndex = i
		}
	}
}
