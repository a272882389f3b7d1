package model

import (
	"strconv"
	"strings"
	"time"
)

// ModuleItemTypeAssignment is the module item type that links to an
// assignment through its content ID.
const ModuleItemTypeAssignment = "Assignment"

// Course is an enrolled Canvas course together with the assignments and
// modules fetched for it during a single run.
type Course struct {
	// ID is the Canvas course identifier.
	ID int `json:"id"`

	// Name is the display name shown in course headings.
	Name string `json:"name"`

	// EnrollmentTermID groups the course into an academic term.
	EnrollmentTermID int `json:"enrollment_term_id"`

	// CourseCode is the short institutional code (e.g., CS101).
	CourseCode string `json:"course_code"`

	// HTMLURL is the canonical web URL of the course, derived from ID.
	HTMLURL string `json:"-"`

	Assignments []Assignment `json:"-"`
	Modules     []Module     `json:"-"`
}

// SetID assigns the course ID and derives HTMLURL from the web base URL.
func (c *Course) SetID(id int, webBaseURL string) {
	c.ID = id
	c.HTMLURL = strings.TrimRight(webBaseURL, "/") + "/courses/" + strconv.Itoa(id)
}

// GradesURL returns the link to the course's grades page.
func (c Course) GradesURL() string {
	return c.HTMLURL + "/grades"
}

// Assignment is a single Canvas assignment.
//
// ID is only meaningful within a run (module item joins). Key, the web URL,
// is the identity used to match an assignment across runs.
type Assignment struct {
	ID        int        `json:"id"`
	Name      string     `json:"name"`
	DueAt     *time.Time `json:"due_at"`
	Submitted bool       `json:"has_submitted_submissions"`
	HTMLURL   string     `json:"html_url"`

	// CourseIndex is the position of the owning course in the fetched
	// course slice.
	CourseIndex int `json:"-"`

	// ModuleItem is the module item that tracks completion of this
	// assignment, if any.
	ModuleItem *ModuleItem `json:"-"`
}

// Key returns the stable cross-run identity of the assignment.
func (a Assignment) Key() string {
	return a.HTMLURL
}

// HasDueDate reports whether the assignment carries a due timestamp.
func (a Assignment) HasDueDate() bool {
	return a.DueAt != nil
}

// IsOpen reports whether the assignment still needs work: it has not been
// submitted and no linked module item reports its requirement as met.
func (a Assignment) IsOpen() bool {
	if a.Submitted {
		return false
	}
	return a.ModuleItem == nil || !a.ModuleItem.Completed()
}

// Module is an ordered unit of course content.
type Module struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	State      string `json:"state"`
	ItemsCount int    `json:"items_count"`

	Items       []ModuleItem `json:"-"`
	CourseIndex int          `json:"-"`
}

// CompletionRequirement describes the progression criterion of a module item.
type CompletionRequirement struct {
	Type      string `json:"type"`
	Completed bool   `json:"completed"`
}

// ModuleItem is a single entry inside a module.
type ModuleItem struct {
	ID                    int                    `json:"id"`
	Title                 string                 `json:"title"`
	ModuleID              int                    `json:"module_id"`
	Type                  string                 `json:"type"`
	ContentID             int                    `json:"content_id"`
	HTMLURL               string                 `json:"html_url"`
	CompletionRequirement *CompletionRequirement `json:"completion_requirement,omitempty"`
}

// IsAssignment reports whether the item links to an assignment.
func (m ModuleItem) IsAssignment() bool {
	return m.Type == ModuleItemTypeAssignment
}

// Completed reports whether Canvas considers the item's requirement met.
// Items without a requirement are never complete.
func (m ModuleItem) Completed() bool {
	return m.CompletionRequirement != nil && m.CompletionRequirement.Completed
}
