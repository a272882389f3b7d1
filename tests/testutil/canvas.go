package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	gosync "sync"
	"testing"
	"time"

	"github.com/nhle/canvas-todo/internal/source"
)

// PageSize mirrors the per_page value the fetcher sends.
const PageSize = 200

// CoursesPath and friends build the request paths the fetcher issues.
func CoursesPath() string {
	return fmt.Sprintf("courses?per_page=%d", PageSize)
}

func AssignmentsPath(courseID int) string {
	return fmt.Sprintf("courses/%d/assignments?per_page=%d", courseID, PageSize)
}

func ModulesPath(courseID int) string {
	return fmt.Sprintf("courses/%d/modules?per_page=%d", courseID, PageSize)
}

func ItemsPath(courseID, moduleID int) string {
	return fmt.Sprintf("courses/%d/modules/%d/items?per_page=%d", courseID, moduleID, PageSize)
}

// FakeCanvas is an in-memory Canvas API. Unknown paths answer like Canvas
// does for a missing resource.
type FakeCanvas struct {
	t *testing.T

	mu     gosync.Mutex
	bodies map[string][]byte
	errs   map[string]error
	calls  []string
}

// NewFakeCanvas returns an empty fake.
func NewFakeCanvas(t *testing.T) *FakeCanvas {
	t.Helper()
	return &FakeCanvas{
		t:      t,
		bodies: make(map[string][]byte),
		errs:   make(map[string]error),
	}
}

// Set serves v, encoded as JSON, at path.
func (f *FakeCanvas) Set(path string, v interface{}) *FakeCanvas {
	f.t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		f.t.Fatalf("encoding fixture for %s: %v", path, err)
	}
	f.mu.Lock()
	f.bodies[path] = data
	f.mu.Unlock()
	return f
}

// SetRaw serves body verbatim at path.
func (f *FakeCanvas) SetRaw(path, body string) *FakeCanvas {
	f.mu.Lock()
	f.bodies[path] = []byte(body)
	f.mu.Unlock()
	return f
}

// Fail makes path return err.
func (f *FakeCanvas) Fail(path string, err error) *FakeCanvas {
	f.mu.Lock()
	f.errs[path] = err
	f.mu.Unlock()
	return f
}

// Call implements canvas.Caller.
func (f *FakeCanvas) Call(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, path)
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	if body, ok := f.bodies[path]; ok {
		return body, nil
	}
	return nil, &source.APIError{
		StatusCode: 404,
		Path:       path,
		Messages:   []string{"The specified resource does not exist."},
	}
}

// Calls returns the paths requested so far, in order.
func (f *FakeCanvas) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Course is the wire form of a course fixture.
func Course(id, termID int, name string) map[string]interface{} {
	return map[string]interface{}{
		"id":                 id,
		"name":               name,
		"enrollment_term_id": termID,
		"course_code":        name,
	}
}

// Assignment is the wire form of an assignment fixture. A nil due leaves
// due_at null.
func Assignment(id int, name string, due *time.Time, submitted bool, url string) map[string]interface{} {
	a := map[string]interface{}{
		"id":                        id,
		"name":                      name,
		"due_at":                    nil,
		"has_submitted_submissions": submitted,
		"html_url":                  url,
	}
	if due != nil {
		a["due_at"] = due.UTC().Format(time.RFC3339)
	}
	return a
}

// Module is the wire form of a module fixture.
func Module(id int, name string) map[string]interface{} {
	return map[string]interface{}{"id": id, "name": name, "state": "unlocked"}
}

// AssignmentItem is the wire form of a module item that tracks an
// assignment's completion.
func AssignmentItem(id, moduleID, assignmentID int, completed bool) map[string]interface{} {
	return map[string]interface{}{
		"id":         id,
		"module_id":  moduleID,
		"type":       "Assignment",
		"content_id": assignmentID,
		"completion_requirement": map[string]interface{}{
			"type":      "must_submit",
			"completed": completed,
		},
	}
}

// Due parses an RFC 3339 timestamp for fixtures.
func Due(t *testing.T, s string) *time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatalf("parsing due %q: %v", s, err)
	}
	return &ts
}
