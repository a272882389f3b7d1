package todo

import (
	"strconv"
	"time"

	"github.com/nhle/canvas-todo/internal/model"
)

const webBase = "https://canvas.example.edu"

var fixedNow = time.Date(2025, 1, 8, 9, 0, 0, 0, time.UTC)

func due(s string) *time.Time {
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &ts
}

func course(id int, name string, assignments ...model.Assignment) model.Course {
	c := model.Course{Name: name, EnrollmentTermID: 5}
	c.SetID(id, webBase)
	c.Assignments = assignments
	return c
}

func assignment(id int, name string, dueAt *time.Time) model.Assignment {
	return model.Assignment{
		ID:      id,
		Name:    name,
		DueAt:   dueAt,
		HTMLURL: assignmentURL(id),
	}
}

func assignmentURL(id int) string {
	return webBase + "/courses/1/assignments/" + strconv.Itoa(id)
}

// indexed sets CourseIndex the way the fetcher does.
func indexed(courses ...model.Course) []model.Course {
	for i := range courses {
		for j := range courses[i].Assignments {
			courses[i].Assignments[j].CourseIndex = i
		}
	}
	return courses
}
