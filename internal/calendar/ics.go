package calendar

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/nhle/canvas-todo/internal/model"
)

const productID = "-//canvastodo//Canvas assignments//EN"

// Build returns a calendar with one deadline event per dated assignment
// in items. Undated assignments are skipped. now stamps every event.
func Build(courses []model.Course, items []*model.Assignment, now time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName("Canvas assignments")

	for _, a := range items {
		if !a.HasDueDate() {
			continue
		}

		course := ""
		if a.CourseIndex >= 0 && a.CourseIndex < len(courses) {
			course = courses[a.CourseIndex].Name
		}

		event := cal.AddEvent(EventUID(a))
		event.SetDtStampTime(now)
		event.SetStartAt(*a.DueAt)
		event.SetEndAt(*a.DueAt)
		event.SetSummary(fmt.Sprintf("%s: %s", course, a.Name))
		event.SetURL(a.HTMLURL)
		event.SetDescription(fmt.Sprintf("Due %s\n%s", a.DueAt.UTC().Format(time.RFC3339), a.HTMLURL))
	}

	return cal
}

// Write serializes Build's calendar to w.
func Write(w io.Writer, courses []model.Course, items []*model.Assignment, now time.Time) error {
	return Build(courses, items, now).SerializeTo(w)
}

// EventUID derives a stable event id from the assignment URL so calendar
// clients update events in place across runs.
func EventUID(a *model.Assignment) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(a.Key())).String() + "@canvastodo"
}
