package model

import "time"

// CompletedAssignment is an assignment the user checked off by hand in the
// rendered todo file. Canvas has no matching signal, so the record is kept
// in the side-car state file. Records are identified by URL.
type CompletedAssignment struct {
	URL        string    `json:"url"`
	Name       string    `json:"name,omitempty"`
	Course     string    `json:"course,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}
