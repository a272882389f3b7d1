package source

import (
	"errors"
	"fmt"
	"strings"
)

// APIError indicates that Canvas answered but reported a failure, either
// through an {"errors": [...]} envelope or a non-2xx status.
type APIError struct {
	StatusCode int
	Path       string
	Messages   []string
}

func (e *APIError) Error() string {
	msg := strings.Join(e.Messages, "\n")
	if msg == "" {
		msg = "unknown error"
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("canvas API error (%d) on %s: %s", e.StatusCode, e.Path, msg)
	}
	return fmt.Sprintf("canvas API error on %s: %s", e.Path, msg)
}

// IsAPIError reports whether err (or any error in its chain) is an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// TransportError indicates that the request never produced a response
// (connection refused, DNS failure, timeout).
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("requesting %s: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var tErr *TransportError
	return errors.As(err, &tErr)
}

// Progress is a coarse fetch progress notification.
type Progress struct {
	Done  int
	Total int
}

func (p Progress) String() string {
	return fmt.Sprintf("Course %d/%d", p.Done, p.Total)
}

// Fraction returns Done/Total in [0, 1].
func (p Progress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Done) / float64(p.Total)
}

// ProgressSink receives progress notifications synchronously from the
// fetching goroutine. Implementations must return promptly.
type ProgressSink interface {
	Report(p Progress)
}

// ProgressFunc adapts a plain function to ProgressSink.
type ProgressFunc func(p Progress)

// Report calls f(p).
func (f ProgressFunc) Report(p Progress) {
	f(p)
}

// Discard is a ProgressSink that ignores every notification.
var Discard ProgressSink = ProgressFunc(func(Progress) {})
