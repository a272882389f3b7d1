package todo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHeaderNotFound is returned when the configured header line is missing
// from the todo file. The file was edited incompatibly and needs a manual
// fix; the run must not guess where to insert.
var ErrHeaderNotFound = errors.New("header line not found in todo file")

// Document is a todo file as an ordered sequence of lines without line
// terminators.
type Document struct {
	Lines []string
}

// ParseDocument splits file content into lines. CRLF endings are accepted
// and a single trailing newline does not produce an empty last line.
func ParseDocument(content string) Document {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return Document{}
	}
	return Document{Lines: strings.Split(content, "\n")}
}

// SeedDocument returns the content used when no todo file exists yet:
// just the header line, or nothing when no header is configured.
func SeedDocument(header string) Document {
	if header == "" {
		return Document{}
	}
	return Document{Lines: []string{header}}
}

// String joins the lines with newlines and terminates the last one.
func (d Document) String() string {
	if len(d.Lines) == 0 {
		return ""
	}
	return strings.Join(d.Lines, "\n") + "\n"
}

// IndexOf returns the index of the first line equal to want, ignoring
// trailing whitespace on both, searching lines [0, limit). A negative
// limit searches the whole document. Returns -1 when absent.
func (d Document) IndexOf(want string, limit int) int {
	if limit < 0 || limit > len(d.Lines) {
		limit = len(d.Lines)
	}
	want = strings.TrimRight(want, " \t")
	for i := 0; i < limit; i++ {
		if strings.TrimRight(d.Lines[i], " \t") == want {
			return i
		}
	}
	return -1
}

// Anchors are the positions of the configured header lines.
type Anchors struct {
	// Header is the index of the header line, or -1 when no header is
	// configured and content is inserted at the start of the file.
	Header int

	// Weekly is the index of the weekly header, or -1 when it is not
	// configured or does not appear above Header.
	Weekly int
}

// BodyStart is the index of the first generated line.
func (a Anchors) BodyStart() int {
	return a.Header + 1
}

// Locate finds header and weekly in d. A weekly header is only honoured
// when it appears above the header line.
func (d Document) Locate(header, weekly string) (Anchors, error) {
	anchors := Anchors{Header: -1, Weekly: -1}

	if header != "" {
		anchors.Header = d.IndexOf(header, -1)
		if anchors.Header < 0 {
			return anchors, fmt.Errorf("%w: %q", ErrHeaderNotFound, header)
		}
	}

	if weekly != "" && anchors.Header > 0 {
		anchors.Weekly = d.IndexOf(weekly, anchors.Header)
	}

	return anchors, nil
}
