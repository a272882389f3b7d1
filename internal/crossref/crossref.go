package crossref

import (
	"regexp"
	"strings"
)

// linkTargetPattern matches the target of a markdown link, e.g. the URL in
// [HW1](https://canvas.example.edu/courses/1/assignments/10).
var linkTargetPattern = regexp.MustCompile(`\]\((https?://[^)\s]+)\)`)

// checkedPattern matches a checked markdown checkbox at the start of a
// line, optionally indented.
var checkedPattern = regexp.MustCompile(`^\s*[-*+] \[[xX]\]`)

// IsChecked reports whether line starts with a checked checkbox.
func IsChecked(line string) bool {
	return checkedPattern.MatchString(line)
}

// Uncheck rewrites a leading checked checkbox to an unchecked one.
// Other lines are returned unchanged.
func Uncheck(line string) string {
	loc := checkedPattern.FindStringIndex(line)
	if loc == nil {
		return line
	}
	box := line[:loc[1]]
	box = strings.Replace(box, "[x]", "[ ]", 1)
	box = strings.Replace(box, "[X]", "[ ]", 1)
	return box + line[loc[1]:]
}

// ExtractURLs extracts all markdown link targets from text.
// Returns a deduplicated list preserving the order of first occurrence.
func ExtractURLs(text string) []string {
	matches := linkTargetPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		url := m[1]
		if seen[url] {
			continue
		}
		seen[url] = true
		result = append(result, url)
	}
	return result
}

// CheckedURLs returns the link targets of every checked line, in line
// order. If known is non-nil, only URLs present in it are returned.
func CheckedURLs(lines []string, known map[string]bool) []string {
	seen := make(map[string]bool)
	var result []string
	for _, line := range lines {
		if !IsChecked(line) {
			continue
		}
		for _, url := range ExtractURLs(line) {
			if seen[url] {
				continue
			}
			if known != nil && !known[url] {
				continue
			}
			seen[url] = true
			result = append(result, url)
		}
	}
	return result
}
