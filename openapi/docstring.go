package openapi

import (
	"regexp"
	"strings"
)

// raisesRegexp matches ":raises Name: description" lines.
var raisesRegexp = regexp.MustCompile(`(?m)^:raises[ \t]+(\w+)[ \t]*:[ \t]*(.*)$`)

// Docstring holds the parts extracted from free-form handler documentation.
type Docstring struct {
	Raw     string
	Summary string
	Details string
	Raises  map[string]string
}

// ParseDocstring splits text into a summary, details and raised errors.
//
// The summary is the first line of the cleaned text up to its first period.
// Details are the remaining text with every ":raises Name: ..." line removed.
// Only the leading summary is stripped from the details, so a summary that
// repeats later in the body leaves the later occurrence intact.
func ParseDocstring(text string) Docstring {
	raw := cleanDocstring(text)
	info := Docstring{
		Raw:    raw,
		Raises: make(map[string]string),
	}
	if raw == "" {
		return info
	}

	firstLine, _, _ := strings.Cut(strings.Trim(raw, " \n"), "\n")
	summary, _, _ := strings.Cut(firstLine, ".")
	info.Summary = strings.TrimSpace(summary)

	details := strings.TrimPrefix(raw, summary)
	details = strings.TrimLeft(details, ". \n")

	for _, m := range raisesRegexp.FindAllStringSubmatch(raw, -1) {
		info.Raises[m[1]] = strings.TrimSpace(m[2])
	}
	details = raisesRegexp.ReplaceAllString(details, "")

	info.Details = collapseBlankRuns(strings.TrimSpace(details))

	return info
}

// cleanDocstring removes the indentation shared by all lines after the
// first and drops leading and trailing blank lines.
func cleanDocstring(text string) string {
	text = strings.ReplaceAll(text, "\t", "    ")
	lines := strings.Split(text, "\n")

	indent := -1
	for _, line := range lines[1:] {
		stripped := strings.TrimLeft(line, " ")
		if stripped == "" {
			continue
		}
		n := len(line) - len(stripped)
		if indent < 0 || n < indent {
			indent = n
		}
	}

	lines[0] = strings.TrimSpace(lines[0])
	for i := 1; i < len(lines); i++ {
		if indent > 0 && len(lines[i]) >= indent {
			lines[i] = lines[i][indent:]
		}
		lines[i] = strings.TrimRight(lines[i], " ")
	}

	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	return strings.Join(lines, "\n")
}

// collapseBlankRuns reduces runs of blank lines left behind by removed
// raises lines to a single blank line.
func collapseBlankRuns(s string) string {
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return s
}
