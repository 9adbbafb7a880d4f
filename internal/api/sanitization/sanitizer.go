package sanitization

import (
	"html/template"
	"regexp"
	"strings"
)

var whitespace = regexp.MustCompile(`\s+`)

// SingleLine collapses every whitespace run, newlines included, into one space
func SingleLine(input string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(input, " "))
}

// MultilineHTML escapes input for an HTML body and keeps its line breaks
func MultilineHTML(input string) template.HTML {
	safe := template.HTMLEscapeString(input)
	safe = strings.ReplaceAll(safe, "\r\n", "\n")
	safe = strings.ReplaceAll(safe, "\r", "\n")
	return template.HTML(strings.ReplaceAll(safe, "\n", "<br/>"))
}
