package widget

import (
	"regexp"
	"strings"
)

var (
	boldPattern   = regexp.MustCompile(`\*\*(.*?)\*\*`)
	italicPattern = regexp.MustCompile(`_(.*?)_`)
	codePattern   = regexp.MustCompile("`([^`]+)`")
	linkPattern   = regexp.MustCompile(`https?://[^\s]+`)
)

// Format converts the small markdown subset used by chat replies into inline
// markup. Rules run once each, in order: bold, italic, code, newlines, links.
//
// The input is not escaped and later rules see the output of earlier ones.
// Underscores inside URLs are italicized and a URL immediately followed by a
// newline swallows the inserted <br>.
func Format(text string) string {
	out := boldPattern.ReplaceAllString(text, "<strong>${1}</strong>")
	out = italicPattern.ReplaceAllString(out, "<em>${1}</em>")
	out = codePattern.ReplaceAllString(out, "<code>${1}</code>")
	out = strings.ReplaceAll(out, "\n", "<br>")
	return linkPattern.ReplaceAllStringFunc(out, func(url string) string {
		return `<a href="` + url + `" target="_blank">` + url + `</a>`
	})
}
