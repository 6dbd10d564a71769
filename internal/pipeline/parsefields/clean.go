package parsefields

import (
	"regexp"
	"strings"
)

var (
	reMultiSpace = regexp.MustCompile(`[^\S\r\n]{2,}`)
	reLineBreak  = regexp.MustCompile(`\r\n?|\x{2028}|\x{2029}|\x0b|\x0c`)
	reEdgeSpace  = regexp.MustCompile(`(?m)^[^\S\n]+|[^\S\n]+$`)
)

// Clean prepares recognized text for the rules: every line-break variant
// becomes "\n", stray "|" from tabular OCR output is dropped, runs of two or
// more blanks collapse to one space and the whole text is trimmed.
//
// Line breaks are kept so that line-anchored rules still see lines.
func Clean(s string) string {
	if s == "" {
		return s
	}
	s = reLineBreak.ReplaceAllString(s, "\n")
	s = strings.ReplaceAll(s, "|", " ")
	s = reMultiSpace.ReplaceAllString(s, " ")
	s = reEdgeSpace.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
