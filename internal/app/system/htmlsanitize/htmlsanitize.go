// Package htmlsanitize cleans user-supplied text (display names, group
// names, captions) before it is stored.
package htmlsanitize

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// MaxNameLen bounds display and group names, in runes.
const MaxNameLen = 100

// MaxTextLen bounds free text such as captions, in runes.
const MaxTextLen = 2000

var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from s, collapses whitespace and truncates to
// max runes. The result is plain text, not HTML-escaped.
func PlainText(s string, max int) string {
	s = strict.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.Join(strings.Fields(s), " ")
	if max > 0 && utf8.RuneCountInString(s) > max {
		s = string([]rune(s)[:max])
	}
	return strings.TrimSpace(s)
}

// Name sanitizes a display or group name.
func Name(s string) string {
	return PlainText(s, MaxNameLen)
}

// Text sanitizes a caption or similar short free text.
func Text(s string) string {
	return PlainText(s, MaxTextLen)
}
