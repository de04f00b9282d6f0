// Package render formats assistant replies for the channels that show them.
package render

import (
	"html"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// HTML renders text for the web widget. URLs become links opening in a new
// tab, line breaks become <br> and everything else is escaped.
func HTML(text string) string {
	var b strings.Builder
	b.Grow(len(text) + 64)

	last := 0
	for _, loc := range urlPattern.FindAllStringIndex(text, -1) {
		b.WriteString(escape(text[last:loc[0]]))
		u := html.EscapeString(text[loc[0]:loc[1]])
		b.WriteString(`<a href="`)
		b.WriteString(u)
		b.WriteString(`" target="_blank" rel="noopener noreferrer">`)
		b.WriteString(u)
		b.WriteString(`</a>`)
		last = loc[1]
	}
	b.WriteString(escape(text[last:]))
	return b.String()
}

func escape(s string) string {
	s = html.EscapeString(strings.ReplaceAll(s, "\r\n", "\n"))
	return strings.ReplaceAll(s, "\n", "<br>")
}

// Plain renders text for chat channels that display raw text.
func Plain(text string) string {
	return strings.TrimSpace(text)
}
