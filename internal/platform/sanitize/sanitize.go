// Package sanitize turns user and catalog supplied markup into plain text.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

type Policy struct {
	strict *bluemonday.Policy
}

func New() *Policy {
	return &Policy{strict: bluemonday.StrictPolicy()}
}

// Text strips every tag and unescapes entities. Catalog descriptions
// arrive as HTML; notes and reviews are stored as plain text.
func (p *Policy) Text(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "<br>", "\n")
	s = strings.ReplaceAll(s, "<br/>", "\n")
	s = strings.ReplaceAll(s, "</p>", "</p>\n")
	return strings.TrimSpace(html.UnescapeString(p.strict.Sanitize(s)))
}
