// Package sanitize strips markup from user supplied free text before it is stored.
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()

	// bluemonday escapes these; plain text columns keep them literal.
	entityReplacer = strings.NewReplacer("&amp;", "&", "&#39;", "'", "&#34;", `"`)
)

// Text removes every tag and trims surrounding whitespace.
func Text(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(entityReplacer.Replace(strictPolicy.Sanitize(input)))
}

// HTML keeps basic formatting and drops scripts, handlers and styles.
func HTML(input string) string {
	return ugcPolicy.Sanitize(input)
}

// TextSlice sanitises each value and drops entries that end up empty.
func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	out := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if cleaned := Text(input); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
