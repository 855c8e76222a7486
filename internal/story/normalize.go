package story

import "strings"

// normalize lowercases and trims enum text from model output. Hyphen and
// underscore variants collapse to the canonical hyphenated form.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".:,")
	return strings.ReplaceAll(s, "_", "-")
}
