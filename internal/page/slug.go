package page

import (
	"regexp"
	"strings"
)

// DefaultSlug is used when normalization leaves nothing usable.
const DefaultSlug = "untitled-page"

// slugUnsafe matches every character that may not appear in a filename
// stem.
var slugUnsafe = regexp.MustCompile(`[^a-z0-9-]`)

// NormalizeSlug makes a slug URL- and filename-safe: lowercase, with
// every character outside [a-z0-9-] replaced by a hyphen. The result
// is the stem of the published filename. Normalization is idempotent.
func NormalizeSlug(s string) string {
	s = strings.ToLower(s)
	s = slugUnsafe.ReplaceAllString(s, "-")
	if s == "" {
		return DefaultSlug
	}
	return s
}
