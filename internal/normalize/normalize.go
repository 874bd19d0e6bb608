// Package normalize canonicalizes identity fields so rows and persisted
// records compare consistently.
package normalize

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
)

var fold = cases.Fold()

// Website canonicalizes a raw website string into a comparable absolute
// URL. Blank or whitespace-only input yields ok=false. Otherwise the value
// is trimmed, lowercased, stripped of exactly one trailing slash, and
// prefixed with https:// when no scheme is present. Malformed results are
// dropped silently (ok=false): callers treat "absent" and "invalid" the
// same way. Idempotent for any defined output.
func Website(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	s = strings.ToLower(s)
	s = strings.TrimSuffix(s, "/")
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", false
	}

	return s, true
}

// Field trims a raw cell value. Blank or whitespace-only cells are absent,
// not empty strings.
func Field(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	return s, s != ""
}

// Key produces the case-normalized form used for match comparisons.
// Unicode case folding, not plain lowercasing, so non-ASCII names compare
// correctly.
func Key(s string) string {
	return fold.String(strings.TrimSpace(s))
}
