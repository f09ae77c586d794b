// Package validate holds the shared format rules for short codes and target
// URLs. Both the management write path and the redirect read path apply the
// same rules, so a code that could never have been created is rejected
// before any storage lookup.
package validate

import (
	"regexp"
)

var (
	shortCodeRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,20}$`)
	targetURLRegex = regexp.MustCompile(`^https?://.+`)
)

// IsShortCode reports whether s is a well-formed short code: 3-20
// characters from [A-Za-z0-9_-], case-sensitive.
func IsShortCode(s string) bool {
	return shortCodeRegex.MatchString(s)
}

// IsTargetURL reports whether s is an acceptable redirect target. Only
// http and https schemes are allowed.
func IsTargetURL(s string) bool {
	return targetURLRegex.MatchString(s)
}
