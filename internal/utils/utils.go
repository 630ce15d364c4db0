package utils

import "strings"

// A matcher starting with * (e.g. *@clinic.org) matches any value ending in
// the rest of it. Anything else has to match exactly.
func MatchesWithWildcard(value string, matcher string) bool {
	if rest, ok := strings.CutPrefix(matcher, "*"); ok {
		return strings.HasSuffix(value, rest)
	}
	return value == matcher
}

// Email addresses are compared case-insensitively
func TestStringAgainstSliceMatchers(matchers []string, value string) bool {
	value = strings.ToLower(value)
	for _, matcher := range matchers {
		if MatchesWithWildcard(value, strings.ToLower(matcher)) {
			return true
		}
	}

	return false
}

// Only relative, same-origin paths are accepted as redirect targets
func IsLocalPath(target string) bool {
	if !strings.HasPrefix(target, "/") {
		return false
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return false
	}
	return true
}
