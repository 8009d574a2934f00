package discovery

import (
	"regexp"
	"strings"
)

// uniqueSuffix matches the " (N)" suffix operating systems append to an
// instance name to disambiguate it from an existing advertisement.
var uniqueSuffix = regexp.MustCompile(` \(\d+\)$`)

// NormalizeInstanceName strips a trailing OS-appended disambiguation
// suffix from an instance name: "My App (2)" becomes "My App". Names
// without the suffix are returned unchanged.
func NormalizeInstanceName(name string) string {
	return uniqueSuffix.ReplaceAllString(name, "")
}

// MatchesTarget reports whether a discovered candidate name satisfies a
// caller-supplied target filter. An empty target matches everything.
// Otherwise the candidate matches when, after normalization of both
// sides, it equals the target or starts with it. The prefix rule lets a
// known base name find its instance regardless of the suffix the OS
// picked; it also means short targets can over-match longer names
// sharing the prefix.
func MatchesTarget(candidate, target string) bool {
	if target == "" {
		return true
	}

	c := NormalizeInstanceName(candidate)
	t := NormalizeInstanceName(target)

	return c == t || strings.HasPrefix(c, t)
}
