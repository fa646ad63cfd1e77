// Package versions normalizes raw upstream version strings into comparable
// values and orders them.
//
// Two schemes are supported. The generic scheme splits a string into digit
// and letter runs and compares them segment by segment, numerically when
// both segments are numeric and lexicographically otherwise; a pre-release
// marker (alpha, beta, rc, pre, dev) sorts below any other segment, and a
// trailing one sorts below the release it precedes. The semver scheme
// delegates to strict semantic versioning.
package versions

import (
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/relwatch/relwatch/internal/core"
)

// Scheme identifiers accepted in Project.VersionScheme.
const (
	SchemeGeneric = "generic"
	SchemeSemver  = "semver"
)

var preReleaseMarkers = map[string]bool{
	"alpha": true,
	"beta":  true,
	"rc":    true,
	"pre":   true,
	"dev":   true,
}

// Options configure normalization for one project/backend pair.
type Options struct {
	// Prefix is stripped from the start of the raw string exactly once.
	// Stripping is anchored and non-greedy: it removes only the configured
	// prefix, never a second occurrence, even when the remainder starts
	// with the same text.
	Prefix string

	// Cleanup is the backend-supplied pattern removed before generic
	// normalization (e.g. a trailing ".orig" archive marker).
	Cleanup *regexp.Regexp

	// Scheme selects the comparison scheme; empty means generic.
	Scheme string
}

// Version is a normalized, comparable version.
type Version struct {
	// Raw is the string the upstream published.
	Raw string

	// Norm is the normalized ordering key stored on the project.
	Norm string

	tokens []string
	sv     *semver.Version
}

// Parse normalizes raw according to opts. It returns a ParseError when the
// string has no comparable segments after stripping.
func Parse(raw string, opts Options) (Version, error) {
	s := raw

	if opts.Prefix != "" && strings.HasPrefix(s, opts.Prefix) {
		s = s[len(opts.Prefix):]
	}

	if opts.Cleanup != nil {
		s = opts.Cleanup.ReplaceAllString(s, "")
	}

	// A leading "v" tag convention is packaging noise, not a segment.
	if len(s) >= 2 && (s[0] == 'v' || s[0] == 'V') && s[1] >= '0' && s[1] <= '9' {
		s = s[1:]
	}

	if s == "" {
		return Version{}, &core.ParseError{Kind: core.ParseEmpty, Raw: raw}
	}

	if opts.Scheme == SchemeSemver {
		sv, err := semver.NewVersion(s)
		if err != nil {
			return Version{}, &core.ParseError{Kind: core.ParseUnrecognized, Raw: raw}
		}
		return Version{Raw: raw, Norm: sv.String(), sv: sv}, nil
	}

	tokens := tokenize(s)
	if len(tokens) == 0 {
		return Version{}, &core.ParseError{Kind: core.ParseUnrecognized, Raw: raw}
	}

	return Version{Raw: raw, Norm: s, tokens: tokens}, nil
}

// tokenize splits s into maximal runs of digits and runs of letters.
// Separators carry no ordering information and are dropped.
func tokenize(s string) []string {
	var tokens []string
	start := -1
	digits := false

	flush := func(end int) {
		if start >= 0 {
			tokens = append(tokens, s[start:end])
			start = -1
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			if start >= 0 && !digits {
				flush(i)
			}
			if start < 0 {
				start = i
				digits = true
			}
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			if start >= 0 && digits {
				flush(i)
			}
			if start < 0 {
				start = i
				digits = false
			}
		default:
			flush(i)
		}
	}
	flush(len(s))
	return tokens
}

// Compare orders two versions: -1 when a < b, 0 when equal, +1 when a > b.
// Versions parsed under the semver scheme compare by semver precedence;
// everything else uses the generic segment order. The relation is a total
// order over parsed versions.
func Compare(a, b Version) int {
	if a.sv != nil && b.sv != nil {
		return a.sv.Compare(b.sv)
	}
	return compareTokens(tokensOf(a), tokensOf(b))
}

func tokensOf(v Version) []string {
	if v.tokens != nil {
		return v.tokens
	}
	return tokenize(v.Norm)
}

func compareTokens(a, b []string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		if c := compareSegment(a[i], b[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(a) == len(b):
		return 0
	case len(a) > len(b):
		// A pre-release suffix sorts below the release it precedes;
		// any other extra segment makes the version more specific and
		// therefore greater.
		if isPreRelease(a[len(b)]) {
			return -1
		}
		return 1
	default:
		if isPreRelease(b[len(a)]) {
			return 1
		}
		return -1
	}
}

func isPreRelease(segment string) bool {
	return preReleaseMarkers[strings.ToLower(segment)]
}

func compareSegment(a, b string) int {
	// Pre-release markers are their own class below every other segment,
	// wherever they appear, keeping the segment order consistent with the
	// length-boundary rule above.
	aPre := isPreRelease(a)
	bPre := isPreRelease(b)
	switch {
	case aPre && !bPre:
		return -1
	case bPre && !aPre:
		return 1
	}

	aNum := isNumeric(a)
	bNum := isNumeric(b)

	switch {
	case aNum && bNum:
		return compareNumeric(a, b)
	case aNum:
		// Numeric segments outrank alphabetic ones ("1.2.1" > "1.2.b").
		return 1
	case bNum:
		return -1
	default:
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	}
}

func isNumeric(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// compareNumeric compares two digit runs without integer conversion, so
// arbitrarily long components (dates, build counters) cannot overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Max selects the greatest version among candidates. Ties on the ordering
// key are broken by preferring the lexicographically longer raw string (the
// more specific tag), then the lexicographically greater one. Returns false
// when candidates is empty.
func Max(candidates []Version) (Version, bool) {
	if len(candidates) == 0 {
		return Version{}, false
	}

	best := candidates[0]
	for _, v := range candidates[1:] {
		switch Compare(v, best) {
		case 1:
			best = v
		case 0:
			if len(v.Raw) > len(best.Raw) || (len(v.Raw) == len(best.Raw) && v.Raw > best.Raw) {
				best = v
			}
		}
	}
	return best, true
}
