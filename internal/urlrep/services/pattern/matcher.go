package pattern

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

// ErrInvalidPattern is returned when a pattern cannot be compiled.
var ErrInvalidPattern = errors.New("invalid pattern")

// Matcher tests a target string against an ordered list of patterns. It is
// immutable after construction and safe for concurrent use.
type Matcher struct {
	mode     domain.PatternMode
	raw      []string
	compiled []*regexp.Regexp
}

// New compiles patterns for mode. Targets are lowercased, so regex patterns
// use RE2 syntax compiled case-insensitively and are not anchored; substring
// patterns are lowercased.
// An empty pattern is rejected: it would match every URL.
func New(mode domain.PatternMode, patterns []string) (*Matcher, error) {
	m := &Matcher{mode: mode, raw: make([]string, 0, len(patterns))}
	for i, p := range patterns {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: pattern %d is empty", ErrInvalidPattern, i)
		}
		switch mode {
		case domain.PatternRegex:
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("%w: pattern %d %q: %w", ErrInvalidPattern, i, p, err)
			}
			m.compiled = append(m.compiled, re)
			m.raw = append(m.raw, p)
		case domain.PatternSubstring:
			m.raw = append(m.raw, strings.ToLower(p))
		default:
			return nil, fmt.Errorf("unsupported PatternMode: %d", mode)
		}
	}
	return m, nil
}

// Match returns the first pattern that matches target, in configured order.
func (m *Matcher) Match(target string) (string, bool) {
	if m == nil {
		return "", false
	}
	if m.mode == domain.PatternRegex {
		for i, re := range m.compiled {
			if re.MatchString(target) {
				return m.raw[i], true
			}
		}
		return "", false
	}
	for _, p := range m.raw {
		if strings.Contains(target, p) {
			return p, true
		}
	}
	return "", false
}

// Len returns the number of patterns.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.raw)
}

// Mode returns the matching mode.
func (m *Matcher) Mode() domain.PatternMode { return m.mode }
