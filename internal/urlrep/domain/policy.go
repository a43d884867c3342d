package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DefaultEntropyThreshold is used when a policy leaves entropy_threshold unset.
const DefaultEntropyThreshold = 3.65

// ErrInvalidThreshold is returned for a non-positive or non-finite entropy threshold.
var ErrInvalidThreshold = errors.New("entropy threshold must be a positive finite number")

// PatternMode selects how allowed/blocked patterns are interpreted.
type PatternMode uint8

const (
	// PatternRegex treats each pattern as an unanchored RE2 expression.
	PatternRegex PatternMode = iota
	// PatternSubstring treats each pattern as a literal substring.
	PatternSubstring
)

// String returns a stable string representation of the mode.
func (m PatternMode) String() string {
	switch m {
	case PatternRegex:
		return "regex"
	case PatternSubstring:
		return "substring"
	default:
		return fmt.Sprintf("PatternMode(%d)", m)
	}
}

// ParsePatternMode converts a string into a PatternMode. Empty means regex.
func ParsePatternMode(s string) (PatternMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "regex":
		return PatternRegex, nil
	case "substring":
		return PatternSubstring, nil
	default:
		return 0, fmt.Errorf("unsupported PatternMode: %q", s)
	}
}

// Policy is the deserialized reputation configuration an engine is built from.
// It is treated as read-only once handed to an engine.
type Policy struct {
	WhitelistDomains   []DomainRule
	AllowedPatterns    []string
	BlockedDomains     []DomainRule
	BlockedPatterns    []string
	PatternMode        PatternMode
	UseHeuristicCheck  bool
	EntropyThreshold   float64
	BlockNonSecureHTTP bool
}

// DefaultPolicy returns a policy with the documented defaults: empty lists,
// heuristics off, threshold 3.65, plain http blocked.
func DefaultPolicy() Policy {
	return Policy{
		PatternMode:        PatternRegex,
		EntropyThreshold:   DefaultEntropyThreshold,
		BlockNonSecureHTTP: true,
	}
}

// Validate checks the scalar fields of the policy. Patterns are validated by
// the matcher that compiles them.
func (p Policy) Validate() error {
	t := p.EntropyThreshold
	if math.IsNaN(t) || math.IsInf(t, 0) || t <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
	}
	switch p.PatternMode {
	case PatternRegex, PatternSubstring:
	default:
		return fmt.Errorf("unsupported PatternMode: %d", p.PatternMode)
	}
	for _, r := range p.WhitelistDomains {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("whitelist rule %q: %w", r.Name, err)
		}
	}
	for _, r := range p.BlockedDomains {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("blocked rule %q: %w", r.Name, err)
		}
	}
	return nil
}
