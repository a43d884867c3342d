package domain

import (
	"fmt"
	"strings"
	"time"
)

// RuleKind defines how a domain rule matches hosts.
//
// exact  - matches the host only (name == host)
// suffix - matches the apex and any subdomain (apex-inclusive suffix)
type RuleKind uint8

const (
	// RuleExact matches only the exact host.
	RuleExact RuleKind = iota
	// RuleSuffix matches the domain and all its subdomains (apex-inclusive).
	RuleSuffix
)

// String returns a stable string representation of the rule kind.
func (k RuleKind) String() string {
	switch k {
	case RuleExact:
		return "exact"
	case RuleSuffix:
		return "suffix"
	default:
		return fmt.Sprintf("RuleKind(%d)", k)
	}
}

// ParseRuleKind converts a string into a RuleKind.
// Accepts: "exact", "suffix" (case-insensitive).
func ParseRuleKind(s string) (RuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return RuleExact, nil
	case "suffix":
		return RuleSuffix, nil
	default:
		return 0, fmt.Errorf("unsupported RuleKind: %q", s)
	}
}

// RuleKindFromRaw decides the kind from an unnormalized list entry.
// A leading "*." or "." marks a suffix rule; anything else is exact.
func RuleKindFromRaw(raw string) RuleKind {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "*.") || strings.HasPrefix(raw, ".") {
		return RuleSuffix
	}
	return RuleExact
}

// DomainRule is a single whitelist or blocklist entry.
//
// Name is canonical (lowercase, no trailing dot, no "*." marker). Source
// identifies the policy field, list file or snapshot it came from.
type DomainRule struct {
	Name    string
	Kind    RuleKind
	Source  string
	AddedAt time.Time
}

// NewDomainRule constructs a DomainRule and validates its fields.
func NewDomainRule(name string, kind RuleKind, source string, addedAt time.Time) (DomainRule, error) {
	r := DomainRule{
		Name:    strings.TrimSpace(name),
		Kind:    kind,
		Source:  strings.TrimSpace(source),
		AddedAt: addedAt,
	}
	if err := r.Validate(); err != nil {
		return DomainRule{}, err
	}
	return r, nil
}

// Validate checks the DomainRule for required fields and supported values.
func (r DomainRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	if r.Source == "" {
		return fmt.Errorf("rule source must not be empty")
	}
	if r.AddedAt.IsZero() {
		return fmt.Errorf("rule addedAt must be set")
	}
	switch r.Kind {
	case RuleExact, RuleSuffix:
	default:
		return fmt.Errorf("unsupported RuleKind: %d", r.Kind)
	}
	return nil
}

// Matches reports whether the canonical host is covered by the rule.
func (r DomainRule) Matches(host string) bool {
	if host == r.Name {
		return true
	}
	return r.Kind == RuleSuffix && strings.HasSuffix(host, "."+r.Name)
}

// String renders the rule the way it is written in list files.
func (r DomainRule) String() string {
	if r.Kind == RuleSuffix {
		return "*." + r.Name
	}
	return r.Name
}
