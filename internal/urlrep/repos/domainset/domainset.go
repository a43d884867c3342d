package domainset

import (
	"strings"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist"
)

// DefaultFPRate is the Bloom false-positive target used by the policy loader.
const DefaultFPRate = 0.001

// Set is an immutable collection of exact and suffix domain rules. Lookups
// go bloom → map: a definite bloom negative answers without touching the maps.
// A Set is safe for concurrent use once built.
type Set struct {
	exact  map[string]domain.DomainRule
	suffix map[string]domain.DomainRule
	bloom  domainlist.BloomFilter
}

// New builds a Set from rules. When factory is nil no Bloom prefilter is
// built. Later duplicates of the same name and kind are ignored.
func New(rules []domain.DomainRule, factory domainlist.BloomFactory, fpRate float64) *Set {
	s := &Set{
		exact:  make(map[string]domain.DomainRule),
		suffix: make(map[string]domain.DomainRule),
	}
	for _, r := range rules {
		switch r.Kind {
		case domain.RuleExact:
			if _, ok := s.exact[r.Name]; !ok {
				s.exact[r.Name] = r
			}
		case domain.RuleSuffix:
			if _, ok := s.suffix[r.Name]; !ok {
				s.suffix[r.Name] = r
			}
		}
	}
	if factory == nil || s.Len() == 0 {
		return s
	}
	bf := factory.New(uint64(s.Len()), fpRate)
	for name := range s.exact {
		bf.Add([]byte(name))
	}
	for name := range s.suffix {
		bf.Add([]byte(reverseString(name)))
	}
	s.bloom = bf
	return s
}

// Len returns the number of distinct rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.exact) + len(s.suffix)
}

// Match returns the rule covering host, preferring an exact rule over the
// most specific suffix rule. host must be canonical.
func (s *Set) Match(host string) (domain.DomainRule, bool) {
	if s.Len() == 0 || host == "" {
		return domain.DomainRule{}, false
	}
	if !s.checkBloom(host) {
		return domain.DomainRule{}, false
	}
	if r, ok := s.exact[host]; ok {
		return r, true
	}
	a := host
	for {
		if r, ok := s.suffix[a]; ok {
			return r, true
		}
		i := strings.IndexByte(a, '.')
		if i < 0 {
			break
		}
		a = a[i+1:]
		if a == "" {
			break
		}
	}
	return domain.DomainRule{}, false
}

// Contains reports whether any rule covers host.
func (s *Set) Contains(host string) bool {
	_, ok := s.Match(host)
	return ok
}

// Rules returns a copy of every rule in the set, exact rules first.
func (s *Set) Rules() []domain.DomainRule {
	out := make([]domain.DomainRule, 0, s.Len())
	if s == nil {
		return out
	}
	for _, r := range s.exact {
		out = append(out, r)
	}
	for _, r := range s.suffix {
		out = append(out, r)
	}
	return out
}

// checkBloom returns true if the maps must be consulted (maybe-positive), or
// false when the host and all of its parents are definite negatives.
func (s *Set) checkBloom(host string) bool {
	if s.bloom == nil {
		return true
	}
	if s.bloom.MightContain([]byte(host)) {
		return true
	}
	// reversed anchors for suffix candidates, most-specific → apex
	a := host
	for {
		if s.bloom.MightContain([]byte(reverseString(a))) {
			return true
		}
		i := strings.IndexByte(a, '.')
		if i < 0 {
			return false
		}
		a = a[i+1:]
		if a == "" {
			return false
		}
	}
}

// reverseString reverses s rune by rune. Suffix keys are stored reversed so
// they never collide with exact keys in the shared filter.
func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
