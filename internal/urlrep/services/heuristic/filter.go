package heuristic

import (
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/tld"
)

// Filter runs heuristic checks in a fixed order and stops at the first
// violation. It holds no mutable state and is safe for concurrent use.
type Filter struct {
	checks []Check
}

// NewFilter returns the standard ordering: entropy, then TLD, then unicode.
// A nil table falls back to the embedded snapshot.
func NewFilter(threshold float64, table tld.Table) *Filter {
	if table == nil {
		table = tld.Default()
	}
	return NewFilterWithChecks(
		EntropyCheck{Threshold: threshold},
		TLDCheck{Table: table},
		UnicodeCheck{},
	)
}

// NewFilterWithChecks builds a filter from an explicit check list.
func NewFilterWithChecks(checks ...Check) *Filter {
	return &Filter{checks: append([]Check(nil), checks...)}
}

// Run returns the first violation raised for host, or nil.
func (f *Filter) Run(host string) *domain.Violation {
	for _, c := range f.checks {
		if v := c.Check(host); v != nil {
			return v
		}
	}
	return nil
}

// Names lists the checks in evaluation order.
func (f *Filter) Names() []string {
	names := make([]string, len(f.checks))
	for i, c := range f.checks {
		names[i] = c.Name()
	}
	return names
}
