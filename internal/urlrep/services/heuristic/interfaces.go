package heuristic

import "github.com/haukened/rr-urlrep/internal/urlrep/domain"

// Check is one independent heuristic over a canonical, non-IP host. It
// returns nil when the host passes.
type Check interface {
	Name() string
	Check(host string) *domain.Violation
}

// CheckFunc adapts a plain function to the Check interface.
type CheckFunc struct {
	CheckName string
	Fn        func(host string) *domain.Violation
}

func (c CheckFunc) Name() string                        { return c.CheckName }
func (c CheckFunc) Check(host string) *domain.Violation { return c.Fn(host) }
