// Package watch keeps a live reputation engine in sync with its policy files.
package watch

import (
	"sync/atomic"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/services/reputation"
)

// Holder publishes the current engine. Readers never block: a reload swaps
// in a fully built engine, and calls already running finish on the old one.
type Holder struct {
	current atomic.Pointer[reputation.Engine]
}

// NewHolder returns a Holder serving e.
func NewHolder(e *reputation.Engine) *Holder {
	h := &Holder{}
	h.current.Store(e)
	return h
}

// Engine returns the engine currently in service.
func (h *Holder) Engine() *reputation.Engine { return h.current.Load() }

// Swap installs e and returns the engine it replaced.
func (h *Holder) Swap(e *reputation.Engine) *reputation.Engine { return h.current.Swap(e) }

// Validate evaluates url against the current engine.
func (h *Holder) Validate(url string) domain.ValidationResult {
	return h.current.Load().Validate(url)
}
