package bloom

import (
	bitsbloom "github.com/bits-and-blooms/bloom/v3"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist"
)

const (
	defaultCapacity = 1
	defaultFPRate   = 0.01
)

// factory implements domainlist.BloomFactory using the library's estimator.
type factory struct{}

// NewFactory returns a BloomFactory that sizes filters from capacity and FP rate.
func NewFactory() domainlist.BloomFactory { return factory{} }

// New constructs a filter sized for capacity keys at fpRate. A zero capacity
// or an fpRate outside (0,1) falls back to defaults.
func (factory) New(capacity uint64, fpRate float64) domainlist.BloomFilter {
	if capacity == 0 {
		capacity = defaultCapacity
	}
	if !(fpRate > 0 && fpRate < 1) {
		fpRate = defaultFPRate
	}
	return &filter{bf: bitsbloom.NewWithEstimates(uint(capacity), fpRate)}
}
