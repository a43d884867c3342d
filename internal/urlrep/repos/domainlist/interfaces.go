package domainlist

import "github.com/haukened/rr-urlrep/internal/urlrep/domain"

// BloomFilter is the minimal interface domain sets need from Bloom filters.
type BloomFilter interface {
	Add(key []byte)
	MightContain(key []byte) bool
}

// BloomFactory builds filters sized for a capacity and target false-positive rate.
type BloomFactory interface {
	New(capacity uint64, fpRate float64) BloomFilter
}

// SnapshotStats captures counts and metadata of a compiled snapshot.
type SnapshotStats struct {
	ExactCount  uint64
	SuffixCount uint64
	Version     uint64
	UpdatedUnix int64 // seconds since epoch
}

// Store persists compiled domain rules between runs. The engine never reads
// it on the validation path: rules are loaded once when a policy is built.
type Store interface {
	RebuildAll(rules []domain.DomainRule, version uint64, updatedUnix int64) error
	Rules() ([]domain.DomainRule, error)
	Stats() SnapshotStats
	Close() error
}
