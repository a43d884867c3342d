package bolt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	bbolt "go.etcd.io/bbolt"
	bberrors "go.etcd.io/bbolt/errors"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist"
)

var (
	bucketExact  = []byte("exact")
	bucketSuffix = []byte("suffix")
	bucketMeta   = []byte("meta")

	keyVersion = []byte("version")
	keyUpdated = []byte("updated")
)

// boltStore implements domainlist.Store using bbolt. Exact rules are keyed by
// name, suffix rules by reversed name; values hold the rule source.
type boltStore struct {
	db *bbolt.DB
}

// New opens (or creates) a snapshot database at path and ensures buckets exist.
func New(path string) (domainlist.Store, error) {
	return open(path, false)
}

// OpenReadOnly opens an existing snapshot for loading without taking the write lock.
func OpenReadOnly(path string) (domainlist.Store, error) {
	return open(path, true)
}

func open(path string, readOnly bool) (domainlist.Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("open snapshot %s: %w", path, err)
	}
	if readOnly {
		return &boltStore{db: db}, nil
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExact, bucketSuffix, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltStore{db: db}, nil
}

func (s *boltStore) Close() error { return s.db.Close() }

// RebuildAll replaces every rule and the metadata in one transaction, so a
// reader never observes a half-written snapshot.
func (s *boltStore) RebuildAll(rules []domain.DomainRule, version uint64, updatedUnix int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketExact, bucketSuffix} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bberrors.ErrBucketNotFound) {
				return err
			}
		}
		exact, err := tx.CreateBucket(bucketExact)
		if err != nil {
			return err
		}
		suffix, err := tx.CreateBucket(bucketSuffix)
		if err != nil {
			return err
		}
		for _, r := range rules {
			switch r.Kind {
			case domain.RuleExact:
				err = exact.Put([]byte(r.Name), []byte(r.Source))
			case domain.RuleSuffix:
				err = suffix.Put([]byte(reverseString(r.Name)), []byte(r.Source))
			default:
				err = fmt.Errorf("unsupported rule kind %s for %q", r.Kind, r.Name)
			}
			if err != nil {
				return err
			}
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		vbuf := make([]byte, 8)
		ubuf := make([]byte, 8)
		binary.BigEndian.PutUint64(vbuf, version)
		binary.BigEndian.PutUint64(ubuf, uint64(updatedUnix))
		if err := meta.Put(keyVersion, vbuf); err != nil {
			return err
		}
		return meta.Put(keyUpdated, ubuf)
	})
}

// Rules returns every stored rule, exact rules first, each group in key order.
// AddedAt is the snapshot's update time.
func (s *boltStore) Rules() ([]domain.DomainRule, error) {
	added := time.Unix(s.Stats().UpdatedUnix, 0).UTC()
	var out []domain.DomainRule
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketExact); b != nil {
			if err := b.ForEach(func(k, v []byte) error {
				out = append(out, domain.DomainRule{Name: string(k), Kind: domain.RuleExact, Source: string(v), AddedAt: added})
				return nil
			}); err != nil {
				return err
			}
		}
		if b := tx.Bucket(bucketSuffix); b != nil {
			return b.ForEach(func(k, v []byte) error {
				out = append(out, domain.DomainRule{Name: reverseString(string(k)), Kind: domain.RuleSuffix, Source: string(v), AddedAt: added})
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *boltStore) Stats() domainlist.SnapshotStats {
	st := domainlist.SnapshotStats{}
	_ = s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(bucketExact); b != nil {
			st.ExactCount = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketSuffix); b != nil {
			st.SuffixCount = uint64(b.Stats().KeyN)
		}
		if b := tx.Bucket(bucketMeta); b != nil {
			if v := b.Get(keyVersion); len(v) == 8 {
				st.Version = binary.BigEndian.Uint64(v)
			}
			if v := b.Get(keyUpdated); len(v) == 8 {
				st.UpdatedUnix = int64(binary.BigEndian.Uint64(v))
			}
		}
		return nil
	})
	return st
}

// reverseString reverses s rune by rune; suffix keys share a prefix with the
// reversed form of every subdomain they cover.
func reverseString(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
