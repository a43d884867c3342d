// Package tld holds the static table of valid top-level domains. The table is
// data: an IANA root zone snapshot embedded at build time and parsed once.
package tld

import (
	"bufio"
	_ "embed"
	"io"
	"strings"
	"sync"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/utils"
)

//go:embed tlds.txt
var snapshot string

// Table answers whether a label is a delegated top-level domain.
type Table interface {
	Contains(label string) bool
	Len() int
}

// set is a map-backed Table. It is never mutated after construction.
type set map[string]struct{}

// Contains reports whether label (any case, U-label or A-label) is in the table.
func (s set) Contains(label string) bool {
	label = utils.ASCIIHost(utils.CanonicalHost(label))
	if label == "" {
		return false
	}
	_, ok := s[label]
	return ok
}

func (s set) Len() int { return len(s) }

// Parse reads one TLD per line; blank lines and '#' comments are skipped.
func Parse(r io.Reader) (Table, error) {
	s := make(set, 1600)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s[utils.ASCIIHost(strings.ToLower(line))] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromLabels builds a Table from an explicit label list.
func FromLabels(labels ...string) Table {
	s := make(set, len(labels))
	for _, l := range labels {
		s[utils.ASCIIHost(strings.ToLower(strings.TrimSpace(l)))] = struct{}{}
	}
	return s
}

var loadDefault = sync.OnceValue(func() Table {
	t, err := Parse(strings.NewReader(snapshot))
	if err != nil {
		// the snapshot is a compiled-in string; a read error is impossible
		panic(err)
	}
	return t
})

// Default returns the embedded IANA snapshot.
func Default() Table { return loadDefault() }
