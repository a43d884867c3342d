package heuristic

import (
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/haukened/rr-urlrep/internal/urlrep/common/utils"
	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
)

// MinEntropyLength is the shortest host that gets scored. Short names carry
// too few symbols for the measure to mean anything.
const MinEntropyLength = 8

// ShannonEntropy returns H = -Σ p·log2(p) over the character distribution of s.
func ShannonEntropy(s string) float64 {
	if s == "" {
		return 0
	}
	freq := make(map[rune]int, len(s))
	total := 0
	for _, ch := range s {
		freq[ch]++
		total++
	}
	entropy := 0.0
	n := float64(total)
	for _, count := range freq {
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// EntropyCheck flags hosts whose entropy strictly exceeds Threshold, a proxy
// for algorithmically generated names.
type EntropyCheck struct {
	Threshold float64
}

func (EntropyCheck) Name() string { return "entropy" }

func (c EntropyCheck) Check(host string) *domain.Violation {
	if utf8.RuneCountInString(host) < MinEntropyLength {
		return nil
	}
	h := ShannonEntropy(host)
	if h <= c.Threshold {
		return nil
	}
	return domain.NewViolation(domain.CodeHighEntropy,
		fmt.Sprintf("Domain exceeds entropy threshold: %s", host),
		map[string]string{
			"domain":             host,
			"registrable_domain": utils.ApexDomain(host),
			"entropy":            strconv.FormatFloat(h, 'f', 4, 64),
			"threshold":          strconv.FormatFloat(c.Threshold, 'f', -1, 64),
		})
}
