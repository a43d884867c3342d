package domainset

import (
	"fmt"
	"testing"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/repos/domainlist/bloom"
)

func benchSet(n int) *Set {
	rules := make([]domain.DomainRule, 0, n)
	for i := 0; i < n; i++ {
		rules = append(rules, rule(fmt.Sprintf("d%06d.bench.test", i), domain.RuleExact, "bench"))
	}
	return New(rules, bloom.NewFactory(), DefaultFPRate)
}

func BenchmarkSet_Hit(b *testing.B) {
	s := benchSet(100_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Contains("d000042.bench.test")
	}
}

func BenchmarkSet_Miss(b *testing.B) {
	s := benchSet(100_000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = s.Contains("www.clean.example.com")
	}
}
