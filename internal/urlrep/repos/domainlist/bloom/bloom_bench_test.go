package bloom

import (
	"fmt"
	"testing"
)

func benchMakeDomains(n int, suffix string) [][]byte {
	out := make([][]byte, n)
	for i := 0; i < n; i++ {
		out[i] = []byte(fmt.Sprintf("d%03d.%s", i, suffix))
	}
	return out
}

func BenchmarkBloom_Positive(b *testing.B) {
	const n = 1000
	bf := NewFactory().New(n, 0.01)
	keys := benchMakeDomains(n, "bench.test")
	for _, k := range keys {
		bf.Add(k)
	}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bf.MightContain(keys[i%len(keys)])
	}
}

// BenchmarkBloom_FalsePositiveRate reports the observed false positive rate
// for a disjoint key set as fp_percent.
func BenchmarkBloom_FalsePositiveRate(b *testing.B) {
	const n = 1000
	const trials = 100_000

	bf := NewFactory().New(n, 0.01)
	for _, k := range benchMakeDomains(n, "present.fpr") {
		bf.Add(k)
	}
	absent := benchMakeDomains(trials, "absent.fpr")

	b.ReportAllocs()
	b.ResetTimer()
	fp := 0
	for i := 0; i < trials; i++ {
		if bf.MightContain(absent[i]) {
			fp++
		}
	}
	b.StopTimer()
	b.ReportMetric(float64(fp)/float64(trials)*100, "fp_percent")
}
