package bloom

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_New_Basic(t *testing.T) {
	bf := NewFactory().New(128, 0.01)
	require.NotNil(t, bf)

	key := []byte("example.com")
	assert.False(t, bf.MightContain(key), "unexpected positive before add")
	bf.Add(key)
	assert.True(t, bf.MightContain(key), "expected maybe after add")
}

func TestFactory_New_Defaults(t *testing.T) {
	// capacity=0 and invalid fp fall back to defaults; filter still usable
	bf := NewFactory().New(0, 0)
	key := []byte("default-case.test")
	bf.Add(key)
	assert.True(t, bf.MightContain(key))

	bf = NewFactory().New(10, 1.5)
	bf.Add(key)
	assert.True(t, bf.MightContain(key))
}

func TestFilter_NoFalseNegatives(t *testing.T) {
	const n = 2000
	bf := NewFactory().New(n, 0.01)
	for i := 0; i < n; i++ {
		bf.Add([]byte(fmt.Sprintf("d%04d.example.com", i)))
	}
	for i := 0; i < n; i++ {
		require.True(t, bf.MightContain([]byte(fmt.Sprintf("d%04d.example.com", i))))
	}
}

func TestFilter_ConcurrentReadsDuringWrites(t *testing.T) {
	f := NewFactory().New(256, 0.01)

	var wg sync.WaitGroup
	done := make(chan struct{})
	keys := [][]byte{[]byte("a"), []byte("b"), []byte("c")}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10_000; i++ {
			f.Add(keys[i%3])
		}
		close(done)
	}()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
					_ = f.MightContain([]byte("probe"))
				}
			}
		}()
	}

	wg.Wait()
	for _, k := range keys {
		assert.True(t, f.MightContain(k))
	}
}
