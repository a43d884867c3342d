package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/rr-urlrep/internal/urlrep/domain"
	"github.com/haukened/rr-urlrep/internal/urlrep/policy"
	"github.com/haukened/rr-urlrep/internal/urlrep/services/reputation"
)

func policyBuilder(path string) Builder {
	return func() (*reputation.Engine, []string, error) {
		p, err := policy.NewLoader(nil, nil).Load(path)
		if err != nil {
			return nil, nil, err
		}
		e, err := reputation.New(p, reputation.Options{})
		if err != nil {
			return nil, nil, err
		}
		return e, []string{path}, nil
	}
}

func writePolicy(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestHolder(t *testing.T) {
	allow, err := reputation.New(domain.DefaultPolicy(), reputation.Options{})
	require.NoError(t, err)
	p := domain.DefaultPolicy()
	p.BlockedPatterns = []string{"example"}
	block, err := reputation.New(p, reputation.Options{})
	require.NoError(t, err)

	h := NewHolder(allow)
	assert.Same(t, allow, h.Engine())
	assert.True(t, h.Validate("https://example.com").ContinueProcessing)

	old := h.Swap(block)
	assert.Same(t, allow, old)
	assert.False(t, h.Validate("https://example.com").ContinueProcessing)
}

func TestNew_InitialBuildFails(t *testing.T) {
	_, err := New(func() (*reputation.Engine, []string, error) {
		return nil, nil, errors.New("boom")
	}, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initial build")
}

func TestReload_FailureKeepsPreviousEngine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, "blocked_domains: [bad.example]\n")

	var attempts atomic.Int32
	r, err := New(policyBuilder(path), Options{OnReload: func(error) { attempts.Add(1) }})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.watcher.Close() })

	before := r.Holder().Engine()
	assert.False(t, r.Holder().Validate("https://bad.example/").ContinueProcessing)

	writePolicy(t, path, "entropy_threshold: -3\n")
	require.Error(t, r.Reload())
	assert.Same(t, before, r.Holder().Engine())

	writePolicy(t, path, "blocked_domains: [worse.example]\n")
	require.NoError(t, r.Reload())
	assert.NotSame(t, before, r.Holder().Engine())
	assert.True(t, r.Holder().Validate("https://bad.example/").ContinueProcessing)
	assert.False(t, r.Holder().Validate("https://worse.example/").ContinueProcessing)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestReload_WatchFailureKeepsFileSet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	writePolicy(t, path, "blocked_domains: [bad.example]\n")
	missing := filepath.Join(dir, "gone", "list.txt")

	var extra atomic.Bool
	build := func() (*reputation.Engine, []string, error) {
		e, files, err := policyBuilder(path)()
		if err == nil && extra.Load() {
			files = append(files, missing)
		}
		return e, files, err
	}
	r, err := New(build, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.watcher.Close() })
	before := r.Holder().Engine()

	extra.Store(true)
	require.Error(t, r.Reload())
	assert.Same(t, before, r.Holder().Engine())

	abs, err := filepath.Abs(path)
	require.NoError(t, err)
	missingAbs, err := filepath.Abs(missing)
	require.NoError(t, err)
	r.mu.Lock()
	_, tracked := r.files[abs]
	_, added := r.files[missingAbs]
	r.mu.Unlock()
	assert.True(t, tracked)
	assert.False(t, added, "file set of the discarded engine must not be committed")
}

func TestRun_ReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	writePolicy(t, path, "blocked_domains: []\n")

	reloaded := make(chan error, 8)
	r, err := New(policyBuilder(path), Options{
		Debounce: 20 * time.Millisecond,
		OnReload: func(err error) { reloaded <- err },
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})

	assert.True(t, r.Holder().Validate("https://new.example/").ContinueProcessing)

	// unrelated files in the same directory are ignored
	writePolicy(t, filepath.Join(dir, "notes.txt"), "hello")
	writePolicy(t, path, "blocked_domains: [new.example]\n")

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("policy was not reloaded")
	}
	assert.Eventually(t, func() bool {
		return !r.Holder().Validate("https://new.example/").ContinueProcessing
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRun_StopsOnCancel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	writePolicy(t, path, "")
	r, err := New(policyBuilder(path), Options{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
