package filecache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher serves fixed-size bodies and counts calls per URL
type fakeFetcher struct {
	size  int
	delay time.Duration
	calls sync.Map // url -> *atomic.Int32
	fail  map[string]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	n, _ := f.calls.LoadOrStore(url, new(atomic.Int32))
	n.(*atomic.Int32).Add(1)
	if err, ok := f.fail[url]; ok {
		return nil, err
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return []byte(strings.Repeat("x", f.size)), nil
}

func (f *fakeFetcher) count(url string) int32 {
	n, ok := f.calls.Load(url)
	if !ok {
		return 0
	}
	return n.(*atomic.Int32).Load()
}

func TestGet_DownloadsOnceThenHits(t *testing.T) {
	f := &fakeFetcher{size: 10}
	c, err := New(t.TempDir(), 1000, f, nil, nil)
	require.NoError(t, err)

	url := "https://i.example.org/g/123.jpg"
	p, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, ".jpg", filepath.Ext(p))
	assert.True(t, c.Exists(url))

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Len(t, data, 10)

	again, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, p, again)
	assert.Equal(t, int32(1), f.count(url))
	assert.Equal(t, int64(10), c.Size())
}

func TestGet_ConcurrentCallsShareDownload(t *testing.T) {
	f := &fakeFetcher{size: 10, delay: 50 * time.Millisecond}
	c, err := New(t.TempDir(), 1000, f, nil, nil)
	require.NoError(t, err)

	url := "https://i.example.org/g/shared.png"
	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := c.Get(context.Background(), url)
			assert.NoError(t, err)
			paths[i] = p
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), f.count(url))
	for _, p := range paths {
		assert.Equal(t, paths[0], p)
	}
}

func TestGet_EvictsOldestFirst(t *testing.T) {
	f := &fakeFetcher{size: 100}
	c, err := New(t.TempDir(), 250, f, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	urls := []string{"https://a/1.jpg", "https://a/2.jpg"}
	for i, u := range urls {
		p, err := c.Get(ctx, u)
		require.NoError(t, err)
		// Distinct, ordered modification times
		ts := time.Now().Add(time.Duration(i-10) * time.Minute)
		require.NoError(t, os.Chtimes(p, ts, ts))
	}

	// Touch the first so the second becomes the oldest
	_, err = c.Get(ctx, urls[0])
	require.NoError(t, err)

	_, err = c.Get(ctx, "https://a/3.jpg")
	require.NoError(t, err)

	assert.True(t, c.Exists(urls[0]))
	assert.False(t, c.Exists(urls[1]), "least recently used file is evicted")
	assert.True(t, c.Exists("https://a/3.jpg"))
	assert.Equal(t, int64(200), c.Size())
}

func TestGet_KeepsOversizedDownload(t *testing.T) {
	f := &fakeFetcher{size: 500}
	c, err := New(t.TempDir(), 100, f, nil, nil)
	require.NoError(t, err)

	p, err := c.Get(context.Background(), "https://a/big.webm")
	require.NoError(t, err)
	_, err = os.Stat(p)
	assert.NoError(t, err)
}

func TestGet_FailureIsNotCached(t *testing.T) {
	url := "https://a/missing.jpg"
	f := &fakeFetcher{size: 10, fail: map[string]error{url: domain.ErrNotFound}}
	c, err := New(t.TempDir(), 1000, f, nil, nil)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), url)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.False(t, c.Exists(url))

	_, err = c.Get(context.Background(), url)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(2), f.count(url))

	entries, err := os.ReadDir(c.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNew_TrimsExistingAndRemovesTemps(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, DirName)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, tempPrefix+"partial"), []byte("junk"), 0644))

	old := filepath.Join(dir, "old")
	newer := filepath.Join(dir, "newer")
	require.NoError(t, os.WriteFile(old, make([]byte, 80), 0644))
	require.NoError(t, os.WriteFile(newer, make([]byte, 80), 0644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))

	c, err := New(root, 100, &fakeFetcher{}, nil, nil)
	require.NoError(t, err)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(newer)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, tempPrefix+"partial"))
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, int64(80), c.Size())
}

func TestClearAndRemove(t *testing.T) {
	f := &fakeFetcher{size: 10}
	c, err := New(t.TempDir(), 1000, f, nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	for _, u := range []string{"https://a/1.jpg", "https://a/2.jpg", "https://a/3.jpg"} {
		_, err := c.Get(ctx, u)
		require.NoError(t, err)
	}
	require.NoError(t, c.Remove("https://a/1.jpg"))
	require.NoError(t, c.Remove("https://a/1.jpg"), "removing a missing file is fine")
	assert.Equal(t, int64(20), c.Size())

	require.NoError(t, c.Clear())
	assert.Equal(t, int64(0), c.Size())
	assert.False(t, c.Exists("https://a/2.jpg"))
}

func TestPathFor(t *testing.T) {
	c, err := New(t.TempDir(), 0, &fakeFetcher{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultCapacity), c.Capacity())

	a := c.PathFor("https://a/1.jpg?token=x")
	b := c.PathFor("https://a/1.jpg?token=y")
	assert.NotEqual(t, a, b)
	assert.Equal(t, ".jpg", filepath.Ext(a))
	assert.Equal(t, "", filepath.Ext(c.PathFor("https://a/thread/123")))
}

// gatedFetcher blocks until release is closed or its ctx ends
type gatedFetcher struct {
	started  chan struct{}
	release  chan struct{}
	calls    atomic.Int32
	canceled atomic.Int32
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{started: make(chan struct{}, 8), release: make(chan struct{})}
}

func (f *gatedFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	f.started <- struct{}{}
	select {
	case <-f.release:
		return []byte("data"), nil
	case <-ctx.Done():
		f.canceled.Add(1)
		return nil, ctx.Err()
	}
}

func TestGet_WaiterOutlivesFirstCaller(t *testing.T) {
	f := newGatedFetcher()
	c, err := New(t.TempDir(), 1000, f, nil, nil)
	require.NoError(t, err)
	url := "https://i.example.org/g/1700.png"

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Get(firstCtx, url)
		firstErr <- err
	}()
	<-f.started

	type result struct {
		path string
		err  error
	}
	second := make(chan result, 1)
	go func() {
		p, err := c.Get(context.Background(), url)
		second <- result{p, err}
	}()
	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		cl := c.inflight[url]
		return cl != nil && cl.waiters == 2
	}, time.Second, time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(f.release)
	r := <-second
	require.NoError(t, r.err)
	assert.Equal(t, c.PathFor(url), r.path)
	assert.True(t, c.Exists(url))
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, int32(0), f.canceled.Load())
}

func TestGet_LastWaiterCancelsDownload(t *testing.T) {
	f := newGatedFetcher()
	c, err := New(t.TempDir(), 1000, f, nil, nil)
	require.NoError(t, err)
	url := "https://i.example.org/g/abandoned.webm"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, url)
		done <- err
	}()
	<-f.started
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	require.Eventually(t, func() bool { return f.canceled.Load() == 1 }, time.Second, time.Millisecond)

	// A later caller starts a new download instead of joining the cancelled one
	close(f.release)
	p, err := c.Get(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, c.PathFor(url), p)
	assert.Equal(t, int32(2), f.calls.Load())
}
