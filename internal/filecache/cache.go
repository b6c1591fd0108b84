// Package filecache keeps downloaded media on disk within a fixed byte budget.
package filecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/metrics"
)

const (
	// DirName is the cache directory below the application cache dir
	DirName = "filecache"
	// DefaultCapacity is the disk budget in bytes
	DefaultCapacity = 50 * 1024 * 1024
	// DownloadTimeout bounds a shared download once its callers are gone or stuck
	DownloadTimeout = 5 * time.Minute

	tempPrefix = ".download-"
)

// call is an in-flight download shared by concurrent callers. It runs on
// its own context, cancelled when the last waiting caller gives up.
type call struct {
	done    chan struct{}
	path    string
	err     error
	waiters int
	cancel  context.CancelFunc
}

// Cache stores downloads under dir, named by a hash of their URL.
// When a download pushes the total above capacity the least recently used
// files are removed until the total fits again.
type Cache struct {
	dir      string
	capacity int64
	fetcher  domain.ContentFetcher
	logger   *slog.Logger
	metrics  *metrics.Metrics

	mu       sync.Mutex
	inflight map[string]*call
	size     int64 // Bytes on disk, refreshed after every trim
}

// New creates the cache directory. capacity <= 0 uses DefaultCapacity.
func New(cacheDir string, capacity int64, fetcher domain.ContentFetcher, logger *slog.Logger, m *metrics.Metrics) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	dir := filepath.Join(cacheDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	removeStaleTemps(dir)

	c := &Cache{
		dir:      dir,
		capacity: capacity,
		fetcher:  fetcher,
		logger:   logger,
		metrics:  m,
		inflight: make(map[string]*call),
	}

	c.mu.Lock()
	c.trimLocked("")
	c.mu.Unlock()
	return c, nil
}

// removeStaleTemps deletes partial downloads left by an interrupted run
func removeStaleTemps(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, tempPrefix+"*"))
	if err != nil {
		return
	}
	for _, p := range matches {
		os.Remove(p) // Ignore errors
	}
}

// Dir returns the directory holding cached files
func (c *Cache) Dir() string { return c.dir }

// Capacity returns the byte budget
func (c *Cache) Capacity() int64 { return c.capacity }

// PathFor returns where url is stored, whether or not it is cached
func (c *Cache) PathFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	name := hex.EncodeToString(sum[:16])
	if ext := strings.ToLower(path.Ext(stripQuery(url))); len(ext) > 1 && len(ext) <= 6 {
		name += ext
	}
	return filepath.Join(c.dir, name)
}

func stripQuery(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		return url[:i]
	}
	return url
}

// Exists reports whether url is cached
func (c *Cache) Exists(url string) bool {
	_, err := os.Stat(c.PathFor(url))
	return err == nil
}

// Get returns the local path of url, downloading it on a miss. Concurrent
// calls for the same url share one download; each caller stops waiting when
// its own ctx is done.
func (c *Cache) Get(ctx context.Context, url string) (string, error) {
	p := c.PathFor(url)

	c.mu.Lock()
	if _, err := os.Stat(p); err == nil {
		c.mu.Unlock()
		c.touch(p)
		c.metrics.CacheHit()
		return p, nil
	}
	cl, ok := c.inflight[url]
	if !ok {
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DownloadTimeout)
		cl = &call{done: make(chan struct{}), cancel: cancel}
		c.inflight[url] = cl
		c.metrics.CacheMiss()
		go c.run(dctx, cl, url, p)
	}
	cl.waiters++
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.path, cl.err
	case <-ctx.Done():
		c.leave(url, cl)
		return "", ctx.Err()
	}
}

// run performs the download of cl and wakes its waiters
func (c *Cache) run(ctx context.Context, cl *call, url, p string) {
	stored, err := c.download(ctx, url, p)
	cl.cancel()

	c.mu.Lock()
	cl.path, cl.err = stored, err
	if c.inflight[url] == cl {
		delete(c.inflight, url)
	}
	if err == nil {
		c.trimLocked(stored)
	}
	c.mu.Unlock()
	close(cl.done)
}

// leave drops a waiter. The last one to leave cancels the download and
// unregisters it so later callers start afresh.
func (c *Cache) leave(url string, cl *call) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cl.waiters--
	if cl.waiters > 0 {
		return
	}
	cl.cancel()
	if c.inflight[url] == cl {
		delete(c.inflight, url)
	}
}

func (c *Cache) download(ctx context.Context, url, dst string) (string, error) {
	data, err := c.fetcher.Fetch(ctx, url)
	if err != nil {
		c.logger.Warn("download failed", "url", url, "error", err)
		return "", err
	}

	tmp := filepath.Join(c.dir, tempPrefix+uuid.NewString())
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to store cache file: %w", err)
	}

	c.logger.Debug("downloaded", "url", url, "bytes", len(data))
	return dst, nil
}

func (c *Cache) touch(p string) {
	now := time.Now()
	if err := os.Chtimes(p, now, now); err != nil {
		c.logger.Debug("failed to touch cache file", "path", p, "error", err)
	}
}

type entry struct {
	path    string
	size    int64
	modTime time.Time
}

func (c *Cache) entries() ([]entry, int64) {
	des, err := os.ReadDir(c.dir)
	if err != nil {
		c.logger.Error("failed to list cache directory", "dir", c.dir, "error", err)
		return nil, 0
	}

	var (
		out   []entry
		total int64
	)
	for _, de := range des {
		if de.IsDir() || strings.HasPrefix(de.Name(), tempPrefix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		out = append(out, entry{
			path:    filepath.Join(c.dir, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	return out, total
}

// trimLocked evicts the oldest files until the cache fits its capacity.
// keep is never evicted, even when it alone exceeds the capacity.
// Caller holds c.mu.
func (c *Cache) trimLocked(keep string) {
	files, total := c.entries()
	if total > c.capacity {
		sort.Slice(files, func(i, j int) bool {
			return files[i].modTime.Before(files[j].modTime)
		})

		evicted := 0
		for _, f := range files {
			if total <= c.capacity {
				break
			}
			if f.path == keep {
				continue
			}
			if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
				c.logger.Warn("failed to evict cache file", "path", f.path, "error", err)
				continue
			}
			total -= f.size
			evicted++
		}
		if evicted > 0 {
			c.logger.Debug("evicted cache files", "count", evicted, "bytes", total)
			c.metrics.CacheEvicted(evicted)
		}
	}

	c.size = total
	c.metrics.CacheSize(total)
}

// Size returns the bytes currently held
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Remove deletes the cached copy of url
func (c *Cache) Remove(url string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.Remove(c.PathFor(url)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, c.size = c.entries()
	c.metrics.CacheSize(c.size)
	return nil
}

// Clear removes every cached file
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	files, _ := c.entries()
	var firstErr error
	for _, f := range files {
		if err := os.Remove(f.path); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_, c.size = c.entries()
	c.metrics.CacheSize(c.size)
	return firstErr
}
