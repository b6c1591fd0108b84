package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/sourcegraph/conc"
)

// FileProvider keeps settings in a TOML file. Reads are served from memory.
// Puts update memory at once and schedule a write; writes scheduled while one
// is pending are coalesced into it.
type FileProvider struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	cond    *sync.Cond // Signalled after each write
	values  values
	gen     uint64 // Bumped by every put
	written uint64 // Generation last written to disk
	lastErr error
	closed  bool

	pending chan struct{}
	stop    chan struct{}
	wg      conc.WaitGroup
	once    sync.Once
}

var _ Provider = (*FileProvider)(nil)

// OpenFile loads path and starts the background writer. A missing or
// unreadable file starts with no values; the file is replaced on the first put.
func OpenFile(path string, logger *slog.Logger) *FileProvider {
	if logger == nil {
		logger = slog.Default()
	}
	p := &FileProvider{
		path:    path,
		logger:  logger,
		values:  load(path, logger),
		pending: make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	p.wg.Go(p.writer)
	return p
}

func load(path string, logger *slog.Logger) values {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to read settings, using defaults", "path", path, "error", err)
		}
		return make(values)
	}

	v := make(values)
	if err := toml.Unmarshal(data, &v); err != nil {
		logger.Warn("invalid settings file, using defaults", "path", path, "error", err)
		return make(values)
	}
	return v
}

// Path returns the settings file location
func (p *FileProvider) Path() string { return p.path }

func (p *FileProvider) GetInt(key string, def int) int {
	return int(p.GetInt64(key, int64(def)))
}

func (p *FileProvider) PutInt(key string, value int) {
	p.put(key, int64(value))
}

func (p *FileProvider) GetInt64(key string, def int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n, ok := p.values.getInt64(key); ok {
		return n
	}
	return def
}

func (p *FileProvider) PutInt64(key string, value int64) {
	p.put(key, value)
}

func (p *FileProvider) GetBool(key string, def bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := p.values.getBool(key); ok {
		return b
	}
	return def
}

func (p *FileProvider) PutBool(key string, value bool) {
	p.put(key, value)
}

func (p *FileProvider) GetString(key string, def string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.values.getString(key); ok {
		return s
	}
	return def
}

func (p *FileProvider) PutString(key string, value string) {
	p.put(key, value)
}

func (p *FileProvider) put(key string, value any) {
	p.mu.Lock()
	if old, ok := p.values[key]; ok && old == value {
		p.mu.Unlock()
		return
	}
	p.values[key] = value
	p.gen++
	closed := p.closed
	p.mu.Unlock()

	if closed {
		p.logger.Warn("setting changed after close, written on next Sync", "key", key)
		return
	}

	select {
	case p.pending <- struct{}{}:
	default: // A write is already scheduled
	}
}

func (p *FileProvider) writer() {
	for {
		select {
		case <-p.pending:
			p.commit()
		case <-p.stop:
			// Last write for puts that raced with Close
			p.commit()
			return
		}
	}
}

// commit writes the current values if they changed since the last write
func (p *FileProvider) commit() {
	p.mu.Lock()
	if p.written == p.gen {
		p.mu.Unlock()
		return
	}
	gen := p.gen
	snapshot := make(values, len(p.values))
	for k, v := range p.values {
		snapshot[k] = v
	}
	p.mu.Unlock()

	err := writeFile(p.path, snapshot)
	if err != nil {
		p.logger.Error("failed to write settings", "path", p.path, "error", err)
	}

	p.mu.Lock()
	p.written = gen
	p.lastErr = err
	p.cond.Broadcast()
	p.mu.Unlock()
}

func writeFile(path string, v values) error {
	data, err := toml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // No-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Sync blocks until every put made before the call is on disk and returns
// the result of the latest write.
func (p *FileProvider) Sync() error {
	p.mu.Lock()
	target := p.gen
	if p.written >= target {
		err := p.lastErr
		p.mu.Unlock()
		return err
	}
	closed := p.closed
	p.mu.Unlock()

	if closed {
		// Writer is gone; write inline
		p.commit()
	} else {
		select {
		case p.pending <- struct{}{}:
		default:
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for p.written < target {
		p.cond.Wait()
	}
	return p.lastErr
}

// Close writes pending changes and stops the writer
func (p *FileProvider) Close() error {
	p.once.Do(func() {
		close(p.stop)
		p.wg.Wait()
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
	})
	return p.Sync()
}
