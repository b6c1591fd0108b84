package settings

import "sync"

// MemoryProvider keeps values in memory only
type MemoryProvider struct {
	mu     sync.RWMutex
	values values
}

var _ Provider = (*MemoryProvider)(nil)

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{values: make(values)}
}

func (p *MemoryProvider) GetInt(key string, def int) int {
	return int(p.GetInt64(key, int64(def)))
}

func (p *MemoryProvider) PutInt(key string, value int) {
	p.put(key, int64(value))
}

func (p *MemoryProvider) GetInt64(key string, def int64) int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if n, ok := p.values.getInt64(key); ok {
		return n
	}
	return def
}

func (p *MemoryProvider) PutInt64(key string, value int64) {
	p.put(key, value)
}

func (p *MemoryProvider) GetBool(key string, def bool) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if b, ok := p.values.getBool(key); ok {
		return b
	}
	return def
}

func (p *MemoryProvider) PutBool(key string, value bool) {
	p.put(key, value)
}

func (p *MemoryProvider) GetString(key string, def string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if s, ok := p.values.getString(key); ok {
		return s
	}
	return def
}

func (p *MemoryProvider) PutString(key string, value string) {
	p.put(key, value)
}

func (p *MemoryProvider) put(key string, value any) {
	p.mu.Lock()
	p.values[key] = value
	p.mu.Unlock()
}
