package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Exposed(t *testing.T) {
	m := New()
	m.ObserveRequest(200, 20*time.Millisecond)
	m.ObserveRequest(0, time.Second)
	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	m.CacheEvicted(3)
	m.CacheSize(2048)
	m.LoadablesWritten(4)
	m.QueueEnter()

	body := scrape(t, m)
	assert.Contains(t, body, `clover_requests_total{status="200"} 1`)
	assert.Contains(t, body, `clover_requests_total{status="error"} 1`)
	assert.Contains(t, body, "clover_request_duration_seconds_count 2")
	assert.Contains(t, body, "clover_filecache_hits_total 1")
	assert.Contains(t, body, "clover_filecache_misses_total 2")
	assert.Contains(t, body, "clover_filecache_evictions_total 3")
	assert.Contains(t, body, "clover_filecache_bytes 2048")
	assert.Contains(t, body, "clover_loadable_writes_total 4")
	assert.Contains(t, body, "clover_request_queue_depth 1")

	m.QueueLeave()
	assert.Contains(t, scrape(t, m), "clover_request_queue_depth 0")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest(404, time.Millisecond)
		m.QueueEnter()
		m.QueueLeave()
		m.CacheHit()
		m.CacheMiss()
		m.CacheEvicted(1)
		m.CacheSize(1)
		m.LoadablesWritten(1)
	})
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := New()
	b := New()
	a.CacheHit()

	assert.Contains(t, scrape(t, a), "clover_filecache_hits_total 1")
	assert.Contains(t, scrape(t, b), "clover_filecache_hits_total 0")
}
