// Package metrics provides Prometheus counters for the request queue, the
// file cache and loadable write-back.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors in a private registry. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	queueDepth      prometheus.Gauge

	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	cacheEvictions prometheus.Counter
	cacheBytes     prometheus.Gauge

	loadableWrites prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "clover_requests_total",
				Help: "Total number of site requests by result",
			},
			[]string{"status"},
		),
		requestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "clover_request_duration_seconds",
				Help:    "Site request duration in seconds",
				Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
		queueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "clover_request_queue_depth",
				Help: "Requests waiting for a worker",
			},
		),
		cacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clover_filecache_hits_total",
				Help: "File cache lookups served from disk",
			},
		),
		cacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clover_filecache_misses_total",
				Help: "File cache lookups that required a download",
			},
		),
		cacheEvictions: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clover_filecache_evictions_total",
				Help: "Files removed to stay within capacity",
			},
		),
		cacheBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "clover_filecache_bytes",
				Help: "Bytes currently held by the file cache",
			},
		),
		loadableWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "clover_loadable_writes_total",
				Help: "Loadables written back to the store",
			},
		),
	}
}

// ObserveRequest records a finished request. status 0 means a transport failure.
func (m *Metrics) ObserveRequest(status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(label).Inc()
	m.requestDuration.Observe(d.Seconds())
}

func (m *Metrics) QueueEnter() {
	if m != nil {
		m.queueDepth.Inc()
	}
}

func (m *Metrics) QueueLeave() {
	if m != nil {
		m.queueDepth.Dec()
	}
}

func (m *Metrics) CacheHit() {
	if m != nil {
		m.cacheHits.Inc()
	}
}

func (m *Metrics) CacheMiss() {
	if m != nil {
		m.cacheMisses.Inc()
	}
}

func (m *Metrics) CacheEvicted(n int) {
	if m != nil {
		m.cacheEvictions.Add(float64(n))
	}
}

func (m *Metrics) CacheSize(bytes int64) {
	if m != nil {
		m.cacheBytes.Set(float64(bytes))
	}
}

func (m *Metrics) LoadablesWritten(n int) {
	if m != nil {
		m.loadableWrites.Add(float64(n))
	}
}

// Registry exposes the underlying registry for tests and custom exporters
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled
func (m *Metrics) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
