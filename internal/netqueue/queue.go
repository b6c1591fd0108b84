// Package netqueue runs all site traffic through one bounded pool of workers
// sharing a single HTTP client, user agent and proxy setting.
package netqueue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/clover/internal/domain"
	"github.com/mmcdole/clover/internal/metrics"
	"github.com/sourcegraph/conc/pool"
)

const (
	DefaultWorkers     = 4
	DefaultTimeout     = 30 * time.Second
	DefaultUserAgent   = "Clover/1.0"
	DefaultMaxBodySize = 32 << 20
	queueSize          = 64
)

// ErrStopped is returned for requests made after Stop
var ErrStopped = errors.New("request queue stopped")

// StatusError is returned for unexpected HTTP statuses
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d for %s", e.Code, e.URL)
}

// Config controls the queue and its HTTP client
type Config struct {
	Workers     int
	UserAgent   string
	Proxy       string // http(s) proxy URL; empty uses the environment
	Timeout     time.Duration
	MaxBodySize int64
}

func DefaultConfig() Config {
	return Config{
		Workers:     DefaultWorkers,
		UserAgent:   DefaultUserAgent,
		Timeout:     DefaultTimeout,
		MaxBodySize: DefaultMaxBodySize,
	}
}

// Callback receives the body or error of an asynchronous request
type Callback func(body []byte, err error)

type job struct {
	ctx  context.Context
	req  *http.Request
	done Callback
}

// Queue executes HTTP requests on a fixed number of workers
type Queue struct {
	client      *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
	metrics     *metrics.Metrics

	mu      sync.RWMutex // Guards jobs against send after close
	stopped bool
	jobs    chan job
	workers *pool.Pool
}

var _ domain.ContentFetcher = (*Queue)(nil)

// New starts the workers. m may be nil.
func New(cfg Config, logger *slog.Logger, m *metrics.Metrics) (*Queue, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid proxy %q", cfg.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}
	transport.MaxIdleConnsPerHost = cfg.Workers

	q := &Queue{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
		logger:      logger,
		metrics:     m,
		jobs:        make(chan job, queueSize),
		workers:     pool.New().WithMaxGoroutines(cfg.Workers),
	}
	for i := 0; i < cfg.Workers; i++ {
		q.workers.Go(q.work)
	}
	return q, nil
}

func (q *Queue) work() {
	for j := range q.jobs {
		q.metrics.QueueLeave()
		if err := j.ctx.Err(); err != nil {
			// Abandoned while waiting
			j.done(nil, err)
			continue
		}
		j.done(q.execute(j.ctx, j.req))
	}
}

func (q *Queue) execute(ctx context.Context, req *http.Request) ([]byte, error) {
	req = req.WithContext(ctx)
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", q.userAgent)
	}

	start := time.Now()
	q.logger.Debug("site request", "method", req.Method, "url", req.URL.String())

	resp, err := q.client.Do(req)
	if err != nil {
		q.metrics.ObserveRequest(0, time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		q.logger.Error("site request failed", "url", req.URL.String(), "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, q.maxBodySize+1))
	q.metrics.ObserveRequest(resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > q.maxBodySize {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", req.URL, q.maxBodySize)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		q.logger.Error("site request error", "status", resp.StatusCode, "url", req.URL.String())
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}
	return body, nil
}

// enqueue hands j to a worker, giving up when ctx ends first
func (q *Queue) enqueue(ctx context.Context, j job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.stopped {
		return ErrStopped
	}

	q.metrics.QueueEnter()
	select {
	case q.jobs <- j:
		return nil
	case <-ctx.Done():
		q.metrics.QueueLeave()
		return ctx.Err()
	}
}

// Do runs req on a worker and waits for the body
func (q *Queue) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	type result struct {
		body []byte
		err  error
	}
	ch := make(chan result, 1)

	err := q.enqueue(ctx, job{ctx: ctx, req: req, done: func(body []byte, err error) {
		ch <- result{body, err}
	}})
	if err != nil {
		return nil, err
	}

	select {
	case r := <-ch:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Go runs req on a worker and calls done from that worker. done is always
// called exactly once, also when the request cannot be queued.
func (q *Queue) Go(ctx context.Context, req *http.Request, done Callback) {
	if err := q.enqueue(ctx, job{ctx: ctx, req: req, done: done}); err != nil {
		done(nil, err)
	}
}

// Get fetches url with a GET request
func (q *Queue) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return q.Do(ctx, req)
}

// Fetch downloads raw content
func (q *Queue) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return q.Do(ctx, req)
}

// UserAgent returns the header value sent with every request
func (q *Queue) UserAgent() string { return q.userAgent }

// Stop lets queued requests finish and waits for the workers to exit
func (q *Queue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	q.workers.Wait()
}
