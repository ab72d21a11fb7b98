// Package observability collects per-invocation request metrics and writes
// optional request traces for the dispatcher.
package observability

import (
	"sync"
	"time"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

// RequestMetrics holds timing and status information for a single HTTP request.
type RequestMetrics struct {
	Method     string
	URL        string
	Attempt    int
	StatusCode int
	Duration   time.Duration
	Error      error
}

// Failed reports whether the request got no response or a non-2xx status.
func (m RequestMetrics) Failed() bool {
	return m.Error != nil || m.StatusCode < 200 || m.StatusCode > 299
}

// SessionMetrics aggregates metrics for one CLI invocation.
type SessionMetrics struct {
	StartTime      time.Time     `json:"start_time"`
	EndTime        time.Time     `json:"end_time"`
	TotalRequests  int           `json:"total_requests"`
	FailedRequests int           `json:"failed_requests"`
	TotalRetries   int           `json:"total_retries"`
	RateLimitWaits int           `json:"rate_limit_waits"`
	RateLimitDelay time.Duration `json:"rate_limit_delay"`
	Refreshes      int           `json:"refreshes"`
	FailedRefresh  int           `json:"failed_refreshes"`
	TotalLatency   time.Duration `json:"total_latency"`
}

// AverageLatency returns mean request latency, or 0 with no requests.
func (m SessionMetrics) AverageLatency() time.Duration {
	if m.TotalRequests == 0 {
		return 0
	}
	return m.TotalLatency / time.Duration(m.TotalRequests)
}

// SessionCollector accumulates counters across a CLI session.
// It is safe for concurrent use.
type SessionCollector struct {
	mu sync.Mutex

	startTime      time.Time
	totalRequests  int
	failedRequests int
	totalRetries   int
	rateLimitWaits int
	rateLimitDelay time.Duration
	refreshes      int
	failedRefresh  int
	totalLatency   time.Duration
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector() *SessionCollector {
	return &SessionCollector{
		startTime: time.Now(),
	}
}

// RecordRequest records metrics for an HTTP request.
func (c *SessionCollector) RecordRequest(m RequestMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRequests++
	c.totalLatency += m.Duration
	if m.Failed() {
		c.failedRequests++
	}
}

// RecordRetry records a retry. Rate-limit retries also count their wait.
func (c *SessionCollector) RecordRetry(reason api.RetryReason, wait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.totalRetries++
	if reason == api.RetryRateLimit {
		c.rateLimitWaits++
		c.rateLimitDelay += wait
	}
}

// RecordRefresh records a credential recovery step.
func (c *SessionCollector) RecordRefresh(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshes++
	if !ok {
		c.failedRefresh++
	}
}

// Summary returns aggregated metrics for the session.
func (c *SessionCollector) Summary() SessionMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()

	return SessionMetrics{
		StartTime:      c.startTime,
		EndTime:        time.Now(),
		TotalRequests:  c.totalRequests,
		FailedRequests: c.failedRequests,
		TotalRetries:   c.totalRetries,
		RateLimitWaits: c.rateLimitWaits,
		RateLimitDelay: c.rateLimitDelay,
		Refreshes:      c.refreshes,
		FailedRefresh:  c.failedRefresh,
		TotalLatency:   c.totalLatency,
	}
}

// Reset clears all collected metrics and resets the start time.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c = SessionCollector{startTime: time.Now()}
}
