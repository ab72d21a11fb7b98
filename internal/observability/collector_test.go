package observability

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

func TestSessionCollector_RecordRequest(t *testing.T) {
	c := NewSessionCollector()

	c.RecordRequest(RequestMetrics{Method: "GET", URL: "/central/v2/sites", StatusCode: 200, Duration: 50 * time.Millisecond})
	c.RecordRequest(RequestMetrics{Method: "GET", URL: "/central/v2/sites", StatusCode: 401, Duration: 10 * time.Millisecond})
	c.RecordRequest(RequestMetrics{Method: "GET", URL: "/central/v2/sites", Error: errors.New("refused")})

	summary := c.Summary()
	if summary.TotalRequests != 3 {
		t.Errorf("expected 3 total requests, got %d", summary.TotalRequests)
	}
	if summary.FailedRequests != 2 {
		t.Errorf("expected 2 failed requests, got %d", summary.FailedRequests)
	}
	if summary.TotalLatency != 60*time.Millisecond {
		t.Errorf("expected 60ms total latency, got %v", summary.TotalLatency)
	}
	if summary.AverageLatency() != 20*time.Millisecond {
		t.Errorf("expected 20ms average latency, got %v", summary.AverageLatency())
	}
}

func TestSessionMetrics_AverageLatencyEmpty(t *testing.T) {
	if got := (SessionMetrics{}).AverageLatency(); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestSessionCollector_RecordRetry(t *testing.T) {
	c := NewSessionCollector()

	c.RecordRetry(api.RetryAuth, 0)
	c.RecordRetry(api.RetryRateLimit, time.Second)
	c.RecordRetry(api.RetryRateLimit, 3*time.Second)

	summary := c.Summary()
	if summary.TotalRetries != 3 {
		t.Errorf("expected 3 retries, got %d", summary.TotalRetries)
	}
	if summary.RateLimitWaits != 2 {
		t.Errorf("expected 2 rate limit waits, got %d", summary.RateLimitWaits)
	}
	if summary.RateLimitDelay != 4*time.Second {
		t.Errorf("expected 4s rate limit delay, got %v", summary.RateLimitDelay)
	}
}

func TestSessionCollector_Reset(t *testing.T) {
	c := NewSessionCollector()
	before := c.Summary().StartTime

	c.RecordRequest(RequestMetrics{StatusCode: 200})
	c.RecordRefresh(false)
	time.Sleep(time.Millisecond)
	c.Reset()

	summary := c.Summary()
	if summary.TotalRequests != 0 || summary.Refreshes != 0 || summary.FailedRefresh != 0 {
		t.Errorf("expected zeroed counters, got %+v", summary)
	}
	if !summary.StartTime.After(before) {
		t.Error("expected start time to move forward")
	}
}

func TestSessionCollector_Concurrent(t *testing.T) {
	c := NewSessionCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordRequest(RequestMetrics{StatusCode: 200, Duration: time.Millisecond})
			c.RecordRetry(api.RetryAuth, 0)
			c.RecordRefresh(true)
		}()
	}
	wg.Wait()

	summary := c.Summary()
	if summary.TotalRequests != 50 || summary.TotalRetries != 50 || summary.Refreshes != 50 {
		t.Errorf("unexpected counters: %+v", summary)
	}
}
