package observability

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

// sensitiveParams are query parameter names scrubbed from trace output.
var sensitiveParams = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token":         true,
	"code":          true,
	"password":      true,
	"client_secret": true,
}

// TraceWriter writes human-readable request traces with timestamps relative
// to session start.
type TraceWriter struct {
	mu        sync.Mutex
	writer    io.Writer
	startTime time.Time
}

// NewTraceWriter creates a TraceWriter on stderr.
func NewTraceWriter() *TraceWriter {
	return NewTraceWriterTo(os.Stderr)
}

// NewTraceWriterTo creates a TraceWriter on w.
func NewTraceWriterTo(w io.Writer) *TraceWriter {
	return &TraceWriter{
		writer:    w,
		startTime: time.Now(),
	}
}

func (t *TraceWriter) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	elapsed := time.Since(t.startTime).Seconds()
	fmt.Fprintf(t.writer, "[%.3fs] "+format+"\n", append([]any{elapsed}, args...)...)
}

// WriteRequestStart writes "[0.234s]   -> GET https://.../monitoring/v1/aps".
func (t *TraceWriter) WriteRequestStart(info api.RequestInfo) {
	if info.Attempt > 1 {
		t.printf("  -> %s %s (attempt %d)", info.Method, scrubURL(info.URL), info.Attempt)
		return
	}
	t.printf("  -> %s %s", info.Method, scrubURL(info.URL))
}

// WriteRequestEnd writes "[0.234s]   <- 200 (45ms)".
func (t *TraceWriter) WriteRequestEnd(result api.RequestResult) {
	if result.Err != nil {
		t.printf("  <- ERROR: %v", result.Err)
		return
	}
	t.printf("  <- %d (%dms)", result.StatusCode, result.Duration.Milliseconds())
}

// WriteRetry writes "[0.234s]   RETRY (rate_limit) after 1s".
func (t *TraceWriter) WriteRetry(_ api.RequestInfo, reason api.RetryReason, wait time.Duration) {
	if wait > 0 {
		t.printf("  RETRY (%s) after %s", reason, wait)
		return
	}
	t.printf("  RETRY (%s)", reason)
}

// WriteRefresh writes one credential recovery step.
func (t *TraceWriter) WriteRefresh(info api.RefreshInfo) {
	if info.OK {
		t.printf("  AUTH %s for %s: ok", info.Step, info.Account)
		return
	}
	t.printf("  AUTH %s for %s: %s", info.Step, info.Account, info.Reason)
}

// WriteSummary writes the --stats block.
func (t *TraceWriter) WriteSummary(m SessionMetrics) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "requests: %d (%d failed), avg %dms\n", m.TotalRequests, m.FailedRequests, m.AverageLatency().Milliseconds())
	fmt.Fprintf(&b, "retries: %d (%d rate limited, waited %s)\n", m.TotalRetries, m.RateLimitWaits, m.RateLimitDelay)
	fmt.Fprintf(&b, "token recovery: %d (%d failed)\n", m.Refreshes, m.FailedRefresh)
	fmt.Fprintf(&b, "elapsed: %s\n", m.EndTime.Sub(m.StartTime).Round(time.Millisecond))
	_, _ = io.WriteString(t.writer, b.String())
}

// Reset resets the start time for relative timestamps.
func (t *TraceWriter) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startTime = time.Now()
}

// scrubURL redacts sensitive query parameters. Unparseable URLs are not echoed.
func scrubURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "[unparseable URL]"
	}

	query := u.Query()
	modified := false
	for key := range query {
		if sensitiveParams[strings.ToLower(key)] {
			query.Set(key, "[REDACTED]")
			modified = true
		}
	}
	if !modified {
		return rawURL
	}

	u.RawQuery = query.Encode()
	return u.String()
}
