package observability

import (
	"context"
	"sync"
	"time"

	"github.com/Pack3tL0ss/central-api-cli-sub004/internal/api"
)

var _ api.Hooks = (*CLIHooks)(nil)

// CLIHooks implements api.Hooks for the command line.
//   - 0: collect stats only
//   - 1: also trace requests, retries and recovery steps to the trace writer
type CLIHooks struct {
	mu        sync.Mutex
	level     int
	collector *SessionCollector
	writer    *TraceWriter
}

// NewCLIHooks creates hooks at the given level. A nil collector or writer
// disables that half.
func NewCLIHooks(level int, collector *SessionCollector, writer *TraceWriter) *CLIHooks {
	return &CLIHooks{
		level:     level,
		collector: collector,
		writer:    writer,
	}
}

// SetLevel changes the trace level at runtime.
func (h *CLIHooks) SetLevel(level int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.level = level
}

// Level returns the current trace level.
func (h *CLIHooks) Level() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level
}

func (h *CLIHooks) snapshot() (int, *SessionCollector, *TraceWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.level, h.collector, h.writer
}

// OnRequestStart is called before each transport attempt.
func (h *CLIHooks) OnRequestStart(ctx context.Context, info api.RequestInfo) context.Context {
	level, _, writer := h.snapshot()
	if level >= 1 && writer != nil {
		writer.WriteRequestStart(info)
	}
	return ctx
}

// OnRequestEnd is called after each transport attempt.
func (h *CLIHooks) OnRequestEnd(_ context.Context, info api.RequestInfo, result api.RequestResult) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRequest(RequestMetrics{
			Method:     info.Method,
			URL:        info.URL,
			Attempt:    info.Attempt,
			StatusCode: result.StatusCode,
			Duration:   result.Duration,
			Error:      result.Err,
		})
	}
	if level >= 1 && writer != nil {
		writer.WriteRequestEnd(result)
	}
}

// OnRetry is called before a request is re-sent.
func (h *CLIHooks) OnRetry(_ context.Context, info api.RequestInfo, reason api.RetryReason, wait time.Duration) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRetry(reason, wait)
	}
	if level >= 1 && writer != nil {
		writer.WriteRetry(info, reason, wait)
	}
}

// OnRefresh is called after each credential recovery step.
func (h *CLIHooks) OnRefresh(_ context.Context, info api.RefreshInfo) {
	level, collector, writer := h.snapshot()
	if collector != nil {
		collector.RecordRefresh(info.OK)
	}
	if level >= 1 && writer != nil {
		writer.WriteRefresh(info)
	}
}
