package api

import (
	"context"
	"time"
)

// RequestInfo describes one transport attempt.
type RequestInfo struct {
	Method    string
	URL       string
	Attempt   int
	RequestID string
}

// RequestResult is the outcome of one transport attempt. Err is set only
// when no HTTP response was received.
type RequestResult struct {
	StatusCode int
	Duration   time.Duration
	Err        error
}

// RetryReason says why the dispatcher is re-sending a request.
type RetryReason string

const (
	RetryAuth      RetryReason = "auth"
	RetryRateLimit RetryReason = "rate_limit"
)

// Recovery steps reported through Hooks.OnRefresh.
const (
	StepRefresh     = "refresh"
	StepSeedToken   = "seed_token"
	StepManualEntry = "manual_entry"
	StepReauthorize = "reauthorize"
)

// RefreshInfo reports one credential recovery step.
type RefreshInfo struct {
	Account string
	Step    string
	OK      bool
	Reason  string
}

// Hooks observes the dispatcher. Implementations must be cheap and must not
// block; they run inline on every attempt.
type Hooks interface {
	OnRequestStart(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd(ctx context.Context, info RequestInfo, result RequestResult)
	OnRetry(ctx context.Context, info RequestInfo, reason RetryReason, wait time.Duration)
	OnRefresh(ctx context.Context, info RefreshInfo)
}

// NopHooks ignores every event.
type NopHooks struct{}

func (NopHooks) OnRequestStart(ctx context.Context, _ RequestInfo) context.Context { return ctx }
func (NopHooks) OnRequestEnd(context.Context, RequestInfo, RequestResult)          {}
func (NopHooks) OnRetry(context.Context, RequestInfo, RetryReason, time.Duration)  {}
func (NopHooks) OnRefresh(context.Context, RefreshInfo)                            {}
