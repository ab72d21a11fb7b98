package resilience

import (
	"time"
)

// StateVersion is the current state schema version. Files written with any
// other version are discarded on load.
const StateVersion = 2

// State is the rate-limit state shared by every cencli process using one account.
type State struct {
	Version     int              `json:"version"`
	RateLimiter RateLimiterState `json:"rate_limiter"`
	Quota       QuotaState       `json:"quota"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// RateLimiterState is the token bucket.
type RateLimiterState struct {
	Tokens       float64   `json:"tokens"`
	LastRefillAt time.Time `json:"last_refill_at"`

	// RetryAfterUntil is set from a 429 Retry-After header. No request is
	// sent before it passes.
	RetryAfterUntil time.Time `json:"retry_after_until"`
}

// BlockedFor returns how long until the Retry-After window expires.
func (r *RateLimiterState) BlockedFor(now time.Time) time.Duration {
	if r.RetryAfterUntil.IsZero() || !now.Before(r.RetryAfterUntil) {
		return 0
	}
	return r.RetryAfterUntil.Sub(now)
}

// QuotaState is the daily quota last reported by Central's
// X-RateLimit-*-day headers.
type QuotaState struct {
	LimitDay     int       `json:"limit_day,omitempty"`
	RemainingDay int       `json:"remaining_day,omitempty"`
	ObservedAt   time.Time `json:"observed_at,omitzero"`
}

// Known reports whether any quota has been observed.
func (q QuotaState) Known() bool {
	return !q.ObservedAt.IsZero()
}

// NewState returns an empty state. LastRefillAt stays zero so the first
// refill fills the bucket from the limiter's config.
func NewState() *State {
	return &State{
		Version:   StateVersion,
		UpdatedAt: time.Now(),
	}
}
