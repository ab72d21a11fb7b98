package resilience

import (
	"context"
	"time"
)

// RateLimiter is a token bucket persisted through a Store, so the budget is
// shared by concurrent processes.
type RateLimiter struct {
	config RateLimiterConfig
	store  *Store
	now    func() time.Time
}

// NewRateLimiter creates a rate limiter. Zero config fields take the defaults.
func NewRateLimiter(store *Store, config RateLimiterConfig) *RateLimiter {
	def := DefaultConfig(0)
	if config.MaxTokens <= 0 {
		config.MaxTokens = def.MaxTokens
	}
	if config.RefillRate <= 0 {
		config.RefillRate = def.RefillRate
	}
	if config.TokensPerRequest <= 0 {
		config.TokensPerRequest = def.TokensPerRequest
	}

	return &RateLimiter{
		config: config,
		store:  store,
		now:    time.Now,
	}
}

func (rl *RateLimiter) refill(state *RateLimiterState, now time.Time) {
	if state.LastRefillAt.IsZero() {
		state.Tokens = rl.config.MaxTokens
		state.LastRefillAt = now
		return
	}

	elapsed := now.Sub(state.LastRefillAt)
	if elapsed < 0 {
		elapsed = 0
	}
	state.LastRefillAt = now

	state.Tokens += elapsed.Seconds() * rl.config.RefillRate
	if state.Tokens > rl.config.MaxTokens {
		state.Tokens = rl.config.MaxTokens
	}
}

// reserve takes a token when one is available and otherwise reports how long
// the caller should sleep before trying again.
func (rl *RateLimiter) reserve() (time.Duration, error) {
	var wait time.Duration

	err := rl.store.Update(func(state *State) error {
		rlState := &state.RateLimiter
		now := rl.now()

		if blocked := rlState.BlockedFor(now); blocked > 0 {
			wait = blocked
			return nil
		}

		rl.refill(rlState, now)

		if rlState.Tokens >= rl.config.TokensPerRequest {
			rlState.Tokens -= rl.config.TokensPerRequest
			wait = 0
		} else {
			missing := rl.config.TokensPerRequest - rlState.Tokens
			wait = time.Duration(missing / rl.config.RefillRate * float64(time.Second))
			if wait <= 0 {
				wait = time.Millisecond
			}
		}

		state.UpdatedAt = now
		return nil
	})
	return wait, err
}

// Allow consumes a token if one is available. State errors fail open.
func (rl *RateLimiter) Allow() (bool, error) {
	wait, err := rl.reserve()
	if err != nil {
		return true, nil //nolint:nilerr // fail open when the state file is unusable
	}
	return wait == 0, nil
}

// Wait blocks until a token is consumed or ctx is done. State errors fail open.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		wait, err := rl.reserve()
		if err != nil || wait == 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// SetRetryAfter blocks requests until the given time. An earlier deadline
// never shortens an existing block.
func (rl *RateLimiter) SetRetryAfter(until time.Time) error {
	return rl.store.Update(func(state *State) error {
		if until.After(state.RateLimiter.RetryAfterUntil) {
			state.RateLimiter.RetryAfterUntil = until
			state.UpdatedAt = rl.now()
		}
		return nil
	})
}

// SetRetryAfterDuration blocks requests for d.
func (rl *RateLimiter) SetRetryAfterDuration(d time.Duration) error {
	return rl.SetRetryAfter(rl.now().Add(d))
}

// RecordQuota stores the daily quota reported by the last response.
func (rl *RateLimiter) RecordQuota(limitDay, remainingDay int) error {
	if limitDay <= 0 {
		return nil
	}
	return rl.store.Update(func(state *State) error {
		now := rl.now()
		state.Quota = QuotaState{LimitDay: limitDay, RemainingDay: remainingDay, ObservedAt: now}
		state.UpdatedAt = now
		return nil
	})
}

// Quota returns the last recorded daily quota.
func (rl *RateLimiter) Quota() (QuotaState, error) {
	state, err := rl.store.Load()
	if err != nil {
		return QuotaState{}, err
	}
	return state.Quota, nil
}

// Tokens returns the number of available tokens, persisting any refill.
func (rl *RateLimiter) Tokens() (float64, error) {
	var tokens float64

	err := rl.store.Update(func(state *State) error {
		now := rl.now()
		rl.refill(&state.RateLimiter, now)
		tokens = state.RateLimiter.Tokens
		state.UpdatedAt = now
		return nil
	})
	if err != nil {
		return 0, err
	}
	return tokens, nil
}

// RetryAfterRemaining returns the remaining Retry-After block, or 0.
func (rl *RateLimiter) RetryAfterRemaining() (time.Duration, error) {
	state, err := rl.store.Load()
	if err != nil {
		return 0, err
	}
	return state.RateLimiter.BlockedFor(rl.now()), nil
}

// Reset refills the bucket and clears any Retry-After block.
func (rl *RateLimiter) Reset() error {
	return rl.store.Update(func(state *State) error {
		now := rl.now()
		state.RateLimiter = RateLimiterState{
			Tokens:       rl.config.MaxTokens,
			LastRefillAt: now,
		}
		state.UpdatedAt = now
		return nil
	})
}
