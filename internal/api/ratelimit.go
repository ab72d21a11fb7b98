package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimiter paces outbound requests. resilience.RateLimiter implements it.
type RateLimiter interface {
	Wait(ctx context.Context) error
	SetRetryAfterDuration(d time.Duration) error
	RecordQuota(limitDay, remainingDay int) error
}

// RateLimit is Central's quota as reported on a response.
type RateLimit struct {
	LimitDay        int  `json:"limit_day"`
	RemainingDay    int  `json:"remaining_day"`
	LimitSecond     int  `json:"limit_second"`
	RemainingSecond int  `json:"remaining_second"`
	Known           bool `json:"-"`
}

// ParseRateLimit reads the X-RateLimit-* headers.
func ParseRateLimit(h http.Header) RateLimit {
	var rl RateLimit
	read := func(name string, dst *int) {
		v := strings.TrimSpace(h.Get(name))
		if v == "" {
			return
		}
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
			rl.Known = true
		}
	}
	read("X-RateLimit-Limit-day", &rl.LimitDay)
	read("X-RateLimit-Remaining-day", &rl.RemainingDay)
	read("X-RateLimit-Limit-second", &rl.LimitSecond)
	read("X-RateLimit-Remaining-second", &rl.RemainingSecond)
	return rl
}

// UsedDay returns calls consumed today.
func (r RateLimit) UsedDay() int {
	return r.LimitDay - r.RemainingDay
}

// NearLimit reports an exhausted daily quota or at most one call left this second.
func (r RateLimit) NearLimit() bool {
	return r.Known && (r.RemainingDay == 0 || r.RemainingSecond <= 1)
}

func (r RateLimit) String() string {
	if !r.Known {
		return ""
	}
	return fmt.Sprintf("API Rate Limit: %d of %d remaining.", r.RemainingDay, r.LimitDay)
}

const (
	defaultRetryAfter = time.Second
	maxRetryAfter     = time.Minute
)

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultRetryAfter
	}
	var d time.Duration
	if secs, err := strconv.Atoi(v); err == nil {
		d = time.Duration(secs) * time.Second
	} else if t, err := http.ParseTime(v); err == nil {
		d = t.Sub(now)
	} else {
		return defaultRetryAfter
	}
	switch {
	case d <= 0:
		return defaultRetryAfter
	case d > maxRetryAfter:
		return maxRetryAfter
	}
	return d
}
