package resilience

// DefaultRequestsPerSecond matches Central's per-second API limit.
const DefaultRequestsPerSecond = 7

// RateLimiterConfig configures the token bucket.
type RateLimiterConfig struct {
	// MaxTokens is the bucket size, i.e. the largest burst.
	MaxTokens float64

	// RefillRate is tokens added per second.
	RefillRate float64

	// TokensPerRequest is the cost of one request.
	TokensPerRequest float64
}

// DefaultConfig returns a bucket allowing perSecond requests per second with
// bursts of the same size. Non-positive values select DefaultRequestsPerSecond.
func DefaultConfig(perSecond int) RateLimiterConfig {
	if perSecond <= 0 {
		perSecond = DefaultRequestsPerSecond
	}
	return RateLimiterConfig{
		MaxTokens:        float64(perSecond),
		RefillRate:       float64(perSecond),
		TokensPerRequest: 1,
	}
}
