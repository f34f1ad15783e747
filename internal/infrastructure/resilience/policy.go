package resilience

import "time"

// Config tunes retry with exponential backoff and the per-operation circuit breaker.
type Config struct {
	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	RetryMultiplier     float64

	BreakerEnabled          bool
	BreakerMinRequests      uint32
	BreakerFailureRatio     float64
	BreakerOpenTimeout      time.Duration
	BreakerHalfOpenMaxCalls uint32
}

func DefaultConfig() Config {
	return Config{
		RetryMaxAttempts:        3,
		RetryInitialBackoff:     200 * time.Millisecond,
		RetryMaxBackoff:         2 * time.Second,
		RetryMultiplier:         2.0,
		BreakerEnabled:          true,
		BreakerMinRequests:      10,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      30 * time.Second,
		BreakerHalfOpenMaxCalls: 2,
	}
}

func (c Config) normalize() Config {
	def := DefaultConfig()
	out := Config{
		RetryMaxAttempts:        positive(c.RetryMaxAttempts, def.RetryMaxAttempts),
		RetryInitialBackoff:     positive(c.RetryInitialBackoff, def.RetryInitialBackoff),
		RetryMaxBackoff:         positive(c.RetryMaxBackoff, def.RetryMaxBackoff),
		RetryMultiplier:         c.RetryMultiplier,
		BreakerEnabled:          c.BreakerEnabled,
		BreakerMinRequests:      positive(c.BreakerMinRequests, def.BreakerMinRequests),
		BreakerFailureRatio:     c.BreakerFailureRatio,
		BreakerOpenTimeout:      positive(c.BreakerOpenTimeout, def.BreakerOpenTimeout),
		BreakerHalfOpenMaxCalls: positive(c.BreakerHalfOpenMaxCalls, def.BreakerHalfOpenMaxCalls),
	}
	out.RetryMaxBackoff = max(out.RetryMaxBackoff, out.RetryInitialBackoff)
	if out.RetryMultiplier < 1 {
		out.RetryMultiplier = def.RetryMultiplier
	}
	if out.BreakerFailureRatio <= 0 || out.BreakerFailureRatio > 1 {
		out.BreakerFailureRatio = def.BreakerFailureRatio
	}
	return out
}

func positive[T int | uint32 | time.Duration](v, def T) T {
	if v > 0 {
		return v
	}
	return def
}
