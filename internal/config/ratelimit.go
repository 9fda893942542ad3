package config

import "time"

// RateLimitConfig tunes the Redis token bucket in front of the public
// routes.  Every endpoint here is anonymous, so buckets are keyed by
// client IP and route; the webhook route gets its own budget that a
// burst of checkout traffic cannot exhaust.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int           // bucket size, i.e. allowed burst
	RefillTokens   int           // tokens added per refill interval
	RefillInterval time.Duration // how often tokens are added
	TTL            time.Duration // idle bucket expiry in Redis
	KeyStrategy    string        // ip, route or ip_route
	Prefix         string        // Redis key namespace
	Debug          bool          // expose the bucket key in a header
}

// LoadRateLimitConfig reads the limiter settings from the environment
// and normalizes them so the Lua script never sees a zero interval or
// a TTL shorter than the refill cycle.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 60),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	}
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.RefillTokens < 1 {
		cfg.RefillTokens = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RefillInterval; cfg.TTL < minTTL {
		cfg.TTL = minTTL
	}
	return cfg
}
