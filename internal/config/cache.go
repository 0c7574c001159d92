package config

import "time"

// CacheConfig defines settings for the weather response cache. Upstream
// weather data changes slowly, so successful GET responses are kept in Redis
// for TTL and served verbatim on a hit.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("WEATHER_CACHE_ENABLED", true),
		TTL:          envDur("WEATHER_CACHE_TTL", 5*time.Minute),
		Prefix:       getenv("WEATHER_CACHE_PREFIX", "wx"),
		MaxBodyBytes: envInt("WEATHER_CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
