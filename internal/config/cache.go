package config

import (
	"os"
	"time"
)

// SnapshotCacheConfig defines settings for the Redis-backed table snapshot
// cache. When Enabled is false or no Redis client can be constructed the
// store runs uncached. TTL bounds how stale the claim pre-scan may be; the
// trade-off is explicit: a longer TTL saves round-trips to the backing
// table under load, a shorter one keeps NoneAvailable answers fresher.
// Every candidate row is re-read authoritatively before being claimed, so
// staleness never affects exclusivity.
type SnapshotCacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Key     string
}

// LoadSnapshotCacheConfig reads environment variables to build a
// SnapshotCacheConfig. Defaults are used when variables are not set.
func LoadSnapshotCacheConfig() SnapshotCacheConfig {
	return SnapshotCacheConfig{
		Enabled: getenv("SNAPSHOT_CACHE_ENABLED", "true") == "true",
		TTL:     parseDur(getenv("SNAPSHOT_CACHE_TTL", "5s")),
		Key:     getenv("SNAPSHOT_CACHE_KEY", "allocator:snapshot"),
	}
}

// Helper functions shared with config.go and redis.go.
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Second
	}
	return d
}
