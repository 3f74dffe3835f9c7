package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the response cache middleware placed in
// front of the archive listing.  When Enabled is false or no Redis client is
// configured, caching is disabled.  Archive listings walk many keys, so a
// short TTL keeps admin dashboards cheap without hiding a fresh backup for
// long.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
// Defaults are used when variables are not set.  The prefix lives under the
// application key prefix so a single KEY_PREFIX isolates deployments.
func LoadCacheConfig(keyPrefix string) CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 30*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       keyPrefix + ":" + envStr("CACHE_PREFIX", "cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1048576),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
