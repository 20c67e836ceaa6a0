package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware.
// When Enabled is false or no Redis client is configured, caching is
// disabled. KeyStrategy determines which parts of the request contribute
// to the cache key.
type CacheConfig struct {
	Enabled      bool          `env:"CACHE_ENABLED" envDefault:"true"`
	Methods      []string      `env:"CACHE_METHODS" envSeparator:"," envDefault:"GET"`
	TTL          time.Duration `env:"CACHE_TTL" envDefault:"30s"`
	KeyStrategy  string        `env:"CACHE_KEY_STRATEGY" envDefault:"route_query"`
	Prefix       string        `env:"CACHE_PREFIX" envDefault:"cache"`
	MaxBodyBytes int           `env:"CACHE_MAX_BODY_BYTES" envDefault:"1048576"`
}

func (c *CacheConfig) normalize() {
	methods := make([]string, 0, len(c.Methods))
	for _, m := range c.Methods {
		m = strings.TrimSpace(strings.ToUpper(m))
		if m != "" {
			methods = append(methods, m)
		}
	}
	c.Methods = methods
	if c.TTL <= 0 {
		c.TTL = 30 * time.Second
	}
}

// Caches reports whether responses to the given method are cached.
func (c CacheConfig) Caches(method string) bool {
	method = strings.ToUpper(method)
	for _, m := range c.Methods {
		if m == method {
			return true
		}
	}
	return false
}
