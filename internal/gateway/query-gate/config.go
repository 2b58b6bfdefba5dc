// internal/gateway/query-gate/config.go
package querygate

type Config struct {
	// DefaultLimit applies when the query names no limit.
	DefaultLimit int
	// MaxLimit is the wire ceiling. Larger requests are rejected, never clamped.
	MaxLimit int
}

func LoadConfig() *Config {
	return &Config{
		DefaultLimit: 100,
		MaxLimit:     500,
	}
}
