// internal/gateway/tool-dispatch/config.go
package tooldispatch

import "time"

type Config struct {
	// Timeout bounds one collaborator round trip.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
