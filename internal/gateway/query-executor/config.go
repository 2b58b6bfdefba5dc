// internal/gateway/query-executor/config.go
package queryexecutor

import "time"

type Config struct {
	// Timeout bounds one find plus its optional count.
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
