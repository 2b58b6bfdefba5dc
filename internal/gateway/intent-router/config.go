// internal/gateway/intent-router/config.go
package intentrouter

type Config struct {
	// ConfidenceThreshold is the lowest confidence routed to an agent.
	ConfidenceThreshold float64
}

func LoadConfig() *Config {
	return &Config{
		ConfidenceThreshold: 0.7,
	}
}
