// internal/gateway/orchestrator/config.go
package orchestrator

type Config struct {
	// MaxListed caps how many documents the template synthesizer lists.
	MaxListed int
	// PersistHistory appends each turn to the history store when one is set.
	PersistHistory bool
}

func LoadConfig() *Config {
	return &Config{
		MaxListed:      10,
		PersistHistory: true,
	}
}
