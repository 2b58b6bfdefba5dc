// internal/gateway/policy-gate/config.go
package policygate

type Config struct {
	// BulkQuantityLimit is the largest cart or checkout quantity that passes
	// without a bulk-order warning.
	BulkQuantityLimit int
}

func LoadConfig() *Config {
	return &Config{
		BulkQuantityLimit: 100,
	}
}
