// internal/gateway/tool-gateway/config.go
package toolgateway

type Config struct {
	// BulkWarnThreshold is the quantity above which a bulk-purchase hint is
	// attached. It never affects validity.
	BulkWarnThreshold int
}

func LoadConfig() *Config {
	return &Config{
		BulkWarnThreshold: 10,
	}
}
