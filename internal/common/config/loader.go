// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Env override like DATABASE_MONGO_URI
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // ignore error if not found

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// loadEnvFile loads .env from the first location that has one.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			// Unset variables expand to "" so validation can report them.
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.GenAI.APIKey == "" {
		if val := os.Getenv("GEMINI_API_KEY"); val != "" {
			cfg.GenAI.APIKey = val
		} else if val := os.Getenv("GOOGLE_API_KEY"); val != "" {
			cfg.GenAI.APIKey = val
		}
	}
	if cfg.Database.Mongo.URI == "" {
		if val := os.Getenv("MONGO_URI"); val != "" {
			cfg.Database.Mongo.URI = val
		}
	}
	if cfg.Database.Redis.Password == "" {
		if val := os.Getenv("REDIS_PASSWORD"); val != "" {
			cfg.Database.Redis.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "shopping-agent-gateway"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	if cfg.Agent.ConfidenceThreshold == 0 {
		cfg.Agent.ConfidenceThreshold = 0.7
	}
	if cfg.Agent.DefaultQueryLimit == 0 {
		cfg.Agent.DefaultQueryLimit = 100
	}
	if cfg.Agent.MaxQueryLimit == 0 {
		cfg.Agent.MaxQueryLimit = 500
	}
	if cfg.Agent.BulkWarnThreshold == 0 {
		cfg.Agent.BulkWarnThreshold = 10
	}
	if cfg.Agent.BulkQuantityLimit == 0 {
		cfg.Agent.BulkQuantityLimit = 100
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mongo"
	}
	if cfg.Database.Mongo.Database == "" {
		cfg.Database.Mongo.Database = "shop"
	}
	if cfg.Database.Mongo.MaxPoolSize == 0 {
		cfg.Database.Mongo.MaxPoolSize = 50
	}
	if cfg.Database.Mongo.ConnectTimeout == 0 {
		cfg.Database.Mongo.ConnectTimeout = 10000
	}
	if cfg.Database.Mongo.QueryTimeout == 0 {
		cfg.Database.Mongo.QueryTimeout = 5000
	}

	if cfg.History.MaxTurns == 0 {
		cfg.History.MaxTurns = 20
	}
	if cfg.History.TTL == 0 {
		cfg.History.TTL = 86400
	}
	if cfg.History.KeyPrefix == "" {
		cfg.History.KeyPrefix = "agent:history:"
	}

	if cfg.GenAI.Model == "" {
		cfg.GenAI.Model = "gemini-2.5-flash"
	}
	if cfg.GenAI.Timeout == 0 {
		cfg.GenAI.Timeout = 60000
	}
	if cfg.Collaborators.Timeout == 0 {
		cfg.Collaborators.Timeout = 10000
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Agent.ConfidenceThreshold < 0 || cfg.Agent.ConfidenceThreshold > 1 {
		return fmt.Errorf("agent.confidence_threshold must be within [0, 1]")
	}
	if cfg.Agent.DefaultQueryLimit > cfg.Agent.MaxQueryLimit {
		return fmt.Errorf("agent.default_query_limit must not exceed agent.max_query_limit")
	}

	switch cfg.Database.Driver {
	case "mongo":
		if cfg.Database.Mongo.URI == "" {
			return fmt.Errorf("database.mongo.uri is required")
		}
	case "memory":
	default:
		return fmt.Errorf("database.driver must be mongo or memory, got %q", cfg.Database.Driver)
	}

	if cfg.History.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when history is enabled")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
