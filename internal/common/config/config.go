// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Agent         AgentConfig         `mapstructure:"agent"`
	Database      DatabaseConfig      `mapstructure:"database"`
	History       HistoryConfig       `mapstructure:"history"`
	GenAI         GenAIConfig         `mapstructure:"genai"`
	Collaborators CollaboratorsConfig `mapstructure:"collaborators"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AgentConfig holds the gateway pipeline settings.
type AgentConfig struct {
	SpecPath            string  `mapstructure:"spec_path"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	DefaultQueryLimit   int     `mapstructure:"default_query_limit"`
	MaxQueryLimit       int     `mapstructure:"max_query_limit"`
	BulkWarnThreshold   int     `mapstructure:"bulk_warn_threshold"`
	BulkQuantityLimit   int     `mapstructure:"bulk_quantity_limit"`
}

type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // "mongo" or "memory"
	Mongo  MongoConfig `mapstructure:"mongo"`
	Redis  RedisConfig `mapstructure:"redis"`
}

type MongoConfig struct {
	URI            string `mapstructure:"uri"`
	Database       string `mapstructure:"database"`
	MaxPoolSize    uint64 `mapstructure:"max_pool_size"`
	ConnectTimeout int    `mapstructure:"connect_timeout"` // milliseconds
	QueryTimeout   int    `mapstructure:"query_timeout"`   // milliseconds
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HistoryConfig controls the conversation history store.
type HistoryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	MaxTurns  int    `mapstructure:"max_turns"`
	TTL       int    `mapstructure:"ttl"` // seconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

// GenAIConfig holds settings for the response generator.
type GenAIConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Temperature float32 `mapstructure:"temperature"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// CollaboratorsConfig maps tool collaborators to their base URLs.
type CollaboratorsConfig struct {
	Cart     string `mapstructure:"cart"`
	Wishlist string `mapstructure:"wishlist"`
	Order    string `mapstructure:"order"`
	Product  string `mapstructure:"product"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
