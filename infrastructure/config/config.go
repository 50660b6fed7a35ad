package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage, cache and metrics backends
const (
	StorageDynamoDB = "dynamodb"
	StorageMemory   = "memory"

	CacheMemory = "memory"
	CacheRedis  = "redis"

	MetricsCloudWatch = "cloudwatch"
	MetricsPrometheus = "prometheus"
	MetricsNone       = "none"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address"`
	Environment   string `yaml:"environment"`

	// AWS configuration
	AWSRegion     string `yaml:"aws_region"`
	DynamoDBTable string `yaml:"table_name"`
	EventBusName  string `yaml:"event_bus_name"`

	// Backends
	StorageBackend  string `yaml:"storage_backend"`
	ScoreBoardCache string `yaml:"scoreboard_cache"`
	RedisURL        string `yaml:"redis_url"`
	MetricsBackend  string `yaml:"metrics_backend"`

	// Recommendation engine
	ScoreBoardTTL  time.Duration `yaml:"scoreboard_ttl"`
	BatchSize      int           `yaml:"batch_size"`
	ScoringWorkers int           `yaml:"scoring_workers"`
	LockTTL        time.Duration `yaml:"lock_ttl"`

	// Logging
	LogLevel string `yaml:"log_level"`

	// Authentication
	JWTSecret string `yaml:"jwt_secret"`
	JWTIssuer string `yaml:"jwt_issuer"`

	// Requests per minute per user on the REST API, 0 disables the limit
	RateLimitPerMinute int `yaml:"rate_limit_per_minute"`

	// Feature flags
	EnableTracing bool `yaml:"enable_tracing"`
	EnableCORS    bool `yaml:"enable_cors"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		ServerAddress:      ":8080",
		Environment:        "development",
		AWSRegion:          "us-west-2",
		DynamoDBTable:      "chatter",
		EventBusName:       "chatter-events",
		StorageBackend:     StorageMemory,
		ScoreBoardCache:    CacheMemory,
		MetricsBackend:     MetricsNone,
		ScoreBoardTTL:      15 * time.Minute,
		BatchSize:          100,
		ScoringWorkers:     4,
		LockTTL:            10 * time.Second,
		LogLevel:           "info",
		JWTIssuer:          "chatter",
		RateLimitPerMinute: 120,
		EnableCORS:         true,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by CONFIG_FILE if any, then environment variables
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.DynamoDBTable = getEnv("TABLE_NAME", c.DynamoDBTable)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)

	c.StorageBackend = getEnv("STORAGE_BACKEND", c.StorageBackend)
	c.ScoreBoardCache = getEnv("SCOREBOARD_CACHE", c.ScoreBoardCache)
	c.RedisURL = getEnv("REDIS_URL", c.RedisURL)
	c.MetricsBackend = getEnv("METRICS_BACKEND", c.MetricsBackend)

	c.ScoreBoardTTL = getEnvDuration("SCOREBOARD_TTL", c.ScoreBoardTTL)
	c.BatchSize = getEnvInt("BATCH_SIZE", c.BatchSize)
	c.ScoringWorkers = getEnvInt("SCORING_WORKERS", c.ScoringWorkers)
	c.LockTTL = getEnvDuration("LOCK_TTL", c.LockTTL)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case StorageMemory:
	case StorageDynamoDB:
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}

	switch c.ScoreBoardCache {
	case CacheMemory:
	case CacheRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis score board cache")
		}
	default:
		return fmt.Errorf("unknown SCOREBOARD_CACHE %q", c.ScoreBoardCache)
	}

	switch c.MetricsBackend {
	case MetricsCloudWatch, MetricsPrometheus, MetricsNone:
	default:
		return fmt.Errorf("unknown METRICS_BACKEND %q", c.MetricsBackend)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.ScoringWorkers <= 0 {
		return fmt.Errorf("SCORING_WORKERS must be positive, got %d", c.ScoringWorkers)
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must not be negative, got %d", c.RateLimitPerMinute)
	}

	if c.IsProduction() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration parses values such as "30s" or "5m"
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
