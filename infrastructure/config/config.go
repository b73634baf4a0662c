package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Storage backends selectable through STORAGE_BACKEND
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// Storage selection
	StorageBackend string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	IndexName     string // GSI1 - membership index, user-level workspace queries
	GSI2IndexName string // GSI2 - direct entity and edge lookups by ID
	EventBusName  string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string
	ColdStartTimeout   int // milliseconds

	// Cache configuration
	RedisURL       string // empty disables Redis, the in-process cache is used instead
	CacheTTL       int    // seconds
	SchemaCacheTTL int    // seconds

	// Schema seeding (development convenience)
	SchemaSeedFile  string
	SeedWorkspaceID string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret          string
	JWTIssuer          string
	RateLimitPerMinute int

	// HTTP
	CORSAllowedOrigins []string

	// Timeouts
	RequestTimeout  int // seconds
	ShutdownTimeout int // seconds

	// Feature flags
	EnableMetrics      bool
	EnableTracing      bool
	EnableCORS         bool
	EnableQueryCaching bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":"+getEnv("PORT", "8080")),
		Environment:   getEnv("ENVIRONMENT", "development"),

		StorageBackend: getEnv("STORAGE_BACKEND", BackendDynamoDB),

		AWSRegion: getEnv("AWS_REGION", "us-west-2"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "lattice")),
		IndexName:     getEnv("INDEX_NAME", "MembershipIndex"),   // GSI1
		GSI2IndexName: getEnv("GSI2_INDEX_NAME", "ElementIndex"), // GSI2 - entity and edge lookups
		EventBusName:  getEnv("EVENT_BUS_NAME", "lattice-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),
		ColdStartTimeout:   getEnvInt("COLD_START_TIMEOUT", 3000),

		// Cache configuration
		RedisURL:       getEnv("REDIS_URL", ""),
		CacheTTL:       getEnvInt("CACHE_TTL", 300),
		SchemaCacheTTL: getEnvInt("SCHEMA_CACHE_TTL", 3600),

		// Schema seeding
		SchemaSeedFile:  getEnv("SCHEMA_SEED_FILE", ""),
		SeedWorkspaceID: getEnv("SEED_WORKSPACE_ID", ""),

		// Authentication
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "lattice"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 100),

		// HTTP
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Timeouts
		RequestTimeout:  getEnvInt("REQUEST_TIMEOUT", 30),
		ShutdownTimeout: getEnvInt("SHUTDOWN_TIMEOUT", 15),

		// Logging and features
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		EnableMetrics:      getEnvBool("ENABLE_METRICS", false),
		EnableTracing:      getEnvBool("ENABLE_TRACING", false),
		EnableCORS:         getEnvBool("ENABLE_CORS", true),
		EnableQueryCaching: getEnvBool("ENABLE_QUERY_CACHING", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig for backwards compatibility
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.StorageBackend != BackendDynamoDB && c.StorageBackend != BackendMemory {
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendDynamoDB, BackendMemory, c.StorageBackend)
	}
	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.DynamoDBTable == "" {
			return fmt.Errorf("TABLE_NAME is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
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

// getEnvList gets a comma-separated environment variable with a default value
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
