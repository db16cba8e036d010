package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion     string
	DynamoDBTable string
	EventBusName  string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// WebSocket configuration
	WebSocketEndpoint string
	ConnectionsTable  string
	// StreamUserID receives relayed events that do not name a user
	StreamUserID string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// User profile
	ProfilePath  string
	WatchProfile bool

	// Notification gateway; an empty URL logs messages instead of sending them
	SMSWebhookURL     string
	SMSWebhookToken   string
	SMSRatePerSecond  float64
	SMSRequestTimeout time.Duration

	// Audio input is "simulated" or "device"; device readings are pushed
	// over the API and go stale after AudioMaxAge
	AudioInput  string
	AudioMaxAge time.Duration

	// Simulation seeds; 0 uses the clock
	AudioSeed    int64
	LocationSeed int64

	// Incident history
	ArchiveQueueSize int
	ArchiveTTL       time.Duration
	LeaseTTL         time.Duration

	// Tracing
	OTLPEndpoint string
	ServiceName  string

	AllowedOrigins []string

	// Feature flags
	EnableMetrics    bool
	EnableTracing    bool
	EnableCORS       bool
	EnableCloudWatch bool
	EnableDynamoDB   bool
	EnableEventBus   bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		AWSRegion:     getEnv("AWS_REGION", "ap-south-1"),
		DynamoDBTable: getEnv("TABLE_NAME", getEnv("DYNAMODB_TABLE", "sentinel")),
		EventBusName:  getEnv("EVENT_BUS_NAME", "sentinel-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// WebSocket configuration
		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),
		ConnectionsTable:  getEnv("CONNECTIONS_TABLE", "sentinel-connections"),
		StreamUserID:      getEnv("STREAM_USER_ID", ""),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "sentinel"),

		ProfilePath:  getEnv("PROFILE_PATH", ""),
		WatchProfile: getEnvBool("WATCH_PROFILE", true),

		SMSWebhookURL:     getEnv("SMS_WEBHOOK_URL", ""),
		SMSWebhookToken:   getEnv("SMS_WEBHOOK_TOKEN", ""),
		SMSRatePerSecond:  getEnvFloat("SMS_RATE_PER_SECOND", 10),
		SMSRequestTimeout: getEnvDuration("SMS_REQUEST_TIMEOUT", 5*time.Second),

		AudioInput:   getEnv("AUDIO_INPUT", "simulated"),
		AudioMaxAge:  getEnvDuration("AUDIO_MAX_AGE", 3*time.Second),
		AudioSeed:    int64(getEnvInt("AUDIO_SEED", 0)),
		LocationSeed: int64(getEnvInt("LOCATION_SEED", 0)),

		ArchiveQueueSize: getEnvInt("ARCHIVE_QUEUE_SIZE", 256),
		ArchiveTTL:       getEnvDuration("ARCHIVE_TTL", 90*24*time.Hour),
		LeaseTTL:         getEnvDuration("ENGINE_LEASE_TTL", 30*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "sentinel"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),

		// Logging and features
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", true),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		EnableCORS:       getEnvBool("ENABLE_CORS", true),
		EnableCloudWatch: getEnvBool("ENABLE_CLOUDWATCH", false),
		EnableDynamoDB:   getEnvBool("ENABLE_DYNAMODB", false),
		EnableEventBus:   getEnvBool("ENABLE_EVENT_BUS", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every configuration problem at once
func (c *Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	if c.IsProduction() {
		check(c.JWTSecret != "", "JWT_SECRET is required in production")
		check(c.SMSWebhookURL != "", "SMS_WEBHOOK_URL is required in production")
	}
	check(!c.EnableDynamoDB || c.DynamoDBTable != "", "DYNAMODB_TABLE is required")
	check(!c.EnableEventBus || c.EventBusName != "", "EVENT_BUS_NAME is required")
	check(c.SMSRatePerSecond > 0, "SMS_RATE_PER_SECOND must be positive")
	check(c.AudioInput == "simulated" || c.AudioInput == "device", "AUDIO_INPUT must be simulated or device, got %q", c.AudioInput)
	check(c.ArchiveQueueSize >= 1, "ARCHIVE_QUEUE_SIZE must be at least 1")

	return errors.Join(problems...)
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

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
