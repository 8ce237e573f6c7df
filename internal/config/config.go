package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port          string
	DatabaseURL   string // Record store connection URL (PostgreSQL or MySQL)
	Version       string
	LogLevel      string
	OpenAIKey     string
	OpenAITimeout int    // Scorer API timeout in seconds
	StoreTimeout  int    // Record store call timeout in seconds
	CacheTTL      int    // Metrics/trends cache TTL in seconds
	EnableScorer  bool   // Whether the admin rescore endpoint is available
	AgentID       string // Agent identity the view is loaded for
	AgentEmail    string
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:          getEnv("PORT", "8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Version:       getEnv("VERSION", "1.0.0"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAITimeout: getEnvInt("OPENAI_TIMEOUT", 60),    // Default 60 seconds
		StoreTimeout:  getEnvInt("STORE_TIMEOUT", 10),     // Default 10 seconds
		CacheTTL:      getEnvInt("CACHE_TTL_SECONDS", 30), // Default 30 seconds
		EnableScorer:  getEnvBool("ENABLE_SCORER", true),  // Default true when a key is present
		AgentID:       getEnv("AGENT_ID", "inbox"),
		AgentEmail:    os.Getenv("AGENT_EMAIL"),
	}

	return config
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	// Configure zerolog to output JSON without newlines
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// Create logger with JSON output to stdout
	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "leadbox").
		Str("version", c.Version).
		Logger()

	// Set log level based on configuration
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
