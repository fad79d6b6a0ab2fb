// Package config loads application configuration from the environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	Port       string
	Env        string
	LogLevel   string
	ClinicName string
	Timezone   string

	DatabaseURL string
	RedisAddr   string
	RedisURL    string

	// Extraction
	LLMProvider         string // "gemini", "bedrock", "rules"
	GeminiAPIKey        string
	GeminiModel         string
	AWSRegion           string
	BedrockModelID      string
	BedrockFallback     bool
	ConfidenceThreshold float64

	// Availability policy
	HorizonDays      int
	ToleranceMinutes int
	TopKAlternatives int

	// Commit retry policy
	CommitMaxAttempts int
	CommitBaseDelay   time.Duration

	// Calendly
	CalendlyToken        string
	CalendlyEventTypeMap string // JSON: specialty display name -> event type URI

	// Email
	EmailProvider     string // "sendgrid", "ses", "stub"
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string

	// Transcript archive
	ArchiveBucket string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("ENV", "development"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		ClinicName: getEnv("CLINIC_NAME", "City Health Clinic"),
		Timezone:   getEnv("CLINIC_TIMEZONE", "America/New_York"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		LLMProvider:         getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", "anthropic.claude-3-5-haiku-20241022-v1:0"),
		BedrockFallback:     getEnvAsBool("BEDROCK_FALLBACK", false),
		ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.6),

		HorizonDays:      getEnvAsInt("AVAILABILITY_HORIZON_DAYS", 14),
		ToleranceMinutes: getEnvAsInt("AVAILABILITY_TOLERANCE_MINUTES", 0),
		TopKAlternatives: getEnvAsInt("AVAILABILITY_TOP_K", 3),

		CommitMaxAttempts: getEnvAsInt("COMMIT_MAX_ATTEMPTS", 3),
		CommitBaseDelay:   getEnvAsDuration("COMMIT_BASE_DELAY", time.Second),

		CalendlyToken:        getEnv("CALENDLY_TOKEN", ""),
		CalendlyEventTypeMap: getEnv("CALENDLY_EVENT_TYPE_MAP", ""),

		EmailProvider:     getEnv("EMAIL_PROVIDER", "stub"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "appointments@cityhealthclinic.example"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "City Health Clinic"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),

		ArchiveBucket: getEnv("TRANSCRIPT_ARCHIVE_BUCKET", ""),
	}
}

// Location resolves the configured clinic timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// EventTypeMap parses the specialty to Calendly event-type mapping.
func (c *Config) EventTypeMap() (map[string]string, error) {
	if c.CalendlyEventTypeMap == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(c.CalendlyEventTypeMap), &m); err != nil {
		return nil, fmt.Errorf("config: parse CALENDLY_EVENT_TYPE_MAP: %w", err)
	}
	return m, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
