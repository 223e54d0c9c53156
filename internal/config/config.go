package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/alkime/scribe/pkg/collections"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment represents the development environment.
	EnvDevelopment = "development"

	// DefaultEndpoint is where the transcription service listens by default.
	DefaultEndpoint = "http://localhost:5000"
)

// Client holds configuration for the scribe CLI.
type Client struct {
	Env string `envconfig:"ENV" default:"development"`

	// Transcription service settings
	Endpoint string        `envconfig:"SCRIBE_ENDPOINT" default:"http://localhost:5000"`
	Timeout  time.Duration `envconfig:"SCRIBE_TIMEOUT" default:"0s"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"SCRIBE_LOG_FILE"`
}

// Server holds configuration for the transcription gateway.
type Server struct {
	// Server settings
	Env  string `envconfig:"ENV" default:"development"`
	Port string `envconfig:"PORT" default:"5000"`

	// Upload settings
	MaxUploadBytes int64 `envconfig:"MAX_UPLOAD_BYTES" default:"26214400"`

	// Security settings
	HSTSMaxAge     int      `envconfig:"HSTS_MAX_AGE" default:"31536000"`
	CSPMode        string   `envconfig:"CSP_MODE" default:"relaxed"`
	AllowedOrigins []string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Speech-to-text backend settings
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	WhisperModel string `envconfig:"WHISPER_MODEL" default:"whisper-1"`
	Language     string `envconfig:"WHISPER_LANGUAGE" default:"en"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// LoadClient loads CLI configuration from .env file and environment variables.
func LoadClient() (*Client, error) {
	loadDotEnv()

	var cfg Client
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	return &cfg, nil
}

// LoadServer loads gateway configuration from .env file and environment variables.
func LoadServer() (*Server, error) {
	loadDotEnv()

	var cfg Server
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	cfg.AllowedOrigins = collections.Filter(
		collections.Apply(cfg.AllowedOrigins, strings.TrimSpace),
		func(origin string) bool { return origin != "" },
	)

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", cfg.MaxUploadBytes)
	}

	return &cfg, nil
}

func loadDotEnv() {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			log.Printf("Warning: Error loading .env file: %v", err)
		}
	}
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		return "default-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'none'"
	}

	// Development/relaxed CSP
	return "default-src 'self'; " +
		"connect-src 'self' http://localhost:3000; " +
		"form-action 'self'"
}
