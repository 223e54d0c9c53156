package main

import (
	"log"
	"os"

	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/keyring"
	"github.com/alkime/scribe/internal/logger"
	"github.com/alkime/scribe/internal/server"
	"github.com/alkime/scribe/internal/whisper"
)

func main() {
	// Load configuration
	cfg, err := config.LoadServer()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup structured logging
	slogger := logger.Setup(os.Stdout, logger.JSON, logger.Level(cfg.Env, cfg.LogLevel))

	// Log startup information
	slogger.Info("Starting scribe transcription gateway",
		"env", cfg.Env,
		"port", cfg.Port,
		"max_upload_bytes", cfg.MaxUploadBytes,
		"model", cfg.WhisperModel,
	)

	// Environment takes priority, fall back to the keychain
	apiKey, err := keyring.Resolve(keyring.OpenAI, cfg.OpenAIAPIKey)
	if err != nil {
		slogger.Debug("keychain lookup failed", "key", "openai", "error", err)
	}

	recognizer, err := whisper.New(apiKey, cfg.WhisperModel, cfg.Language)
	if err != nil {
		slogger.Error("Failed to create recognizer", "error", err)
		log.Fatalf("Fatal: %v", err)
	}

	srv := server.New(cfg, slogger, recognizer)
	if err := server.Run(srv); err != nil {
		slogger.Error("Failed to start server", "error", err)
		log.Fatalf("Fatal: %v", err)
	}
}
