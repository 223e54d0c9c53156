package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/alkime/scribe/internal/config"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is slack for boundaries and part headers on top of the
// audio itself.
const multipartOverhead = 64 << 10

// Recognizer turns uploaded audio into text.
type Recognizer interface {
	Recognize(ctx context.Context, r io.Reader, filename, mediaType string) (string, error)
}

// Server represents the HTTP server
type Server struct {
	config     *config.Server
	logger     *slog.Logger
	router     *gin.Engine
	recognizer Recognizer
}

// New creates a new Server instance
func New(cfg *config.Server, logger *slog.Logger, recognizer Recognizer) *Server {
	// Set Gin mode based on environment
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Configure proxy trust for production
	if cfg.Env == config.EnvProduction {
		router.TrustedPlatform = gin.PlatformFlyIO
		logger.Debug("Configured trusted platform", "platform", "fly.io")
	}

	server := &Server{
		config:     cfg,
		logger:     logger,
		router:     router,
		recognizer: recognizer,
	}

	// Setup middleware and routes
	setupMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run starts the HTTP server
func Run(s *Server) error {
	s.logger.Info("Server listening", "port", s.config.Port)
	return s.router.Run(":" + s.config.Port)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)
	s.router.POST("/transcribe", s.handleTranscribe)
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "scribe",
	})
}

// handleTranscribe accepts a multipart upload with the audio in the "file"
// field and answers {"transcription": "..."}.
func (s *Server) handleTranscribe(c *gin.Context) {
	limit := s.config.MaxUploadBytes + multipartOverhead
	if c.Request.ContentLength > limit {
		s.tooLarge(c)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	header, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.tooLarge(c)
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{"error": `multipart field "file" is required`})

		return
	}

	if header.Size > s.config.MaxUploadBytes {
		s.tooLarge(c)
		return
	}

	file, err := header.Open()
	if err != nil {
		s.logger.Error("Failed to open uploaded file", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read upload"})

		return
	}
	defer file.Close()

	log := s.logger.With("request_id", c.GetString(requestIDKey), "file", header.Filename, "bytes", header.Size)
	log.Info("Transcribing upload")

	text, err := s.recognizer.Recognize(c.Request.Context(), file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		log.Error("Transcription failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "transcription failed"})

		return
	}

	log.Info("Transcription complete", "chars", len(text))
	c.JSON(http.StatusOK, gin.H{"transcription": text})
}

func (s *Server) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error":     "upload too large",
		"max_bytes": s.config.MaxUploadBytes,
	})
}
