package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alkime/scribe/internal/audio"
	"github.com/alkime/scribe/internal/config"
	"github.com/alkime/scribe/internal/server"
	"github.com/alkime/scribe/internal/transcription"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//nolint:gochecknoinits // keep gin quiet in tests
func init() {
	gin.SetMode(gin.TestMode)
}

// mockRecognizer implements server.Recognizer for testing.
type mockRecognizer struct {
	text      string
	err       error
	called    bool
	filename  string
	mediaType string
	content   string
}

func (m *mockRecognizer) Recognize(_ context.Context, r io.Reader, filename, mediaType string) (string, error) {
	m.called = true
	m.filename = filename
	m.mediaType = mediaType

	b, _ := io.ReadAll(r)
	m.content = string(b)

	return m.text, m.err
}

func testConfig() *config.Server {
	return &config.Server{
		Env:            "test",
		Port:           "5000",
		MaxUploadBytes: 1024,
		HSTSMaxAge:     31536000,
		CSPMode:        "relaxed",
		AllowedOrigins: []string{"http://localhost:3000"},
		LogLevel:       "info",
	}
}

func testLogger() *slog.Logger {
	// Only show errors during tests
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{
		Level:       slog.LevelError,
		AddSource:   false,
		ReplaceAttr: nil,
	}))
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))

	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv := server.New(testConfig(), testLogger(), &mockRecognizer{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code, "Health endpoint should return 200 OK")
	assert.Contains(t, w.Body.String(), "healthy")
	assert.Contains(t, w.Body.String(), "scribe")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestTranscribeEndpoint(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		rec := &mockRecognizer{text: "hello world"}
		srv := server.New(testConfig(), testLogger(), rec)

		body, contentType := multipartBody(t, "file", "memo.mp3", []byte("fake audio"))
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, map[string]any{"transcription": "hello world"}, decode(t, w))
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
		assert.Equal(t, "memo.mp3", rec.filename)
		assert.Equal(t, "fake audio", rec.content)
	})

	t.Run("missing file field", func(t *testing.T) {
		rec := &mockRecognizer{}
		srv := server.New(testConfig(), testLogger(), rec)

		body, contentType := multipartBody(t, "audio", "memo.mp3", []byte("fake audio"))
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decode(t, w)["error"], "file")
		assert.False(t, rec.called)
	})

	t.Run("upload too large", func(t *testing.T) {
		rec := &mockRecognizer{}
		srv := server.New(testConfig(), testLogger(), rec)

		body, contentType := multipartBody(t, "file", "long.wav", bytes.Repeat([]byte("a"), 2048))
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.False(t, rec.called)
	})

	t.Run("recognizer failure", func(t *testing.T) {
		rec := &mockRecognizer{err: errors.New("quota exceeded")}
		srv := server.New(testConfig(), testLogger(), rec)

		body, contentType := multipartBody(t, "file", "memo.mp3", []byte("fake audio"))
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		req.Header.Set("Content-Type", contentType)
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		out := decode(t, w)
		assert.Equal(t, "transcription failed", out["error"])
		assert.NotContains(t, out, "transcription")
	})
}

func TestCORS(t *testing.T) {
	srv := server.New(testConfig(), testLogger(), &mockRecognizer{})

	t.Run("preflight from allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/transcribe", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
	})

	t.Run("unknown origin gets no allow header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		srv.Router().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

// The CLI client and the gateway agree on the wire contract.
func TestClientAgainstGateway(t *testing.T) {
	rec := &mockRecognizer{text: "hello world"}
	gateway := httptest.NewServer(server.New(testConfig(), testLogger(), rec).Router())
	defer gateway.Close()

	client := transcription.NewClient(gateway.URL)

	text, err := client.Transcribe(t.Context(), audio.FromBytes("memo.mp3", []byte("fake audio")))
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
	assert.Equal(t, "audio/mpeg", rec.mediaType)

	rec.err = errors.New("backend down")
	_, err = client.Transcribe(t.Context(), audio.FromBytes("memo.mp3", []byte("fake audio")))

	var svcErr *transcription.ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
}
