package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/alkime/scribe/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears keys for the duration of the test.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()

	for _, key := range keys {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadClient_Defaults(t *testing.T) {
	unsetenv(t, "SCRIBE_ENDPOINT", "SCRIBE_TIMEOUT", "LOG_LEVEL")

	cfg, err := config.LoadClient()
	require.NoError(t, err)

	assert.Equal(t, config.DefaultEndpoint, cfg.Endpoint)
	assert.Zero(t, cfg.Timeout)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadClient_FromEnv(t *testing.T) {
	t.Setenv("SCRIBE_ENDPOINT", "https://stt.internal:8443")
	t.Setenv("SCRIBE_TIMEOUT", "90s")
	t.Setenv("SCRIBE_LOG_FILE", "/tmp/scribe.log")

	cfg, err := config.LoadClient()
	require.NoError(t, err)

	assert.Equal(t, "https://stt.internal:8443", cfg.Endpoint)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, "/tmp/scribe.log", cfg.LogFile)
}

func TestLoadClient_BadDuration(t *testing.T) {
	t.Setenv("SCRIBE_TIMEOUT", "soon")

	_, err := config.LoadClient()
	assert.Error(t, err)
}

func TestLoadServer(t *testing.T) {
	unsetenv(t, "PORT", "MAX_UPLOAD_BYTES", "WHISPER_MODEL")
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, ,https://scribe.example")

	cfg, err := config.LoadServer()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, int64(25<<20), cfg.MaxUploadBytes)
	assert.Equal(t, []string{"http://localhost:3000", "https://scribe.example"}, cfg.AllowedOrigins)
	assert.Equal(t, "whisper-1", cfg.WhisperModel)
}

func TestLoadServer_RejectsNonPositiveUploadCap(t *testing.T) {
	t.Setenv("MAX_UPLOAD_BYTES", "-1")

	_, err := config.LoadServer()
	assert.Error(t, err)
}

func TestBuildCSP(t *testing.T) {
	assert.Contains(t, config.BuildCSP("strict"), "default-src 'none'")
	assert.Contains(t, config.BuildCSP("relaxed"), "default-src 'self'")
}
