package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "folio.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.AdminSessionTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.VisitorRetention)
	assert.Equal(t, "disk", cfg.Media.Backend)
	assert.EqualValues(t, 5<<20, cfg.Media.MaxBytes)
	assert.Equal(t, "587", cfg.SMTP.Port)
	assert.False(t, cfg.SMTPEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FOLIO_PEER_URL", "ws://localhost:8080/ws/changes")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_USER", "me")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("TO_EMAIL", "me@example.com")
	t.Setenv("MEDIA_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "folio-media")
	t.Setenv("S3_PATH_STYLE", "true")
	t.Setenv("FOLIO_WS_ORIGINS", "https://a.dev,https://b.dev")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "ws://localhost:8080/ws/changes", cfg.PeerURL)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, "folio-media", cfg.S3.Bucket)
	assert.True(t, cfg.S3.PathStyle)
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.AllowedWSOrigins)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("s3 without bucket", func(t *testing.T) {
		t.Setenv("MEDIA_BACKEND", "s3")
		_, err := Load()
		assert.ErrorContains(t, err, "S3_BUCKET")
	})
	t.Run("unknown media backend", func(t *testing.T) {
		t.Setenv("MEDIA_BACKEND", "ftp")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("ADMIN_SESSION_TTL", "forever")
		_, err := Load()
		assert.ErrorContains(t, err, "parse env")
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Config{LogLevel: "warn", LogFormat: "json"}.NewLogger(&buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "projects")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"key":"projects"`)

	buf.Reset()
	Config{LogLevel: "nonsense"}.NewLogger(&buf).Info("text line")
	assert.Contains(t, buf.String(), "msg=\"text line\"")
}
