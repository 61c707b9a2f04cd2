package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/principal-auth/config"
)

func TestLoadConfig(t *testing.T) {
	t.Chdir(t.TempDir()) // no .env file
	t.Setenv("TOKEN_SIGNING_SECRET", strings.Repeat("s", config.MinSigningSecretBytes))
	t.Setenv("PEER_BASE_URL", "http://profiles:8000")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://profiles:8000", cfg.Peer.BaseURL)
}

func TestLoadConfig_MissingPeerURLIsFatal(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOKEN_SIGNING_SECRET", strings.Repeat("s", config.MinSigningSecretBytes))
	t.Setenv("PEER_BASE_URL", "")

	_, err := LoadConfig()
	require.ErrorContains(t, err, "PEER_BASE_URL is required")
}

func TestLoadConfig_ReadsDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	writeFile(t, ".env", "TOKEN_SIGNING_SECRET="+strings.Repeat("d", 40)+"\nPEER_BASE_URL=http://from-dotenv\n")
	unsetEnv(t, "TOKEN_SIGNING_SECRET")
	unsetEnv(t, "PEER_BASE_URL")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://from-dotenv", cfg.Peer.BaseURL)
}

func TestRedactAddr(t *testing.T) {
	redacted := redactAddr("redis://user:pw@cache:6379/0")
	assert.NotContains(t, redacted, "user")
	assert.NotContains(t, redacted, "pw")
	assert.Contains(t, redacted, "cache:6379")
	assert.Equal(t, "cache:6379", redactAddr("cache:6379"))
}

func TestNewLogHandler(t *testing.T) {
	var buf bytes.Buffer

	logger := slog.New(newLogHandler(&buf, config.LoggingConfig{Level: "warn", Format: config.LogFormatJSON}))
	logger.Info("dropped")
	logger.Warn("kept", "principal_id", "42")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"principal_id":"42"`)

	buf.Reset()
	logger = slog.New(newLogHandler(&buf, config.LoggingConfig{Level: "debug", Format: config.LogFormatText}))
	logger.Debug("verbose")
	assert.Contains(t, buf.String(), "msg=verbose")
}

func TestLoadConfig_LoggingFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TOKEN_SIGNING_SECRET", strings.Repeat("s", config.MinSigningSecretBytes))
	t.Setenv("PEER_BASE_URL", "http://profiles:8000")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.Observability.Logging.SlogLevel())
	assert.Equal(t, config.LogFormatText, cfg.Observability.Logging.Format)
}

type flakyPinger struct {
	failures int
	calls    int
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("the database system is starting up")
	}
	return nil
}

func TestPingWithRetry(t *testing.T) {
	t.Run("recovers within budget", func(t *testing.T) {
		p := &flakyPinger{failures: 2}
		require.NoError(t, pingWithRetry(t.Context(), p, 3, testLogger()))
		assert.Equal(t, 3, p.calls)
	})

	t.Run("gives up after retries", func(t *testing.T) {
		p := &flakyPinger{failures: 10}
		err := pingWithRetry(t.Context(), p, 1, nil)
		require.ErrorContains(t, err, "starting up")
		assert.Equal(t, 2, p.calls)
	})
}
