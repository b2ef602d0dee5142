package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Env-driven loading mutates the process environment, so these tests use
// t.Setenv and do not run in parallel.

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")
	t.Setenv("WATCH_KEYWORDS", "visa")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", cfg.Watch.URL)
	assert.Equal(t, []string{"visa"}, cfg.Watch.Keywords())
	assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout())
	assert.Equal(t, 3, cfg.Fetch.MaxAttempts)
	assert.Equal(t, 2, cfg.Notify.MaxAttempts)
	assert.Equal(t, "file", cfg.State.Backend)
	assert.Equal(t, "state/page_state.json", cfg.State.Path)
	assert.False(t, cfg.Watch.ForceNotify)
	assert.False(t, cfg.Watch.HashCaseFold)
	assert.Zero(t, cfg.ChannelCount())
}

func TestLoadMissingURL(t *testing.T) {
	t.Setenv("WATCH_KEYWORDS", "visa")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WATCH_URL")
}

func TestLoadRequiresSignal(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WATCH_KEYWORDS or WATCH_SELECTOR")
}

func TestLoadSelectorOnlyIsEnough(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")
	t.Setenv("WATCH_SELECTOR", "#status")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "#status", cfg.Watch.Selector)
	assert.Nil(t, cfg.Watch.Keywords())
}

func TestKeywordsParsing(t *testing.T) {
	w := WatchConfig{KeywordsRaw: " visa , open,, slots  "}
	assert.Equal(t, []string{"visa", "open", "slots"}, w.Keywords())
}

func TestLoadPartialEmailConfigFails(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")
	t.Setenv("WATCH_KEYWORDS", "visa")
	t.Setenv("SMTP_HOST", "smtp.example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete email configuration")
}

func TestLoadPartialTwilioConfigFails(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")
	t.Setenv("WATCH_KEYWORDS", "visa")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "incomplete whatsapp configuration")
}

func TestLoadFullChannelSets(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")
	t.Setenv("WATCH_KEYWORDS", "visa")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SMTP_USER", "watcher@example.com")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("EMAIL_TO", "ops@example.com")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("WHATSAPP_FROM", "whatsapp:+14155238886")
	t.Setenv("WHATSAPP_TO", "whatsapp:+33600000000")
	t.Setenv("FORCE_NOTIFY", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Email.Configured())
	assert.Equal(t, 2525, cfg.Email.Port)
	assert.True(t, cfg.WhatsApp.Configured())
	assert.False(t, cfg.PubSub.Configured())
	assert.Equal(t, 2, cfg.ChannelCount())
	assert.True(t, cfg.Watch.ForceNotify)
}

func TestLoadGCSBackendValidation(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")
	t.Setenv("WATCH_KEYWORDS", "visa")
	t.Setenv("WATCH_STATE_BACKEND", "gcs")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WATCH_STATE_BUCKET")

	t.Setenv("WATCH_STATE_BUCKET", "my-bucket")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gcs", cfg.State.Backend)
	assert.Equal(t, "page_state.json", cfg.State.Object)
}

func TestLoadUnknownBackend(t *testing.T) {
	t.Setenv("WATCH_URL", "https://example.com")
	t.Setenv("WATCH_KEYWORDS", "visa")
	t.Setenv("WATCH_STATE_BACKEND", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown state backend")
}
