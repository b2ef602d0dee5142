// Package config loads and validates watcher configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures everything a run needs, supplied through the environment
// (the scheduler injects secrets as env vars).
type Config struct {
	Watch    WatchConfig    `mapstructure:"watch"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	State    StateConfig    `mapstructure:"state"`
	Email    EmailConfig    `mapstructure:"email"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// WatchConfig identifies the page and the detection signal.
type WatchConfig struct {
	URL          string `mapstructure:"url"`
	KeywordsRaw  string `mapstructure:"keywords"`
	Selector     string `mapstructure:"selector"`
	ForceNotify  bool   `mapstructure:"force_notify"`
	UserAgent    string `mapstructure:"user_agent"`
	HashCaseFold bool   `mapstructure:"hash_casefold"`
}

// Keywords returns the configured keywords, trimmed, empty entries dropped.
func (w WatchConfig) Keywords() []string {
	if strings.TrimSpace(w.KeywordsRaw) == "" {
		return nil
	}
	var out []string
	for _, kw := range strings.Split(w.KeywordsRaw, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

// FetchConfig governs HTTP timeout and retry behavior.
type FetchConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxAttempts      int `mapstructure:"max_attempts"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int `mapstructure:"backoff_max_ms"`
}

// Timeout returns the per-request timeout.
func (f FetchConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSeconds) * time.Second
}

// BackoffInitial returns the base backoff delay.
func (f FetchConfig) BackoffInitial() time.Duration {
	return time.Duration(f.BackoffInitialMs) * time.Millisecond
}

// BackoffMax returns the backoff cap.
func (f FetchConfig) BackoffMax() time.Duration {
	return time.Duration(f.BackoffMaxMs) * time.Millisecond
}

// NotifyConfig governs per-channel send retries.
type NotifyConfig struct {
	MaxAttempts int `mapstructure:"max_attempts"`
}

// StateConfig selects and locates the state backend.
type StateConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	Bucket  string `mapstructure:"bucket"`
	Object  string `mapstructure:"object"`
}

// EmailConfig is the SMTP credential set (all-or-nothing).
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"user"`
	Password string `mapstructure:"pass"`
	From     string `mapstructure:"from"`
	To       string `mapstructure:"to"`
}

// Configured reports whether the full credential set is present. From is
// optional (falls back to the SMTP user); Port has a default.
func (e EmailConfig) Configured() bool {
	return e.Host != "" && e.Username != "" && e.Password != "" && e.To != ""
}

func (e EmailConfig) partial() bool {
	any := e.Host != "" || e.Username != "" || e.Password != "" || e.To != ""
	return any && !e.Configured()
}

// WhatsAppConfig is the Twilio credential set (all-or-nothing).
type WhatsAppConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	From       string `mapstructure:"from"`
	To         string `mapstructure:"to"`
}

// Configured reports whether the full credential set is present.
func (w WhatsAppConfig) Configured() bool {
	return w.AccountSID != "" && w.AuthToken != "" && w.From != "" && w.To != ""
}

func (w WhatsAppConfig) partial() bool {
	any := w.AccountSID != "" || w.AuthToken != "" || w.From != "" || w.To != ""
	return any && !w.Configured()
}

// PubSubConfig locates the optional change-event topic (all-or-nothing).
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// Configured reports whether the full set is present.
func (p PubSubConfig) Configured() bool {
	return p.ProjectID != "" && p.Topic != ""
}

func (p PubSubConfig) partial() bool {
	any := p.ProjectID != "" || p.Topic != ""
	return any && !p.Configured()
}

// MetricsConfig points to an optional Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway"`
}

// LoggingConfig toggles zap development features and optional file output.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	File        string `mapstructure:"file"`
}

// envBindings maps config keys to the exact environment variable names the
// deployment contract uses.
var envBindings = map[string]string{
	"watch.url":                "WATCH_URL",
	"watch.keywords":           "WATCH_KEYWORDS",
	"watch.selector":           "WATCH_SELECTOR",
	"watch.force_notify":       "FORCE_NOTIFY",
	"watch.user_agent":         "WATCH_USER_AGENT",
	"watch.hash_casefold":      "WATCH_HASH_CASEFOLD",
	"fetch.timeout_seconds":    "WATCH_TIMEOUT_SECONDS",
	"fetch.max_attempts":       "WATCH_MAX_ATTEMPTS",
	"fetch.backoff_initial_ms": "WATCH_BACKOFF_INITIAL_MS",
	"fetch.backoff_max_ms":     "WATCH_BACKOFF_MAX_MS",
	"notify.max_attempts":      "NOTIFY_MAX_ATTEMPTS",
	"state.backend":            "WATCH_STATE_BACKEND",
	"state.path":               "WATCH_STATE_PATH",
	"state.bucket":             "WATCH_STATE_BUCKET",
	"state.object":             "WATCH_STATE_OBJECT",
	"email.host":               "SMTP_HOST",
	"email.port":               "SMTP_PORT",
	"email.user":               "SMTP_USER",
	"email.pass":               "SMTP_PASS",
	"email.from":               "EMAIL_FROM",
	"email.to":                 "EMAIL_TO",
	"whatsapp.account_sid":     "TWILIO_ACCOUNT_SID",
	"whatsapp.auth_token":      "TWILIO_AUTH_TOKEN",
	"whatsapp.from":            "WHATSAPP_FROM",
	"whatsapp.to":              "WHATSAPP_TO",
	"pubsub.project_id":        "PUBSUB_PROJECT_ID",
	"pubsub.topic":             "PUBSUB_TOPIC",
	"metrics.pushgateway":      "METRICS_PUSHGATEWAY",
	"logging.development":      "LOG_DEVELOPMENT",
	"logging.file":             "LOG_FILE",
}

// Load builds a Config from the environment.
func Load() (Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return Config{}, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("watch.url", "")
	v.SetDefault("watch.keywords", "")
	v.SetDefault("watch.selector", "")
	v.SetDefault("watch.force_notify", false)
	v.SetDefault("watch.user_agent", "PageWatcher/1.0 (+https://github.com/jakepage91/page-watcher)")
	v.SetDefault("watch.hash_casefold", false)
	v.SetDefault("fetch.timeout_seconds", 30)
	v.SetDefault("fetch.max_attempts", 3)
	v.SetDefault("fetch.backoff_initial_ms", 1000)
	v.SetDefault("fetch.backoff_max_ms", 8000)
	v.SetDefault("notify.max_attempts", 2)
	v.SetDefault("state.backend", "file")
	v.SetDefault("state.path", "state/page_state.json")
	v.SetDefault("state.bucket", "")
	v.SetDefault("state.object", "page_state.json")
	v.SetDefault("email.host", "")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.user", "")
	v.SetDefault("email.pass", "")
	v.SetDefault("email.from", "")
	v.SetDefault("email.to", "")
	v.SetDefault("whatsapp.account_sid", "")
	v.SetDefault("whatsapp.auth_token", "")
	v.SetDefault("whatsapp.from", "")
	v.SetDefault("whatsapp.to", "")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("metrics.pushgateway", "")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.file", "")
}

// Validate enforces required values before any network activity.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Watch.URL) == "" {
		return fmt.Errorf("WATCH_URL is required")
	}
	if len(c.Watch.Keywords()) == 0 && strings.TrimSpace(c.Watch.Selector) == "" {
		return fmt.Errorf("either WATCH_KEYWORDS or WATCH_SELECTOR must be set")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("WATCH_TIMEOUT_SECONDS must be > 0")
	}
	if c.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("WATCH_MAX_ATTEMPTS must be > 0")
	}
	if c.Notify.MaxAttempts <= 0 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be > 0")
	}
	switch c.State.Backend {
	case "file":
		if strings.TrimSpace(c.State.Path) == "" {
			return fmt.Errorf("WATCH_STATE_PATH must be set for the file backend")
		}
	case "gcs":
		if c.State.Bucket == "" || c.State.Object == "" {
			return fmt.Errorf("WATCH_STATE_BUCKET and WATCH_STATE_OBJECT must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown state backend: %s", c.State.Backend)
	}
	if c.Email.partial() {
		return fmt.Errorf("incomplete email configuration: SMTP_HOST, SMTP_USER, SMTP_PASS and EMAIL_TO are all required")
	}
	if c.WhatsApp.partial() {
		return fmt.Errorf("incomplete whatsapp configuration: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, WHATSAPP_FROM and WHATSAPP_TO are all required")
	}
	if c.PubSub.partial() {
		return fmt.Errorf("incomplete pubsub configuration: PUBSUB_PROJECT_ID and PUBSUB_TOPIC are both required")
	}
	return nil
}

// ChannelCount reports how many notification channel credential sets are
// fully configured. Zero is a warning, not an error: detection still runs
// and records state.
func (c Config) ChannelCount() int {
	n := 0
	if c.Email.Configured() {
		n++
	}
	if c.WhatsApp.Configured() {
		n++
	}
	if c.PubSub.Configured() {
		n++
	}
	return n
}
