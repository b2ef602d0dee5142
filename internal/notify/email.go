package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// EmailConfig holds the SMTP credential set. All fields are required; the
// config layer enforces all-or-nothing before a channel is built.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// Email delivers notifications over SMTP with STARTTLS.
type Email struct {
	cfg    EmailConfig
	client *mail.Client
}

// NewEmail builds the email channel.
func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" || cfg.To == "" {
		return nil, fmt.Errorf("email channel: incomplete SMTP configuration")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}

	client, err := mail.NewClient(cfg.Host,
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithTimeout(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("email channel: build client: %w", err)
	}
	return &Email{cfg: cfg, client: client}, nil
}

// Name identifies the channel in results and logs.
func (e *Email) Name() string { return "email" }

// Send delivers one message.
func (e *Email) Send(ctx context.Context, msg watcher.Message) error {
	m := mail.NewMsg()
	if err := m.From(e.cfg.From); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := m.To(e.cfg.To); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	if err := e.client.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
