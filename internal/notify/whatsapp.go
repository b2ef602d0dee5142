package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

// WhatsAppConfig holds the Twilio credential set. From and To carry the
// "whatsapp:+<number>" form Twilio expects.
type WhatsAppConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// whatsAppSender is the slice of the Twilio client the channel uses,
// substitutable in tests.
type whatsAppSender interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// WhatsApp delivers notifications through the Twilio messaging API.
type WhatsApp struct {
	cfg    WhatsAppConfig
	sender whatsAppSender
}

// NewWhatsApp builds the WhatsApp channel.
func NewWhatsApp(cfg WhatsAppConfig) (*WhatsApp, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" || cfg.To == "" {
		return nil, fmt.Errorf("whatsapp channel: incomplete Twilio configuration")
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &WhatsApp{cfg: cfg, sender: client.Api}, nil
}

// Name identifies the channel in results and logs.
func (w *WhatsApp) Name() string { return "whatsapp" }

// Send delivers one message.
func (w *WhatsApp) Send(_ context.Context, msg watcher.Message) error {
	params := &twilioapi.CreateMessageParams{}
	params.SetFrom(w.cfg.From)
	params.SetTo(w.cfg.To)
	params.SetBody(msg.Subject + "\n\n" + msg.Body)

	if _, err := w.sender.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	return nil
}
