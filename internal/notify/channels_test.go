package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/jakepage91/page-watcher/internal/watcher"
)

func TestNewEmailValidation(t *testing.T) {
	t.Parallel()

	t.Run("IncompleteConfig", func(t *testing.T) {
		_, err := NewEmail(EmailConfig{Host: "smtp.example.com"})
		assert.Error(t, err)
	})

	t.Run("DefaultsApplied", func(t *testing.T) {
		ch, err := NewEmail(EmailConfig{
			Host:     "smtp.example.com",
			Username: "watcher@example.com",
			Password: "secret",
			To:       "ops@example.com",
		})
		require.NoError(t, err)
		assert.Equal(t, "email", ch.Name())
		assert.Equal(t, 587, ch.cfg.Port)
		assert.Equal(t, "watcher@example.com", ch.cfg.From, "from falls back to the SMTP user")
	})
}

type fakeTwilio struct {
	lastParams *twilioapi.CreateMessageParams
	err        error
}

func (f *fakeTwilio) CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &twilioapi.ApiV2010Message{}, nil
}

func TestNewWhatsAppValidation(t *testing.T) {
	t.Parallel()

	_, err := NewWhatsApp(WhatsAppConfig{AccountSID: "AC123"})
	assert.Error(t, err)
}

func TestWhatsAppSend(t *testing.T) {
	t.Parallel()

	sender := &fakeTwilio{}
	ch := &WhatsApp{
		cfg: WhatsAppConfig{
			AccountSID: "AC123",
			AuthToken:  "token",
			From:       "whatsapp:+14155238886",
			To:         "whatsapp:+33600000000",
		},
		sender: sender,
	}

	msg := watcher.Message{Subject: "subject", Body: "body"}
	require.NoError(t, ch.Send(context.Background(), msg))
	require.NotNil(t, sender.lastParams)
	assert.Equal(t, "whatsapp:+14155238886", *sender.lastParams.From)
	assert.Equal(t, "whatsapp:+33600000000", *sender.lastParams.To)
	assert.Equal(t, "subject\n\nbody", *sender.lastParams.Body)
}

func TestWhatsAppSendWrapsError(t *testing.T) {
	t.Parallel()

	sender := &fakeTwilio{err: errors.New("auth failure")}
	ch := &WhatsApp{cfg: WhatsAppConfig{}, sender: sender}
	err := ch.Send(context.Background(), watcher.Message{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "twilio send")
}
