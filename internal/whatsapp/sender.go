// Package whatsapp envía mensajes de WhatsApp por Twilio o por la Cloud API de Meta.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cobranza-bot/internal/config"
)

// Sender envía un mensaje de texto y devuelve el id del proveedor.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

var ErrDisabled = errors.New("whatsapp sender disabled")

type disabledSender struct {
	reason string
}

// NewDisabledSender devuelve un Sender que rechaza todos los envíos.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) Send(_ context.Context, _, _ string) (string, error) {
	if s.reason == "" {
		return "", ErrDisabled
	}
	return "", fmt.Errorf("%w: %s", ErrDisabled, s.reason)
}

// NewSenderFromConfig elige la implementación según WHATSAPP_PROVIDER.
func NewSenderFromConfig(cfg *config.Config, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch strings.ToLower(strings.TrimSpace(cfg.WhatsAppProvider)) {
	case "twilio":
		if cfg.TwilioAccountSID == "" || cfg.TwilioAuthToken == "" || cfg.TwilioWhatsAppNumber == "" {
			return nil, errors.New("twilio requires TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_NUMBER")
		}
		return NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber, logger), nil
	case "cloud", "meta":
		if cfg.WhatsAppToken == "" || cfg.PhoneNumberID == "" {
			return nil, errors.New("cloud api requires WHATSAPP_TOKEN and PHONE_NUMBER_ID")
		}
		return NewCloudSender("", cfg.WhatsAppAPIVersion, cfg.PhoneNumberID, cfg.WhatsAppToken, logger), nil
	case "", "disabled":
		return NewDisabledSender("WHATSAPP_PROVIDER=disabled"), nil
	default:
		return nil, fmt.Errorf("unknown WHATSAPP_PROVIDER %q", cfg.WhatsAppProvider)
	}
}
