package whatsapp

import (
	"context"
	"errors"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioSender envía por la API de mensajes de Twilio.
type TwilioSender struct {
	api    messageCreator
	from   string
	logger *zap.Logger
}

func NewTwilioSender(accountSID, authToken, fromNumber string, logger *zap.Logger) *TwilioSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return newTwilioSender(client.Api, fromNumber, logger)
}

func newTwilioSender(api messageCreator, fromNumber string, logger *zap.Logger) *TwilioSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TwilioSender{api: api, from: ChannelAddress(fromNumber), logger: logger}
}

func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if NormalizePhone(to) == "" {
		return "", errors.New("twilio: empty recipient")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(s.from)
	params.SetTo(ChannelAddress(to))
	params.SetBody(body)

	msg, err := s.api.CreateMessage(params)
	if err != nil {
		s.logger.Warn("twilio send failed", zap.String("to", to), zap.Error(err))
		return "", err
	}
	var sid string
	if msg != nil && msg.Sid != nil {
		sid = *msg.Sid
	}
	s.logger.Debug("twilio message sent", zap.String("to", to), zap.String("sid", sid))
	return sid, nil
}
