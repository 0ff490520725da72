package email

import (
	"context"
	"errors"

	"cobranza-bot/internal/domain"
)

// Sender avisa al operador por correo cuando termina un lanzamiento.
type Sender interface {
	SendLaunchReport(ctx context.Context, toEmail, campaignName string, report domain.LaunchReport) error
}

// Message es un correo de texto plano ya resuelto.
type Message struct {
	To      string
	Subject string
	Body    string
}

// ErrDisabled se devuelve cuando no hay SMTP configurado.
var ErrDisabled = errors.New("email sender disabled")

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return disabledSender{reason: reason}
}

func (s disabledSender) SendLaunchReport(context.Context, string, string, domain.LaunchReport) error {
	if s.reason == "" {
		return ErrDisabled
	}
	return errors.Join(ErrDisabled, errors.New(s.reason))
}
