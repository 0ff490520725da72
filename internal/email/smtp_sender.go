package email

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strings"
	"time"

	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
)

// Config agrupa los parámetros SMTP. Con ImplicitTLS la conexión arranca
// cifrada (puerto 465); si no, se intenta STARTTLS cuando el servidor lo ofrece.
type Config struct {
	Host        string
	Port        int
	Username    string
	Password    string
	From        string
	FromName    string
	ImplicitTLS bool
	Timeout     time.Duration
}

type SMTPSender struct {
	cfg    Config
	logger *zap.Logger
}

func NewSMTPSender(cfg Config, logger *zap.Logger) (*SMTPSender, error) {
	if strings.TrimSpace(cfg.Host) == "" {
		return nil, errors.New("smtp host is required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("smtp from is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMTPSender{cfg: cfg, logger: logger}, nil
}

func (s *SMTPSender) SendLaunchReport(ctx context.Context, toEmail, campaignName string, report domain.LaunchReport) error {
	if strings.TrimSpace(toEmail) == "" {
		return errors.New("to email is required")
	}
	msg := Message{
		To:      toEmail,
		Subject: fmt.Sprintf("Campaña %q lanzada: %d/%d enviados", campaignName, report.Sent, report.Total),
		Body:    LaunchReportBody(campaignName, report),
	}
	if err := s.Send(ctx, msg); err != nil {
		return fmt.Errorf("send launch report: %w", err)
	}
	s.logger.Info("launch report mailed", zap.Int64("campaign_id", report.CampaignID), zap.String("to", toEmail))
	return nil
}

// Send entrega msg respetando el deadline de ctx.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	conn, err := s.dial(ctx)
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.Timeout))
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if !s.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
				return fmt.Errorf("starttls: %w", err)
			}
		}
	}
	if s.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(s.render(msg))); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *SMTPSender) dial(ctx context.Context) (net.Conn, error) {
	addr := net.JoinHostPort(s.cfg.Host, fmt.Sprint(s.cfg.Port))
	d := &net.Dialer{Timeout: s.cfg.Timeout}
	if s.cfg.ImplicitTLS {
		td := &tls.Dialer{NetDialer: d, Config: &tls.Config{ServerName: s.cfg.Host}}
		return td.DialContext(ctx, "tcp", addr)
	}
	return d.DialContext(ctx, "tcp", addr)
}

// render arma headers y cuerpo. El asunto va en Q-encoding porque suele
// llevar tildes.
func (s *SMTPSender) render(msg Message) string {
	from := s.cfg.From
	if name := strings.TrimSpace(s.cfg.FromName); name != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), s.cfg.From)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return b.String()
}

// LaunchReportBody arma el texto plano del resumen de lanzamiento.
func LaunchReportBody(campaignName string, report domain.LaunchReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Campaña: %s (id %d)\n", campaignName, report.CampaignID)
	fmt.Fprintf(&b, "Deudores: %d\nEnviados: %d\nFallidos: %d\n", report.Total, report.Sent, report.Failed)
	if report.Total > 0 {
		fmt.Fprintf(&b, "Tasa de envío: %.0f%%\n", 100*float64(report.Sent)/float64(report.Total))
	}
	if len(report.Errors) > 0 {
		b.WriteString("\nErrores:\n")
		for _, e := range report.Errors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	return b.String()
}
