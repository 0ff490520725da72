package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/twilio/twilio-go/client"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"cobranza-bot/internal/metrics"
	"cobranza-bot/internal/queue"
	"cobranza-bot/internal/whatsapp"
)

const (
	webhookAck  = "Gracias, procesaremos tu mensaje."
	webhookBusy = "Estamos con mucha demanda, volvé a escribirnos en unos minutos."

	twilioSignatureHeader = "X-Twilio-Signature"
)

// InboundQueue es lo que el webhook necesita del dispatcher.
type InboundQueue interface {
	Enqueue(job queue.Job) error
}

// WebhookHandler recibe mensajes de Twilio y de Meta y los encola; la
// respuesta del bot sale después por el Sender.
type WebhookHandler struct {
	logger      *zap.Logger
	queue       InboundQueue
	verifyToken string

	// nil deja pasar los POST de Twilio sin firma.
	twilioValidator *client.RequestValidator
	twilioURL       string
}

func NewWebhookHandler(logger *zap.Logger, q InboundQueue, verifyToken string) *WebhookHandler {
	return &WebhookHandler{logger: logger, queue: q, verifyToken: verifyToken}
}

// RequireTwilioSignature activa la validación de X-Twilio-Signature con el
// auth token de la cuenta. publicURL es la URL del webhook tal como la firma
// Twilio; vacía se reconstruye desde el request.
func (h *WebhookHandler) RequireTwilioSignature(authToken, publicURL string) *WebhookHandler {
	v := client.NewRequestValidator(authToken)
	h.twilioValidator = &v
	h.twilioURL = publicURL
	return h
}

// Twilio maneja POST /webhook/ con el form From/Body y contesta TwiML.
func (h *WebhookHandler) Twilio(c *gin.Context) {
	if h.twilioValidator != nil && !h.validTwilioSignature(c) {
		metrics.SecurityEvents.WithLabelValues("invalid_signature").Inc()
		h.logger.Warn("twilio signature rejected", zap.String("client_ip", c.ClientIP()))
		h.twiml(c, http.StatusForbidden, "")
		return
	}
	from := strings.TrimSpace(c.PostForm("From"))
	body := c.PostForm("Body")
	if from == "" {
		h.twiml(c, http.StatusBadRequest, "")
		return
	}

	err := h.queue.Enqueue(queue.Job{
		Source:     "twilio",
		From:       whatsapp.NormalizePhone(from),
		Body:       body,
		ReceivedAt: time.Now(),
	})
	if err != nil {
		h.logger.Warn("webhook enqueue failed", zap.String("source", "twilio"), zap.Error(err))
		h.twiml(c, http.StatusServiceUnavailable, webhookBusy)
		return
	}
	h.twiml(c, http.StatusOK, webhookAck)
}

// VerifyMeta responde el handshake de suscripción de Meta.
func (h *WebhookHandler) VerifyMeta(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "" || token == "" {
		c.Status(http.StatusBadRequest)
		return
	}
	if mode != "subscribe" || h.verifyToken == "" || token != h.verifyToken {
		h.logger.Warn("meta webhook verification rejected", zap.String("mode", mode))
		c.Status(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, challenge)
}

// Meta maneja POST /webhook/meta. Con la cola llena responde 503 y Meta
// reintenta la entrega.
func (h *WebhookHandler) Meta(c *gin.Context) {
	var payload whatsapp.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		detail(c, http.StatusBadRequest, "invalid payload")
		return
	}

	accepted := 0
	for _, msg := range payload.TextMessages() {
		err := h.queue.Enqueue(queue.Job{
			Source:     "meta",
			From:       msg.From,
			Body:       msg.Body,
			ReceivedAt: time.Now(),
		})
		if err != nil {
			h.logger.Warn("webhook enqueue failed", zap.String("source", "meta"), zap.String("message_id", msg.ID), zap.Error(err))
			if errors.Is(err, queue.ErrQueueFull) || errors.Is(err, queue.ErrQueueStopped) {
				detail(c, http.StatusServiceUnavailable, "queue unavailable")
				return
			}
			continue
		}
		accepted++
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "accepted": accepted})
}

func (h *WebhookHandler) twiml(c *gin.Context, status int, message string) {
	var verbs []twiml.Element
	if message != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: message})
	}
	xml, err := twiml.Messages(verbs)
	if err != nil {
		h.logger.Error("twiml render failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Data(status, "application/xml", []byte(xml))
}

func (h *WebhookHandler) validTwilioSignature(c *gin.Context) bool {
	signature := c.GetHeader(twilioSignatureHeader)
	if signature == "" {
		return false
	}
	if err := c.Request.ParseForm(); err != nil {
		return false
	}
	params := make(map[string]string, len(c.Request.PostForm))
	for k, v := range c.Request.PostForm {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return h.twilioValidator.Validate(h.signedURL(c), params, signature)
}

func (h *WebhookHandler) signedURL(c *gin.Context) string {
	if h.twilioURL != "" {
		return h.twilioURL
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host + c.Request.URL.RequestURI()
}
