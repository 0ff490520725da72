package service

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/metrics"
)

// Motivos de la decisión de generar un link de pago.
const (
	ReasonNoRequest        = "NO_PAYMENT_LINK_REQUESTED"
	ReasonRojoState        = "ROJO_STATE_NO_AUTO_GENERATION"
	ReasonGrisState        = "GRIS_STATE_NO_AUTO_GENERATION"
	ReasonIdentityMissing  = "IDENTITY_NOT_VALIDATED"
	ReasonVerdeImmediate   = "VERDE_STATE_IMMEDIATE"
	ReasonAmarilloExplicit = "AMARILLO_EXPLICIT_REQUEST"
)

const (
	defaultPaymentMethod   = "mock"
	defaultPaymentLinkBase = "https://pagos.example.com/pay"
)

// PaymentDecision indica si corresponde compartir un link y por qué.
type PaymentDecision struct {
	Generate bool   `json:"should_generate"`
	Reason   string `json:"reason"`
	Message  string `json:"message"`
}

// PaymentLink es el link generado para un deudor.
type PaymentLink struct {
	URL             string    `json:"payment_link"`
	AmountRequested float64   `json:"amount_requested"`
	FinalAmount     float64   `json:"final_amount"`
	DiscountApplied float64   `json:"discount_applied"`
	Method          string    `json:"method"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// PaymentLinkService decide cuándo ofrecer un link de pago y lo construye.
// No integra un procesador real: arma una URL firmada con un token.
type PaymentLinkService struct {
	baseURL string
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

func NewPaymentLinkService(baseURL string, ttl time.Duration, logger *zap.Logger) *PaymentLinkService {
	if baseURL == "" {
		baseURL = defaultPaymentLinkBase
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentLinkService{
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

var (
	paymentRequestWords = []string{
		"pagar", "pago", "pagarlo", "pagarla", "link", "enlace", "pago online",
		"tarjeta", "mercadopago", "mercado pago", "transferencia", "abonar",
	}
	paymentRequestNegations = []string{
		"no quiero pagar", "no voy a pagar", "no puedo pagar", "no pienso pagar",
		"no tengo", "no pago", "no quiero el link", "no necesito",
	}
)

// DetectRequest indica si el mensaje pide pagar o un link.
func (s *PaymentLinkService) DetectRequest(message string) bool {
	msg := foldText(message)
	if msg == "" || containsPhrase(msg, paymentRequestNegations) {
		return false
	}
	return containsAny(msg, paymentRequestWords)
}

// IdentityValidated revisa si el deudor confirmó su DNI en la conversación.
// Si hay DNI cargado debe coincidir; si no, alcanza un número de 7 u 8 dígitos
// enviado junto a la palabra DNI o como respuesta a un pedido de DNI.
func (s *PaymentLinkService) IdentityValidated(history []domain.ChatMessage, debtorData map[string]any) bool {
	known := knownDNI(debtorData)
	askedForDNI := false
	for _, m := range history {
		folded := foldText(m.Content)
		if m.Role == domain.RoleAssistant {
			askedForDNI = containsAny(folded, []string{"dni", "documento"})
			continue
		}
		if m.Role != domain.RoleUser {
			continue
		}
		for _, dni := range findDNIs(m.Content) {
			if known != "" {
				if dni == known {
					return true
				}
				continue
			}
			if askedForDNI || containsAny(folded, []string{"dni", "documento"}) {
				return true
			}
		}
	}
	return false
}

// ShouldGenerate aplica las reglas en orden: pedido explícito, estado
// elegible e identidad validada.
func (s *PaymentLinkService) ShouldGenerate(message string, state domain.State, history []domain.ChatMessage, debtorData map[string]any) PaymentDecision {
	if !s.DetectRequest(message) {
		return PaymentDecision{Reason: ReasonNoRequest, Message: "El deudor no solicitó un link de pago"}
	}
	switch state {
	case domain.StateRojo:
		return PaymentDecision{Reason: ReasonRojoState, Message: "Deudor en estado ROJO - no generar link automáticamente"}
	case domain.StateGris:
		return PaymentDecision{Reason: ReasonGrisState, Message: "Deudor en estado GRIS - no generar link automáticamente"}
	}
	if !s.IdentityValidated(history, debtorData) {
		return PaymentDecision{Reason: ReasonIdentityMissing, Message: "Pedir DNI antes de compartir el link"}
	}
	if state == domain.StateVerde {
		return PaymentDecision{Generate: true, Reason: ReasonVerdeImmediate, Message: "Deudor en estado VERDE solicita link de pago"}
	}
	return PaymentDecision{Generate: true, Reason: ReasonAmarilloExplicit, Message: "Deudor en estado AMARILLO solicita explícitamente link de pago"}
}

// Create arma el link. discountPct se acota a [0, 100].
func (s *PaymentLinkService) Create(debtorID int64, amount, discountPct float64, method string) (PaymentLink, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return PaymentLink{}, fmt.Errorf("payment link: invalid amount %v", amount)
	}
	discountPct = math.Max(0, math.Min(100, discountPct))
	if method == "" {
		method = defaultPaymentMethod
	}
	final := math.Round(amount*(100-discountPct)) / 100

	expires := s.now().UTC().Add(s.ttl)
	q := url.Values{}
	q.Set("token", uuid.NewString())
	q.Set("debtor", strconv.FormatInt(debtorID, 10))
	q.Set("amount", strconv.FormatFloat(final, 'f', 2, 64))
	q.Set("method", method)

	metrics.PaymentLinks.Inc()
	s.logger.Info("payment link created",
		zap.Int64("debtor_id", debtorID),
		zap.Float64("final_amount", final),
		zap.String("method", method),
	)
	return PaymentLink{
		URL:             s.baseURL + "?" + q.Encode(),
		AmountRequested: amount,
		FinalAmount:     final,
		DiscountApplied: discountPct,
		Method:          method,
		ExpiresAt:       expires,
	}, nil
}

// DebtAmount busca el monto adeudado en los datos del deudor.
func DebtAmount(data map[string]any) (float64, bool) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		v := data[key]
		k := foldText(key)
		if !(strings.Contains(k, "deuda") || strings.Contains(k, "monto") ||
			strings.Contains(k, "saldo") || strings.Contains(k, "amount") || strings.Contains(k, "debt")) {
			continue
		}
		switch n := v.(type) {
		case float64:
			return n, n > 0
		case int64:
			return float64(n), n > 0
		case int:
			return float64(n), n > 0
		case string:
			if f, err := strconv.ParseFloat(strings.ReplaceAll(n, ",", "."), 64); err == nil && f > 0 {
				return f, true
			}
		}
	}
	return 0, false
}

func knownDNI(data map[string]any) string {
	v, ok := data["dni"]
	if !ok {
		return ""
	}
	var raw string
	switch d := v.(type) {
	case string:
		raw = d
	case float64:
		raw = strconv.FormatFloat(d, 'f', 0, 64)
	case int64:
		raw = strconv.FormatInt(d, 10)
	case int:
		raw = strconv.Itoa(d)
	}
	return strings.NewReplacer(".", "", " ", "", "-", "").Replace(raw)
}
