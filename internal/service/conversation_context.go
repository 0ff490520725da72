package service

import (
	"regexp"
	"strings"

	"cobranza-bot/internal/domain"
)

const (
	IndicatorPaymentContext = "contexto_de_pago"
	IndicatorIdentity       = "confirmación_identidad"
	IndicatorRefusal        = "rechazo"
	IndicatorNegotiation    = "negociacion"
)

// ContextAnalysis resume las señales heurísticas de un turno del deudor.
type ContextAnalysis struct {
	HasPositiveResponse     bool     `json:"has_positive_response"`
	HasPaymentIntent        bool     `json:"has_payment_intent"`
	HasIdentityConfirmation bool     `json:"has_identity_confirmation"`
	HasRefusal              bool     `json:"has_refusal"`
	HasNegotiation          bool     `json:"has_negotiation"`
	IsCooperative           bool     `json:"is_cooperative"`
	Indicators              []string `json:"context_indicators"`
}

func (c ContextAnalysis) Has(indicator string) bool {
	for _, i := range c.Indicators {
		if i == indicator {
			return true
		}
	}
	return false
}

var (
	positiveWords = []string{
		"si", "sip", "ok", "okay", "oka", "claro", "perfecto", "dale", "quiero",
		"acepto", "bueno", "de acuerdo", "listo", "genial", "obvio",
		"por supuesto", "me parece bien", "vale", "confirmo",
	}
	paymentWords = []string{
		"pagar", "pago", "pagarlo", "pagarla", "pague", "abonar", "abono",
		"link", "enlace", "transferencia", "transferir", "tarjeta",
		"mercadopago", "mercado pago", "regularizar", "saldar",
	}
	refusalPhrases = []string{
		"no voy a pagar", "no pienso pagar", "no quiero pagar", "no pago",
		"no debo nada", "no reconozco", "no es mi deuda", "no es mia",
		"dejen de", "no me molesten", "no me escriban", "no me llamen",
		"denuncia", "abogado", "numero equivocado", "se equivocaron",
	}
	negotiationPhrases = []string{
		"cuota", "cuotas", "descuento", "plan de pago", "mas adelante",
		"proximo mes", "semana que viene", "cuando cobre", "no tengo",
		"no puedo ahora", "ahora no", "despues", "plazo", "negociar",
		"refinanciar", "quita",
	}
	paymentNegationRe = regexp.MustCompile(`\bno\s+(quiero|puedo|voy a|pienso|tengo|me interesa|necesito)\b`)
)

// AnalyzeContext evalúa el mensaje actual del deudor junto con el historial.
// history puede incluir o no el mensaje actual como último turno.
func AnalyzeContext(history []domain.ChatMessage, message string) ContextAnalysis {
	msg := foldText(message)
	var ca ContextAnalysis

	negated := strings.HasPrefix(msg+" ", "no ")
	ca.HasPositiveResponse = !negated && containsAny(msg, positiveWords)
	ca.HasRefusal = containsPhrase(msg, refusalPhrases)
	ca.HasNegotiation = containsPhrase(msg, negotiationPhrases)
	ca.HasIdentityConfirmation = len(findDNIs(message)) > 0

	explicitIntent := containsAny(msg, paymentWords) && !paymentNegationRe.MatchString(msg) && !ca.HasRefusal
	lastBot := foldText(lastAssistantMessage(history))
	botTalksPayment := containsAny(lastBot, paymentWords) || containsWord(lastBot, "deuda")

	ca.HasPaymentIntent = explicitIntent || (ca.HasPositiveResponse && botTalksPayment)

	if botTalksPayment || explicitIntent {
		ca.Indicators = append(ca.Indicators, IndicatorPaymentContext)
	}
	if ca.HasIdentityConfirmation {
		ca.Indicators = append(ca.Indicators, IndicatorIdentity)
	}
	if ca.HasRefusal {
		ca.Indicators = append(ca.Indicators, IndicatorRefusal)
	}
	if ca.HasNegotiation {
		ca.Indicators = append(ca.Indicators, IndicatorNegotiation)
	}

	ca.IsCooperative = !ca.HasRefusal &&
		(ca.HasPositiveResponse || ca.HasPaymentIntent || ca.HasIdentityConfirmation)
	return ca
}

// lastAssistantMessage devuelve el último turno del bot, salteando los
// turnos del deudor que estén al final.
func lastAssistantMessage(history []domain.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}

func containsPhrase(folded string, phrases []string) bool {
	padded := " " + folded + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p) {
			return true
		}
	}
	return false
}
