package service

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/metrics"
)

const (
	SourceLLM       = "llm"
	SourceHeuristic = "heuristic"
	SourceProtected = "protected"
)

// Classification es el estado resultante de un turno y de dónde salió.
type Classification struct {
	State   domain.State
	Source  string
	Context ContextAnalysis
}

var ErrInvalidClassification = errors.New("classifier returned an invalid state")

// StateClassifier asigna el semáforo de un deudor combinando heurística y LLM.
type StateClassifier struct {
	llm    llm.LLMClient
	model  string
	logger *zap.Logger
	// historyWindow limita cuántos turnos recientes ve el modelo.
	historyWindow int
}

func NewStateClassifier(client llm.LLMClient, model string, logger *zap.Logger) *StateClassifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateClassifier{
		llm:           client,
		model:         model,
		logger:        logger,
		historyWindow: 10,
	}
}

// Classify nunca falla: si el LLM no responde bien se usa la heurística.
// Un turno cooperativo no baja a GRIS ni a ROJO.
func (c *StateClassifier) Classify(ctx context.Context, current domain.State, history []domain.ChatMessage, message string) Classification {
	if !current.Valid() {
		current = domain.StateGris
	}
	analysis := AnalyzeContext(history, message)
	result := Classification{Context: analysis}

	state, err := c.classifyWithLLM(ctx, history, message, analysis)
	if err != nil {
		metrics.ClassifierFallbacks.Inc()
		c.logger.Warn("state classifier fallback", zap.Error(err))
		result.State = HeuristicState(current, analysis)
		result.Source = SourceHeuristic
	} else {
		result.State = state
		result.Source = SourceLLM
	}

	if analysis.IsCooperative && (result.State == domain.StateGris || result.State == domain.StateRojo) {
		switch {
		case current.Favorable():
			result.State = current
		case analysis.HasPaymentIntent:
			result.State = domain.StateVerde
		default:
			result.State = domain.StateAmarillo
		}
		result.Source = SourceProtected
	}
	return result
}

// HeuristicState decide el estado sin LLM.
func HeuristicState(current domain.State, ca ContextAnalysis) domain.State {
	switch {
	case ca.HasRefusal:
		return domain.StateRojo
	case ca.HasPaymentIntent && !ca.HasNegotiation:
		return domain.StateVerde
	case ca.HasNegotiation:
		return domain.StateAmarillo
	case ca.IsCooperative:
		if current.Favorable() {
			return current
		}
		return domain.StateAmarillo
	}
	return current
}

func (c *StateClassifier) classifyWithLLM(ctx context.Context, history []domain.ChatMessage, message string, ca ContextAnalysis) (domain.State, error) {
	if c.llm == nil {
		return "", errors.New("classifier llm not configured")
	}
	prompt := buildClassifierPrompt(c.recent(history), message, ca)
	raw, err := c.llm.Chat(ctx, []llm.Message{{Role: domain.RoleUser, Content: prompt}}, llm.ChatOptions{
		Model:       c.model,
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		return "", fmt.Errorf("classify: %w", err)
	}
	state, ok := ParseStateReply(raw)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidClassification, truncateText(raw, 80))
	}
	return state, nil
}

func (c *StateClassifier) recent(history []domain.ChatMessage) []domain.ChatMessage {
	var out []domain.ChatMessage
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		out = append(out, m)
	}
	if len(out) > c.historyWindow {
		out = out[len(out)-c.historyWindow:]
	}
	return out
}

// ParseStateReply acepta JSON ({"estado": "VERDE"} o {"state": ...}), con o
// sin fences, o una palabra suelta.
func ParseStateReply(raw string) (domain.State, bool) {
	if i := strings.IndexByte(raw, '{'); i >= 0 {
		return decodeStatePayload(raw[i:])
	}

	fields := strings.FieldsFunc(strings.ToUpper(raw), func(r rune) bool {
		return r < 'A' || r > 'Z'
	})
	var found domain.State
	for _, f := range fields {
		if s, ok := domain.ParseState(f); ok {
			if found != "" && found != s {
				return "", false
			}
			found = s
		}
	}
	return found, found != ""
}

// decodeStatePayload lee un único objeto JSON desde el inicio de s; lo que
// sigue (fence de cierre, texto) se ignora.
func decodeStatePayload(s string) (domain.State, bool) {
	var payload struct {
		Estado string `json:"estado"`
		State  string `json:"state"`
	}
	if err := json.NewDecoder(strings.NewReader(s)).Decode(&payload); err != nil {
		return "", false
	}
	state, ok := domain.ParseState(cmp.Or(payload.Estado, payload.State))
	if !ok {
		return "", false
	}
	return state, true
}

func buildClassifierPrompt(history []domain.ChatMessage, message string, ca ContextAnalysis) string {
	var b strings.Builder
	b.WriteString("Sos un agente experto en cobranzas. Analizá esta conversación y clasificá la intención de pago del deudor como uno de los siguientes estados:\n\n")
	b.WriteString("- VERDE: está decidido a pagar pronto.\n")
	b.WriteString("- AMARILLO: muestra interés pero pide negociar o demora.\n")
	b.WriteString("- ROJO: niega, evita o rechaza.\n")
	b.WriteString("- GRIS: aún no respondió o no hay info suficiente.\n\n")
	b.WriteString("Conversación:\n")
	for _, m := range history {
		who := "Deudor"
		if m.Role == domain.RoleAssistant {
			who = "Agente"
		}
		fmt.Fprintf(&b, "%s: %s\n", who, m.Content)
	}
	if len(history) == 0 || history[len(history)-1].Content != message {
		fmt.Fprintf(&b, "Deudor: %s\n", message)
	}
	if len(ca.Indicators) > 0 {
		fmt.Fprintf(&b, "\nSeñales detectadas: %s\n", strings.Join(ca.Indicators, ", "))
	}
	if ca.IsCooperative {
		b.WriteString("Una respuesta corta afirmativa o un DNI enviado tras pedirlo es colaboración, no falta de información.\n")
	}
	b.WriteString("\nDevolvé solo una palabra exacta en mayúsculas: VERDE, AMARILLO, ROJO o GRIS.")
	return b.String()
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
