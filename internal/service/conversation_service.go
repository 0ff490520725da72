package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/metrics"
	"cobranza-bot/internal/queue"
	"cobranza-bot/internal/repository"
	"cobranza-bot/internal/whatsapp"
)

// FallbackReply se usa para números desconocidos y cuando el LLM no responde.
const FallbackReply = "Gracias, recibimos tu mensaje. Te responderemos pronto."

const agentPreamble = "Sos un agente de cobranzas profesional. Seguí estas reglas según el estado actual del deudor."

// Reply es el resultado de procesar un mensaje entrante.
type Reply struct {
	DebtorID      int64
	Known         bool
	Text          string
	PreviousState domain.State
	State         domain.State
	Decision      PaymentDecision
	PaymentLink   *PaymentLink
}

type ConversationDeps struct {
	Logger        *zap.Logger
	Debtors       repository.DebtorRepository
	Conversations repository.ConversationRepository
	Campaigns     repository.CampaignRepository
	Strategies    repository.StrategyRepository
	Classifier    *StateClassifier
	Payments      *PaymentLinkService
	LLM           llm.LLMClient
	Model         string
	Sender        whatsapp.Sender
}

// ConversationService responde los mensajes entrantes de los deudores.
type ConversationService struct {
	logger        *zap.Logger
	debtors       repository.DebtorRepository
	conversations repository.ConversationRepository
	campaigns     repository.CampaignRepository
	strategies    repository.StrategyRepository
	classifier    *StateClassifier
	payments      *PaymentLinkService
	llm           llm.LLMClient
	model         string
	sender        whatsapp.Sender
	// historyWindow limita los turnos previos que recibe el modelo.
	historyWindow int
	// turns serializa los turnos de un mismo número entre lectura y guardado
	// del historial.
	turns *keyedMutex
}

func NewConversationService(deps ConversationDeps) *ConversationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Payments == nil {
		deps.Payments = NewPaymentLinkService("", 0, deps.Logger)
	}
	if deps.Classifier == nil {
		deps.Classifier = NewStateClassifier(deps.LLM, "", deps.Logger)
	}
	return &ConversationService{
		logger:        deps.Logger,
		debtors:       deps.Debtors,
		conversations: deps.Conversations,
		campaigns:     deps.Campaigns,
		strategies:    deps.Strategies,
		classifier:    deps.Classifier,
		payments:      deps.Payments,
		llm:           deps.LLM,
		model:         deps.Model,
		sender:        deps.Sender,
		historyWindow: 20,
		turns:         newKeyedMutex(),
	}
}

// HandleIncoming clasifica el turno, arma el prompt según la estrategia de la
// campaña, genera la respuesta y persiste historial y estado.
func (s *ConversationService) HandleIncoming(ctx context.Context, from, body string) (Reply, error) {
	body = strings.TrimSpace(body)
	variants := whatsapp.PhoneVariants(from)
	if len(variants) == 0 || body == "" {
		return Reply{Text: FallbackReply}, nil
	}

	unlock, err := s.turns.Lock(ctx, whatsapp.CloudRecipient(from))
	if err != nil {
		return Reply{}, err
	}
	defer unlock()

	debtor, err := s.debtors.FindLatestByPhone(ctx, variants)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Info("inbound from unknown phone", zap.String("from", from))
		return Reply{Text: FallbackReply}, nil
	}
	if err != nil {
		return Reply{}, fmt.Errorf("find debtor by phone: %w", err)
	}

	history := append([]domain.ChatMessage(nil), debtor.ConversationHistory...)
	previous := debtor.State
	if !previous.Valid() {
		previous = domain.StateGris
	}

	classification := s.classifier.Classify(ctx, previous, history, body)
	state := classification.State
	userTurn := domain.ChatMessage{Role: domain.RoleUser, Content: body}
	attrs := debtor.Attributes()

	reply := Reply{DebtorID: debtor.ID, Known: true, PreviousState: previous, State: state}
	reply.Decision = s.payments.ShouldGenerate(body, state, append(history, userTurn), attrs)
	if reply.Decision.Generate {
		if amount, ok := DebtAmount(attrs); ok {
			link, err := s.payments.Create(debtor.ID, amount, 0, "")
			if err != nil {
				s.logger.Warn("payment link creation failed", zap.Int64("debtor_id", debtor.ID), zap.Error(err))
			} else {
				reply.PaymentLink = &link
			}
		} else {
			s.logger.Warn("payment link requested without debt amount", zap.Int64("debtor_id", debtor.ID))
		}
	}

	strategy := s.campaignStrategy(ctx, debtor)
	system := BuildSystemPrompt(state, strategy, attrs, reply.PaymentLink)

	text, err := s.llm.Chat(ctx, s.chatMessages(system, history, userTurn), llm.ChatOptions{Model: s.model})
	if err != nil {
		s.logger.Warn("conversation llm failed; using fallback", zap.Int64("debtor_id", debtor.ID), zap.Error(err))
		text = FallbackReply
	}
	reply.Text = text

	history = append(history, userTurn, domain.ChatMessage{Role: domain.RoleAssistant, Content: text})
	if err := s.conversations.SaveTurn(ctx, debtor.ID, history, state); err != nil {
		return Reply{}, fmt.Errorf("save conversation turn: %w", err)
	}
	if state != previous {
		metrics.StateTransitions.WithLabelValues(string(previous), string(state)).Inc()
		s.logger.Info("debtor_state_changed",
			zap.Int64("debtor_id", debtor.ID),
			zap.String("from", string(previous)),
			zap.String("to", string(state)),
			zap.String("source", classification.Source),
		)
	}
	return reply, nil
}

// ProcessInbound es el handler de la cola: responde y envía por WhatsApp.
func (s *ConversationService) ProcessInbound(ctx context.Context, job queue.Job) error {
	reply, err := s.HandleIncoming(ctx, job.From, job.Body)
	if err != nil {
		return err
	}
	if s.sender == nil {
		return nil
	}
	if _, err := s.sender.Send(ctx, job.From, reply.Text); err != nil {
		metrics.MessagesSent.WithLabelValues("reply", "error").Inc()
		return fmt.Errorf("send reply: %w", err)
	}
	metrics.MessagesSent.WithLabelValues("reply", "ok").Inc()
	return nil
}

func (s *ConversationService) campaignStrategy(ctx context.Context, d domain.Debtor) *domain.Strategy {
	if d.CampaignID == nil || s.campaigns == nil || s.strategies == nil {
		return nil
	}
	c, err := s.campaigns.GetByID(ctx, d.UserID, *d.CampaignID)
	if err != nil || c.StrategyID == nil {
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("load campaign for debtor", zap.Int64("debtor_id", d.ID), zap.Error(err))
		}
		return nil
	}
	st, err := s.strategies.GetByID(ctx, d.UserID, *c.StrategyID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn("load strategy for debtor", zap.Int64("debtor_id", d.ID), zap.Error(err))
		}
		return nil
	}
	return &st
}

// chatMessages arma system + historial reciente + turno nuevo. Los turnos
// system guardados en el historial se omiten: el prompt vigente los reemplaza.
func (s *ConversationService) chatMessages(system string, history []domain.ChatMessage, userTurn domain.ChatMessage) []llm.Message {
	var turns []domain.ChatMessage
	for _, m := range history {
		if m.Role == domain.RoleUser || m.Role == domain.RoleAssistant {
			turns = append(turns, m)
		}
	}
	if s.historyWindow > 0 && len(turns) > s.historyWindow {
		turns = turns[len(turns)-s.historyWindow:]
	}

	out := make([]llm.Message, 0, len(turns)+2)
	out = append(out, llm.Message{Role: domain.RoleSystem, Content: system})
	for _, m := range turns {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(out, llm.Message{Role: userTurn.Role, Content: userTurn.Content})
}

// BuildSystemPrompt renderiza las reglas del estado actual, el prompt base de
// la estrategia, los datos conocidos del deudor y el link de pago si hay.
func BuildSystemPrompt(state domain.State, strategy *domain.Strategy, attrs map[string]any, link *PaymentLink) string {
	var b strings.Builder
	b.WriteString(agentPreamble)
	fmt.Fprintf(&b, "\n\nEstado del deudor: %s\n\nReglas:\n", state)

	var rules domain.StateRules
	var hasRules bool
	if strategy != nil {
		rules, hasRules = strategy.RulesFor(state)
	}
	if !hasRules || (rules.Prompt == "" && len(rules.Conditionals) == 0) {
		b.WriteString("(sin reglas específicas para este estado)\n")
	} else {
		if rules.Prompt != "" {
			b.WriteString(rules.Prompt)
			b.WriteString("\n")
		}
		for i, c := range rules.Conditionals {
			fmt.Fprintf(&b, "%d. Si %s → %s\n", i+1, c.If, c.Then)
		}
	}

	if strategy != nil && strategy.InitialPrompt != "" {
		b.WriteString("\n")
		b.WriteString(strategy.InitialPrompt)
		b.WriteString("\n")
	}

	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nDatos del deudor:\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, formatAttr(attrs[k]))
		}
	}

	if link != nil {
		fmt.Fprintf(&b, "\nCompartí este link de pago con el deudor: %s\nMonto a pagar: $%s. Vence: %s.\n",
			link.URL,
			formatAttr(link.FinalAmount),
			link.ExpiresAt.Format("02/01/2006 15:04"),
		)
	}
	return strings.TrimRight(b.String(), "\n")
}
