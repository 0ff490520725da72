package main

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"cobranza-bot/internal/app"
	"cobranza-bot/internal/config"
	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/service"
)

func TestAskIntRetriesUntilNumber(t *testing.T) {
	reader := bufio.NewReader(strings.NewReader("abc\n\n 7 \n"))
	if got := askInt(reader, ""); got != 7 {
		t.Fatalf("askInt = %d, want 7", got)
	}
}

func TestSimulationTurnAppendsHistory(t *testing.T) {
	logger := zap.NewExample()
	client := &llm.MockClient{Responses: []string{"AMARILLO", "Podemos armar un plan en 3 cuotas."}}
	sim := &simulation{
		app: &app.App{
			Config:     &config.Config{LLMModel: "chat-model"},
			Logger:     logger,
			LLM:        client,
			Classifier: service.NewStateClassifier(client, "clf-model", logger),
			Payments:   service.NewPaymentLinkService("https://pay.test/checkout", time.Hour, logger),
		},
		strategy: domain.Strategy{InitialPrompt: "Hola {{nombre}}"},
		debtor: domain.Debtor{
			Name:       "Ana",
			State:      domain.StateGris,
			CustomData: map[string]any{"deuda": "50000"},
		},
		history: []domain.ChatMessage{{Role: domain.RoleAssistant, Content: "Hola Ana"}},
	}

	reply, err := sim.turn(context.Background(), "no llego, ¿puede ser en cuotas?")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if reply != "Podemos armar un plan en 3 cuotas." {
		t.Fatalf("unexpected reply %q", reply)
	}
	if sim.debtor.State != domain.StateAmarillo {
		t.Fatalf("state = %s, want AMARILLO", sim.debtor.State)
	}
	if len(sim.history) != 3 || sim.history[1].Role != domain.RoleUser {
		t.Fatalf("unexpected history %+v", sim.history)
	}
}
