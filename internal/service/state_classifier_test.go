package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
)

func TestParseStateReply(t *testing.T) {
	cases := []struct {
		raw    string
		want   domain.State
		wantOK bool
	}{
		{"VERDE", domain.StateVerde, true},
		{" amarillo.\n", domain.StateAmarillo, true},
		{"```json\n{\"estado\": \"ROJO\"}\n```", domain.StateRojo, true},
		{`{"state":"gris"}`, domain.StateGris, true},
		{"El estado es VERDE", domain.StateVerde, true},
		{"VERDE o AMARILLO", "", false},
		{"AZUL", "", false},
		{`{"estado":"AZUL"}`, "", false},
		{"", "", false},
		{"\uFEFFVERDE", domain.StateVerde, true},
		{`Claro: {"estado":"ROJO","motivo":"dijo {no}"} listo`, domain.StateRojo, true},
		{`{"estado": "VERDE", "nota": "sin cerrar`, "", false},
	}
	for _, tc := range cases {
		got, ok := ParseStateReply(tc.raw)
		assert.Equal(t, tc.wantOK, ok, "raw=%q", tc.raw)
		assert.Equal(t, tc.want, got, "raw=%q", tc.raw)
	}
}

func TestStateClassifier_UsesLLM(t *testing.T) {
	mock := &llm.MockClient{Response: "AMARILLO"}
	c := NewStateClassifier(mock, "classifier-model", zap.NewNop())

	res := c.Classify(context.Background(), domain.StateGris, nil, "Puedo pagar en cuotas el mes que viene?")

	assert.Equal(t, domain.StateAmarillo, res.State)
	assert.Equal(t, SourceLLM, res.Source)
	require.Len(t, mock.Options, 1)
	assert.Equal(t, "classifier-model", mock.Options[0].Model)
	require.NotNil(t, mock.Options[0].Temperature)
	assert.Zero(t, *mock.Options[0].Temperature)
	assert.True(t, strings.Contains(mock.Calls[0][0].Content, "Deudor: Puedo pagar en cuotas"))
}

func TestStateClassifier_ProtectsFavorableState(t *testing.T) {
	history := []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "¿Te gustaría que te envíe el link para completar tu pago?"},
		{Role: domain.RoleUser, Content: "Si"},
	}
	mock := &llm.MockClient{Response: "GRIS"}
	c := NewStateClassifier(mock, "", nil)

	res := c.Classify(context.Background(), domain.StateAmarillo, history, "Si")

	assert.Equal(t, domain.StateAmarillo, res.State)
	assert.Equal(t, SourceProtected, res.Source)
}

func TestStateClassifier_DNIFromGrisNeverStaysGris(t *testing.T) {
	history := []domain.ChatMessage{
		{Role: domain.RoleAssistant, Content: "¿Podrías proporcionarme tu DNI?"},
		{Role: domain.RoleUser, Content: "45580095"},
	}
	c := NewStateClassifier(&llm.MockClient{Response: "GRIS"}, "", nil)

	res := c.Classify(context.Background(), domain.StateGris, history, "45580095")

	assert.Contains(t, []domain.State{domain.StateVerde, domain.StateAmarillo}, res.State)
}

func TestStateClassifier_RefusalIsNotProtected(t *testing.T) {
	c := NewStateClassifier(&llm.MockClient{Response: "ROJO"}, "", nil)

	res := c.Classify(context.Background(), domain.StateVerde, nil, "No voy a pagar, no reconozco esa deuda")

	assert.Equal(t, domain.StateRojo, res.State)
	assert.Equal(t, SourceLLM, res.Source)
}

func TestStateClassifier_FallbackOnLLMError(t *testing.T) {
	cases := []struct {
		name    string
		client  *llm.MockClient
		current domain.State
		message string
		want    domain.State
	}{
		{"error refusal", &llm.MockClient{Err: errors.New("timeout")}, domain.StateGris, "no pienso pagar", domain.StateRojo},
		{"bad answer intent", &llm.MockClient{Response: "no sé"}, domain.StateGris, "quiero pagar hoy", domain.StateVerde},
		{"error negotiation", &llm.MockClient{Err: errors.New("timeout")}, domain.StateGris, "hay alguna quita o descuento?", domain.StateAmarillo},
		{"error neutral keeps current", &llm.MockClient{Err: errors.New("timeout")}, domain.StateAmarillo, "hola", domain.StateAmarillo},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := NewStateClassifier(tc.client, "", nil)
			res := c.Classify(context.Background(), tc.current, nil, tc.message)
			assert.Equal(t, tc.want, res.State)
			assert.NotEqual(t, SourceLLM, res.Source)
		})
	}
}

func TestStateClassifier_InvalidCurrentDefaultsToGris(t *testing.T) {
	c := NewStateClassifier(&llm.MockClient{Err: errors.New("down")}, "", nil)
	res := c.Classify(context.Background(), domain.State("AZUL"), nil, "hola")
	assert.Equal(t, domain.StateGris, res.State)
}
