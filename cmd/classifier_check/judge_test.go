package main

import (
	"context"
	"strings"
	"testing"

	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
)

func TestDetectLinkLeak(t *testing.T) {
	cases := []struct {
		name    string
		reply   string
		allowed bool
		expect  bool
	}{
		{"link not allowed", "Pagá acá: https://pagos.example.com/pay/abc", false, true},
		{"link allowed", "Pagá acá: https://pagos.example.com/pay/abc", true, false},
		{"no link", "¿Me confirmás tu DNI?", false, false},
		{"uppercase scheme", "HTTP://pagos.example.com", false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := detectLinkLeak(tc.reply, tc.allowed); got != tc.expect {
				t.Fatalf("detectLinkLeak(%q,%v)=%v want %v", tc.reply, tc.allowed, got, tc.expect)
			}
		})
	}
}

func TestDetectThreat(t *testing.T) {
	tcases := []struct {
		text string
		want bool
	}{
		{text: "Si no pagás vamos a iniciar un EMBARGO.", want: true},
		{text: "Iniciaremos acciones legales mañana.", want: true},
		{text: "Te vas a arrepentír de no pagar.", want: true},
		{text: "Entiendo, podemos verlo en cuotas.", want: false},
		{text: "Gracias por responder, quedo atento.", want: false},
	}
	for _, tc := range tcases {
		if got := detectThreat(tc.text); got != tc.want {
			t.Fatalf("detectThreat(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestClamp1to5(t *testing.T) {
	for in, want := range map[int]int{-3: 1, 0: 1, 1: 1, 3: 3, 5: 5, 9: 5} {
		if got := clamp1to5(in); got != want {
			t.Fatalf("clamp1to5(%d)=%d want %d", in, got, want)
		}
	}
}

func TestExtractFirstJSONObject(t *testing.T) {
	raw := "Claro:\n```json\n{\"reasoning\":\"ok {bien}\",\"rules_score\":4}\n```\n{\"otro\":1}"
	got := extractFirstJSONObject(raw)
	if got != `{"reasoning":"ok {bien}","rules_score":4}` {
		t.Fatalf("unexpected extraction %q", got)
	}
	if extractFirstJSONObject("sin json") != "" {
		t.Fatal("expected empty result without braces")
	}
	if extractFirstJSONObject("{incompleto") != "" {
		t.Fatal("expected empty result for unbalanced object")
	}
}

func TestJudgePromptIncludesHeuristicsAndRules(t *testing.T) {
	prompt := buildJudgePrompt(
		domain.StateAmarillo,
		"Ofrecé cuotas",
		"Indicadores heurísticos: link_sin_autorizacion=true, lenguaje_amenazante=false",
		"no llego", "Te ofrezco 3 cuotas", "ofrece cuotas",
	)
	needles := []string{
		"AMARILLO",
		"Ofrecé cuotas",
		"link_sin_autorizacion=true",
		"Cumplimiento máximo 2/5",
	}
	for _, n := range needles {
		if !strings.Contains(prompt, n) {
			t.Fatalf("prompt missing %q: %q", n, prompt)
		}
	}
}

func TestEvaluateReplyCapsCompliance(t *testing.T) {
	judge := &llm.MockClient{Response: "Resultado: {\"reasoning\":\"bien\",\"rules_score\":7,\"tone_score\":4,\"compliance_score\":5}"}
	sc := Scenario{Message: "quiero pagar", ExpectedBehavior: "pide DNI"}

	jr, err := evaluateReply(context.Background(), judge, sc, domain.StateVerde, "prompt", "Pagá en https://pagos.example.com/pay/x")
	if err != nil {
		t.Fatalf("evaluateReply: %v", err)
	}
	if jr.RulesScore != 5 || jr.ToneScore != 4 {
		t.Fatalf("unexpected scores %+v", jr)
	}
	if jr.ComplianceScore != 2 {
		t.Fatalf("expected compliance capped at 2 for leaked link, got %d", jr.ComplianceScore)
	}

	judge.Response = `{"reasoning":"amenaza","rules_score":3,"tone_score":3,"compliance_score":4}`
	jr, err = evaluateReply(context.Background(), judge, sc, domain.StateRojo, "prompt", "Iniciaremos acciones legales")
	if err != nil {
		t.Fatalf("evaluateReply: %v", err)
	}
	if jr.ComplianceScore != 1 {
		t.Fatalf("expected compliance 1 for threat, got %d", jr.ComplianceScore)
	}
}

func TestEvaluateReplyRejectsNonJSON(t *testing.T) {
	judge := &llm.MockClient{Response: "no puedo evaluar"}
	if _, err := evaluateReply(context.Background(), judge, Scenario{}, domain.StateGris, "p", "hola"); err == nil {
		t.Fatal("expected error for non-json judge output")
	}
}
