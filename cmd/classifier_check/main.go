package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cobranza-bot/internal/config"
	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/service"
)

const (
	colorGreen = "\033[32m"
	colorRed   = "\033[31m"
	colorCyan  = "\033[36m"
	colorReset = "\033[0m"
)

// Scenario es un turno etiquetado: con este historial y este mensaje el
// deudor debería quedar en Expected.
type Scenario struct {
	Name             string
	Current          domain.State
	History          []domain.ChatMessage
	Message          string
	Expected         domain.State
	ExpectedBehavior string
	ExpectLink       bool
}

var debtorData = map[string]any{
	"nombre": "Juan Pérez",
	"dni":    "30111222",
	"deuda":  "150000",
}

var strategy = domain.Strategy{
	Name:          "Estrategia de prueba",
	InitialPrompt: "Hola {{nombre}}, te escribimos por tu deuda de ${{deuda}}. ¿Podemos ayudarte a regularizarla?",
	RulesByState: map[domain.State]domain.StateRules{
		domain.StateVerde: {
			Prompt: "Agradecé la voluntad de pago y facilitá el pago. Confirmá el DNI antes de enviar un link.",
		},
		domain.StateAmarillo: {
			Prompt: "Ofrecé un plan en cuotas sin presionar.",
			Conditionals: []domain.Conditional{
				{If: "pide descuento", Then: "ofrecé hasta 10% por pago contado"},
			},
		},
		domain.StateRojo: {
			Prompt: "Mantené un tono respetuoso, recordá la deuda y dejá la puerta abierta.",
		},
		domain.StateGris: {
			Prompt: "Pedí una respuesta breve para saber si recibió el mensaje.",
		},
	},
}

func opening() []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: strategy.InitialPrompt},
		{Role: domain.RoleAssistant, Content: service.Personalize(strategy.InitialPrompt, debtorData)},
	}
}

func scenarios() []Scenario {
	return []Scenario{
		{
			Name:             "promesa de pago",
			Current:          domain.StateGris,
			History:          opening(),
			Message:          "Sí, el viernes cobro y te pago todo",
			Expected:         domain.StateVerde,
			ExpectedBehavior: "Agradece y confirma cómo pagar, sin mandar link sin validar identidad",
		},
		{
			Name:             "negociación",
			Current:          domain.StateGris,
			History:          opening(),
			Message:          "Ahora no llego, ¿me lo pueden dividir en cuotas?",
			Expected:         domain.StateAmarillo,
			ExpectedBehavior: "Ofrece un plan en cuotas con tono cordial",
		},
		{
			Name:             "negación",
			Current:          domain.StateGris,
			History:          opening(),
			Message:          "Esa deuda no es mía, no me escriban más",
			Expected:         domain.StateRojo,
			ExpectedBehavior: "Respeta la negativa sin amenazar y deja un canal abierto",
		},
		{
			Name:    "dni confirmado",
			Current: domain.StateVerde,
			History: append(opening(),
				domain.ChatMessage{Role: domain.RoleUser, Content: "Quiero pagar hoy"},
				domain.ChatMessage{Role: domain.RoleAssistant, Content: "¡Genial! ¿Me confirmás tu DNI?"},
			),
			Message:          "30111222, pasame el link",
			Expected:         domain.StateVerde,
			ExpectedBehavior: "Envía el link de pago",
			ExpectLink:       true,
		},
		{
			Name:    "cooperativo no baja",
			Current: domain.StateAmarillo,
			History: append(opening(),
				domain.ChatMessage{Role: domain.RoleUser, Content: "¿Qué opciones tengo?"},
				domain.ChatMessage{Role: domain.RoleAssistant, Content: "Podemos hacerlo en 3 cuotas. ¿Te sirve?"},
			),
			Message:          "ok",
			Expected:         domain.StateAmarillo,
			ExpectedBehavior: "Avanza con el plan de cuotas",
		},
	}
}

func main() {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger)
	classifier := service.NewStateClassifier(llmClient, cfg.LLMClassifierModel, logger)
	payments := service.NewPaymentLinkService(cfg.PaymentLinkBaseURL, cfg.PaymentLinkTTL, logger)

	all := scenarios()
	var hits, totalRules, totalTone, totalCompliance int
	for _, sc := range all {
		fmt.Printf("%s[%s]%s %s\n", colorCyan, sc.Name, colorReset, sc.Message)

		cls := classifier.Classify(ctx, sc.Current, sc.History, sc.Message)
		mark := colorRed + "✗" + colorReset
		if cls.State == sc.Expected {
			hits++
			mark = colorGreen + "✓" + colorReset
		}
		fmt.Printf("  estado %s → %s (esperado %s, fuente %s) %s\n", sc.Current, cls.State, sc.Expected, cls.Source, mark)

		var link *service.PaymentLink
		if d := payments.ShouldGenerate(sc.Message, cls.State, sc.History, debtorData); d.Generate {
			if amount, ok := service.DebtAmount(debtorData); ok {
				if l, err := payments.Create(1, amount, 0, ""); err == nil {
					link = &l
				}
			}
		}

		system := service.BuildSystemPrompt(cls.State, &strategy, debtorData, link)
		reply, err := generateReply(ctx, llmClient, cfg.LLMModel, system, sc.History, sc.Message)
		if err != nil {
			log.Fatalf("bot reply failed: %v", err)
		}
		fmt.Printf("%s[bot]%s %s\n", colorGreen, colorReset, reply)

		jr, err := evaluateReply(ctx, llmClient, sc, cls.State, system, reply)
		if err != nil {
			log.Fatalf("judge failed: %v", err)
		}
		fmt.Printf("%sJuez%s %q\n", colorCyan, colorReset, jr.Reasoning)
		fmt.Printf("Scores: Reglas %d/5 | Tono %d/5 | Cumplimiento %d/5\n\n", jr.RulesScore, jr.ToneScore, jr.ComplianceScore)

		totalRules += jr.RulesScore
		totalTone += jr.ToneScore
		totalCompliance += jr.ComplianceScore
	}

	n := float64(len(all))
	fmt.Println("==== Resultados ====")
	fmt.Printf("Clasificación: %d/%d (%.0f%%)\n", hits, len(all), 100*float64(hits)/n)
	fmt.Printf("Reglas: %.2f/5 | Tono: %.2f/5 | Cumplimiento: %.2f/5\n",
		float64(totalRules)/n, float64(totalTone)/n, float64(totalCompliance)/n)
}

func generateReply(ctx context.Context, client llm.LLMClient, model, system string, history []domain.ChatMessage, message string) (string, error) {
	msgs := []llm.Message{{Role: domain.RoleSystem, Content: system}}
	for _, m := range history {
		if m.Role == domain.RoleSystem {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: domain.RoleUser, Content: message})
	return client.Chat(ctx, msgs, llm.ChatOptions{Model: model, Temperature: llm.Temperature(0.7)})
}
