package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cobranza-bot/internal/app"
	"cobranza-bot/internal/config"
	"cobranza-bot/internal/domain"
	"cobranza-bot/internal/llm"
	"cobranza-bot/internal/service"
)

// Simulador de conversación: el operador hace de deudor contra una estrategia
// guardada. Nada se persiste ni se envía por WhatsApp.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	userID := askInt(reader, "ID de usuario dueño de la estrategia: ")
	strategies, err := a.Strategies.List(ctx, userID, 0, 100)
	if err != nil {
		log.Fatalf("listar estrategias: %v", err)
	}
	if len(strategies) == 0 {
		log.Fatal("el usuario no tiene estrategias")
	}

	fmt.Println("Estrategias disponibles:")
	for i, st := range strategies {
		fmt.Printf("[%d] %s (ID: %d)\n", i+1, st.Name, st.ID)
	}
	idx := askInt(reader, "Selecciona una estrategia: ")
	if idx < 1 || int(idx) > len(strategies) {
		log.Fatal("selección inválida")
	}
	strategy := strategies[idx-1]

	sim := &simulation{
		app:      a,
		strategy: strategy,
		debtor: domain.Debtor{
			ID:    0,
			Phone: "+5490000000000",
			Name:  askString(reader, "Nombre del deudor simulado: "),
			DNI:   askString(reader, "DNI del deudor simulado: "),
			State: domain.StateGris,
			CustomData: map[string]any{
				"deuda": askString(reader, "Monto de la deuda: "),
			},
		},
	}

	opening := service.Personalize(strategy.InitialPrompt, sim.debtor.Attributes())
	fmt.Printf("\n[bot] (apertura sin LLM) %s\n", opening)
	sim.history = []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: strategy.InitialPrompt},
		{Role: domain.RoleAssistant, Content: opening},
	}

	fmt.Println("Escribí como el deudor. /estado muestra el semáforo, /salir termina.")
	for {
		fmt.Print("\n[deudor] ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		switch line {
		case "":
			continue
		case "/salir":
			return
		case "/estado":
			fmt.Printf("estado actual: %s\n", sim.debtor.State)
			continue
		}
		reply, err := sim.turn(ctx, line)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Printf("[bot] %s\n", reply)
	}
}

type simulation struct {
	app      *app.App
	strategy domain.Strategy
	debtor   domain.Debtor
	history  []domain.ChatMessage
}

// turn reproduce el flujo del webhook en memoria: clasificar, decidir link,
// armar el prompt y pedir la respuesta.
func (s *simulation) turn(ctx context.Context, message string) (string, error) {
	prev := s.debtor.State
	cls := s.app.Classifier.Classify(ctx, prev, s.history, message)
	s.debtor.State = cls.State
	fmt.Printf("  · estado %s → %s (%s)\n", prev, cls.State, cls.Source)

	var link *service.PaymentLink
	decision := s.app.Payments.ShouldGenerate(message, cls.State, s.history, s.debtor.CustomData)
	fmt.Printf("  · link de pago: %v (%s)\n", decision.Generate, decision.Reason)
	if decision.Generate {
		if amount, ok := service.DebtAmount(s.debtor.CustomData); ok {
			l, err := s.app.Payments.Create(s.debtor.ID, amount, 0, "")
			if err == nil {
				link = &l
			}
		}
	}

	system := service.BuildSystemPrompt(cls.State, &s.strategy, s.debtor.Attributes(), link)
	msgs := []llm.Message{{Role: domain.RoleSystem, Content: system}}
	for _, m := range s.history {
		if m.Role == domain.RoleSystem {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: domain.RoleUser, Content: message})

	reply, err := s.app.LLM.Chat(ctx, msgs, llm.ChatOptions{Model: s.app.Config.LLMModel, Temperature: llm.Temperature(0.7)})
	if err != nil {
		return "", err
	}
	s.history = append(s.history,
		domain.ChatMessage{Role: domain.RoleUser, Content: message},
		domain.ChatMessage{Role: domain.RoleAssistant, Content: reply},
	)
	return reply, nil
}

func askString(reader *bufio.Reader, prompt string) string {
	fmt.Print(prompt)
	s, err := reader.ReadString('\n')
	if err != nil && strings.TrimSpace(s) == "" {
		log.Fatal("entrada cerrada")
	}
	return strings.TrimSpace(s)
}

func askInt(reader *bufio.Reader, prompt string) int64 {
	for {
		n, err := strconv.ParseInt(askString(reader, prompt), 10, 64)
		if err == nil {
			return n
		}
		fmt.Println("Ingresá un número.")
	}
}
