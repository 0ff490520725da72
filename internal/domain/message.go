package domain

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage es un turno del historial de conversación de un deudor.
// Se guarda tal cual en la columna JSONB conversation_history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LastUserMessages devuelve el contenido de los mensajes del deudor en orden.
func LastUserMessages(history []ChatMessage) []string {
	var out []string
	for _, m := range history {
		if m.Role == RoleUser {
			out = append(out, m.Content)
		}
	}
	return out
}
