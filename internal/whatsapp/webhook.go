package whatsapp

import "strings"

// WebhookPayload es el cuerpo que Meta envía a /webhook/meta.
type WebhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				MessagingProduct string `json:"messaging_product"`
				Metadata         struct {
					DisplayPhoneNumber string `json:"display_phone_number"`
					PhoneNumberID      string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// InboundMessage es un mensaje de texto entrante, sin importar el proveedor.
type InboundMessage struct {
	From string
	Body string
	ID   string
}

// TextMessages aplana el payload y descarta todo lo que no sea texto.
func (p WebhookPayload) TextMessages() []InboundMessage {
	var out []InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if m.Type != "text" || strings.TrimSpace(m.Text.Body) == "" {
					continue
				}
				out = append(out, InboundMessage{
					From: NormalizePhone("+" + strings.TrimPrefix(m.From, "+")),
					Body: m.Text.Body,
					ID:   m.ID,
				})
			}
		}
	}
	return out
}
