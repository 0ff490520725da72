package whatsapp

import "strings"

const channelPrefix = "whatsapp:"

// NormalizePhone deja solo dígitos, con "+" inicial si lo tenía o si el
// número venía del canal de WhatsApp.
func NormalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	fromChannel := strings.HasPrefix(strings.ToLower(s), channelPrefix)
	if fromChannel {
		s = s[len(channelPrefix):]
	}
	plus := strings.HasPrefix(strings.TrimSpace(s), "+")

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if plus || fromChannel {
		return "+" + digits
	}
	return digits
}

// ChannelAddress es el formato que espera Twilio: "whatsapp:+549...".
func ChannelAddress(phone string) string {
	n := NormalizePhone(phone)
	if n != "" && !strings.HasPrefix(n, "+") {
		n = "+" + n
	}
	return channelPrefix + n
}

// CloudRecipient es el formato de la Cloud API: solo dígitos.
func CloudRecipient(phone string) string {
	return strings.TrimPrefix(NormalizePhone(phone), "+")
}

// PhoneVariants devuelve las formas en que un número puede estar guardado
// en la tabla de deudores.
func PhoneVariants(raw string) []string {
	digits := CloudRecipient(raw)
	if digits == "" {
		return nil
	}
	seen := map[string]struct{}{}
	var out []string
	for _, v := range []string{
		strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), channelPrefix)),
		digits,
		"+" + digits,
		channelPrefix + "+" + digits,
	} {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
