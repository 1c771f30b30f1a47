package tools

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeWhatsAppTo normaliza um telefone para o formato aceito pelo WhatsApp Cloud API
// (apenas dígitos, em formato internacional, sem '+').
//
// - remove tudo que não é dígito e o prefixo internacional 00
// - número nacional espanhol (9 dígitos começando por 6, 7, 8 ou 9) recebe o 34
// - com DDI (>= 11 dígitos) mantém
func NormalizeWhatsAppTo(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty phone")
	}

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	phone := strings.TrimPrefix(b.String(), "00")

	if len(phone) == 9 && strings.ContainsRune("6789", rune(phone[0])) {
		phone = "34" + phone
	}

	if len(phone) < 11 || len(phone) > 15 {
		return "", fmt.Errorf("invalid phone length: %d", len(phone))
	}
	return phone, nil
}
