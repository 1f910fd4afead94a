package util

import (
	"html"
	"strings"
)

const maxMensajeLen = 2000

// SanitizeMensaje normalizes chat text before it is persisted: trims
// whitespace, caps the length and escapes HTML. Returns "" for messages that
// reduce to nothing (callers reject those as ErrValidation).
// The cap is applied on rune boundaries before escaping so neither a
// multi-byte character nor an escape entity gets split.
func SanitizeMensaje(texto string) string {
	texto = strings.TrimSpace(texto)
	if texto == "" {
		return ""
	}
	if runes := []rune(texto); len(runes) > maxMensajeLen {
		texto = string(runes[:maxMensajeLen])
	}
	return html.EscapeString(texto)
}
