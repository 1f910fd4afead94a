package util

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("credenciales inválidas o sesión expirada")
	ErrForbidden       = errors.New("permiso denegado")
	ErrValidation      = errors.New("datos inválidos")
	ErrNotFound        = errors.New("recurso no encontrado")
	ErrConflict        = errors.New("el registro ya existe")

	// Refresh-token failures are distinct error kinds because the logout and
	// refresh flows report different user-facing messages for each.
	ErrRefreshNotFound = errors.New("refresh token no encontrado")
	ErrRefreshRevoked  = errors.New("refresh token revocado")
	ErrRefreshExpired  = errors.New("refresh token expirado")
)

// AttemptLimitError rejects a quiz submission past the attempt ceiling.
// User-facing: the message must state the exact remaining count.
type AttemptLimitError struct {
	MaxIntentos int
	Restantes   int
}

func (e *AttemptLimitError) Error() string {
	return fmt.Sprintf("has alcanzado el límite máximo de %d intentos (restantes: %d)", e.MaxIntentos, e.Restantes)
}

func IsAttemptLimit(err error) bool {
	var ale *AttemptLimitError
	return errors.As(err, &ale)
}
