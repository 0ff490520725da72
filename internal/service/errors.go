package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ValidationError marca errores de entrada; los handlers responden 400 con su mensaje.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(format string, args ...any) error {
	return &ValidationError{Err: fmt.Errorf(format, args...)}
}

func invalidErr(err error) error {
	return &ValidationError{Err: err}
}

var (
	ErrDebtorNotFound      = errors.New("Deudor no encontrado")
	ErrDatasetNotFound     = errors.New("Dataset no encontrado")
	ErrCustomFieldNotFound = errors.New("Campo personalizado no encontrado")
	ErrStrategyNotFound    = errors.New("Estrategia no encontrada")
	ErrBotNotFound         = errors.New("Bot no encontrado")
	ErrCampaignNotFound    = errors.New("Campaña no encontrada")
	ErrLLMUnavailable      = errors.New("No se pudo generar el mensaje con el LLM")
)

// notFound traduce pgx.ErrNoRows al sentinel del recurso.
func notFound(err, sentinel error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return sentinel
	}
	return err
}

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// normalizePage aplica el límite por defecto y valida los rangos.
func normalizePage(skip, limit int) (int, int, error) {
	if skip < 0 {
		return 0, 0, invalid("skip debe ser mayor o igual a 0")
	}
	if limit == 0 {
		limit = defaultPageLimit
	}
	if limit < 0 || limit > maxPageLimit {
		return 0, 0, invalid("limit debe estar entre 1 y %d", maxPageLimit)
	}
	return skip, limit, nil
}
