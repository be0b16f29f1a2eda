package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	ErrInvalidQuantity   = errors.New("cantidad inválida")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrOverReceipt       = errors.New("la recepción excede la cantidad ordenada")
	ErrNegativeResult    = errors.New("el ajuste deja el lote en negativo")
	ErrLockTimeout       = errors.New("tiempo de espera agotado al bloquear la variante")
	ErrDriftDetected     = errors.New("inconsistencia detectada")
	ErrOrderClosed       = errors.New("la orden no está pendiente")
)

// ViolationError describe una mutación rechazada: qué invariante habría roto y el stock real
// en el momento del rechazo. Envuelve uno de los errores sentinela (errors.Is funciona).
type ViolationError struct {
	Err          error
	Invariant    string
	VariantID    string
	CurrentStock decimal.Decimal
	Requested    decimal.Decimal
}

// NewViolation construye un ViolationError.
func NewViolation(err error, invariant, variantID string, current, requested decimal.Decimal) *ViolationError {
	return &ViolationError{
		Err:          err,
		Invariant:    invariant,
		VariantID:    variantID,
		CurrentStock: current,
		Requested:    requested,
	}
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: %s (variante %s, stock actual %s, solicitado %s)",
		e.Err.Error(), e.Invariant, e.VariantID, e.CurrentStock.String(), e.Requested.String())
}

func (e *ViolationError) Unwrap() error { return e.Err }

// AsViolation extrae el ViolationError de una cadena de errores.
func AsViolation(err error) (*ViolationError, bool) {
	var v *ViolationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
