package entity

import "time"

// Variant representa una unidad vendible (SKU único e inmutable una vez emitido).
// No guarda stock: el stock disponible y el entrante se derivan siempre de sus lotes y órdenes.
type Variant struct {
	ID        string
	SKU       string
	Name      string
	Version   int64 // se incrementa en cada mutación confirmada (compare-and-swap)
	CreatedAt time.Time
	UpdatedAt time.Time
}
