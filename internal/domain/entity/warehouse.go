package entity

import "time"

// Warehouse representa una bodega donde se ubican los lotes.
type Warehouse struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
}
