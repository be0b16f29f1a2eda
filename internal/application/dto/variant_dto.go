package dto

import "time"

// CreateVariantRequest entrada para crear una variante. El SKU no se puede cambiar después.
type CreateVariantRequest struct {
	SKU  string `json:"sku" validate:"required,min=1,max=100"`
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// VariantResponse salida de una variante (sin stock: se consulta en /stock).
type VariantResponse struct {
	ID        string    `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// VariantListResponse lista paginada de variantes.
type VariantListResponse struct {
	Items []VariantResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
