package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	SKU               string          `json:"sku" validate:"required,min=1,max=100"`
	Name              string          `json:"name" validate:"required,min=1,max=200"`
	Description       string          `json:"description" validate:"max=1000"`
	Category          string          `json:"category" validate:"max=100"`
	UnitMeasure       string          `json:"unit_measure" validate:"max=30"`
	Price             decimal.Decimal `json:"price"`
	Supplier          string          `json:"supplier" validate:"max=200"`
	MinimumStock      int64           `json:"minimum_stock" validate:"min=0"`
	DefaultLocationID string          `json:"default_location_id,omitempty"`
}

// UpdateProductRequest entrada para actualizar un producto. El stock nunca se modifica aquí.
type UpdateProductRequest struct {
	SKU               *string          `json:"sku" validate:"omitempty,min=1,max=100"`
	Name              *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description       *string          `json:"description"`
	Category          *string          `json:"category"`
	UnitMeasure       *string          `json:"unit_measure"`
	Price             *decimal.Decimal `json:"price"`
	Supplier          *string          `json:"supplier"`
	MinimumStock      *int64           `json:"minimum_stock" validate:"omitempty,min=0"`
	DefaultLocationID *string          `json:"default_location_id"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID                string          `json:"id"`
	SKU               string          `json:"sku"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	UnitMeasure       string          `json:"unit_measure"`
	Price             decimal.Decimal `json:"price"`
	Supplier          string          `json:"supplier"`
	MinimumStock      int64           `json:"minimum_stock"`
	DefaultLocationID string          `json:"default_location_id,omitempty"`
	Active            bool            `json:"active"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
