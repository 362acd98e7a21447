package dto

import "time"

// CreateLocationRequest entrada para crear una ubicación.
// Code vacío = se arma desde pasillo-estante-nivel.
type CreateLocationRequest struct {
	Code     string `json:"code" validate:"omitempty,max=50"`
	Aisle    string `json:"aisle" validate:"required_without=Code,max=20"`
	Shelf    string `json:"shelf" validate:"required_without=Code,max=20"`
	Level    string `json:"level" validate:"required_without=Code,max=20"`
	Capacity int64  `json:"capacity" validate:"min=0"`
}

// UpdateLocationRequest corrección parcial de una ubicación (campos nil no cambian).
// Si cambian pasillo, estante o nivel y no se envía Code, el código se rearma.
type UpdateLocationRequest struct {
	Code     *string `json:"code" validate:"omitempty,min=1,max=50"`
	Aisle    *string `json:"aisle" validate:"omitempty,min=1,max=20"`
	Shelf    *string `json:"shelf" validate:"omitempty,min=1,max=20"`
	Level    *string `json:"level" validate:"omitempty,min=1,max=20"`
	Capacity *int64  `json:"capacity" validate:"omitempty,min=0"`
}

// LocationResponse salida de una ubicación. Occupied es derivado del stock.
type LocationResponse struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Aisle     string    `json:"aisle"`
	Shelf     string    `json:"shelf"`
	Level     string    `json:"level"`
	Capacity  int64     `json:"capacity"`
	Occupied  bool      `json:"occupied"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationListResponse lista paginada de ubicaciones.
type LocationListResponse struct {
	Items []LocationResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
