package entity

import (
	"fmt"
	"strings"
	"time"
)

// Location representa una ubicación física (pasillo-estante-nivel).
// Occupied es derivado del stock: nunca se asigna directamente desde los casos de uso.
type Location struct {
	ID        string
	Code      string
	Aisle     string
	Shelf     string
	Level     string
	Capacity  int64 // 0 = sin límite
	Occupied  bool
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BuildLocationCode arma el código a partir de pasillo, estante y nivel (ej. "A-01-2").
func BuildLocationCode(aisle, shelf, level string) string {
	return fmt.Sprintf("%s-%s-%s",
		strings.TrimSpace(aisle), strings.TrimSpace(shelf), strings.TrimSpace(level))
}
