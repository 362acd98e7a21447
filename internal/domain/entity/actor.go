package entity

import "time"

// Roles aceptados como etiqueta del llamador.
const (
	RoleAlmacenero    = "almacenero"
	RoleAdministrador = "administrador"
	RoleConsultor     = "consultor"
)

// Actor es quien ejecuta un movimiento (usuario de bodega, proceso de pedidos, etc.).
type Actor struct {
	ID        string
	Name      string
	Role      string
	Active    bool
	CreatedAt time.Time
}

// ValidRole indica si el rol pertenece al vocabulario cerrado.
func ValidRole(role string) bool {
	switch role {
	case RoleAlmacenero, RoleAdministrador, RoleConsultor:
		return true
	}
	return false
}
