package inventory

import (
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
)

// Operation acción protegida por rol.
type Operation string

const (
	OpRecordMovement Operation = "record_movement" // entradas, salidas, traslados y ajustes
	OpReset          Operation = "reset"
	OpCatalogAdmin   Operation = "catalog_admin"
	OpRead           Operation = "read"
)

var allowedRoles = map[Operation][]string{
	OpRecordMovement: {entity.RoleAlmacenero, entity.RoleAdministrador},
	OpReset:          {entity.RoleAdministrador},
	OpCatalogAdmin:   {entity.RoleAdministrador},
	OpRead:           {entity.RoleAlmacenero, entity.RoleAdministrador, entity.RoleConsultor},
}

// Authorize verifica la etiqueta de rol informada por el llamador.
func Authorize(role string, op Operation) error {
	for _, r := range allowedRoles[op] {
		if r == role {
			return nil
		}
	}
	return domain.ErrForbidden
}

// RolesFor devuelve los roles que pueden ejecutar la operación.
func RolesFor(op Operation) []string {
	return append([]string(nil), allowedRoles[op]...)
}
