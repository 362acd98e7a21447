package inventory_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/inventory"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		total, minimum int64
		want           entity.StockStatus
	}{
		{0, 5, entity.StatusOutOfStock},
		{0, 0, entity.StatusOutOfStock},
		{1, 5, entity.StatusLowStock},
		{5, 5, entity.StatusLowStock},
		{6, 5, entity.StatusInStock},
		{1, 0, entity.StatusInStock},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inventory.DeriveStatus(tt.total, tt.minimum), "total=%d mínimo=%d", tt.total, tt.minimum)
	}
}

func TestAdjustmentFor(t *testing.T) {
	dir, qty, ok := inventory.AdjustmentFor(10, 13)
	assert.True(t, ok)
	assert.Equal(t, entity.DirectionIn, dir)
	assert.Equal(t, int64(3), qty)

	dir, qty, ok = inventory.AdjustmentFor(10, 4)
	assert.True(t, ok)
	assert.Equal(t, entity.DirectionOut, dir)
	assert.Equal(t, int64(6), qty)

	_, _, ok = inventory.AdjustmentFor(7, 7)
	assert.False(t, ok)
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		role string
		op   inventory.Operation
		ok   bool
	}{
		{entity.RoleAlmacenero, inventory.OpRecordMovement, true},
		{entity.RoleAlmacenero, inventory.OpReset, false},
		{entity.RoleAlmacenero, inventory.OpCatalogAdmin, false},
		{entity.RoleAdministrador, inventory.OpReset, true},
		{entity.RoleAdministrador, inventory.OpCatalogAdmin, true},
		{entity.RoleConsultor, inventory.OpRead, true},
		{entity.RoleConsultor, inventory.OpRecordMovement, false},
		{"", inventory.OpRead, false},
	}
	for _, tt := range tests {
		err := inventory.Authorize(tt.role, tt.op)
		if tt.ok {
			assert.NoError(t, err, "%s/%s", tt.role, tt.op)
		} else {
			assert.ErrorIs(t, err, domain.ErrForbidden, "%s/%s", tt.role, tt.op)
		}
	}
	assert.Equal(t, []string{entity.RoleAdministrador}, inventory.RolesFor(inventory.OpReset))
}
