package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/application/usecase"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine     *inventory.LedgerEngine
	ProductUC  *usecase.ProductUseCase
	LocationUC *usecase.LocationUseCase
	JWTSecret  string
	Logger     *logger.Logger

	// Opcional: sin store no se verifica Idempotency-Key.
	Idempotency    idempotencyStore
	IdempotencyTTL time.Duration
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	readers := RequireRole(domaininv.RolesFor(domaininv.OpRead)...)
	writers := RequireRole(domaininv.RolesFor(domaininv.OpRecordMovement)...)
	admins := RequireRole(entity.RoleAdministrador)

	// Todas las rutas requieren Bearer Token
	protected := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	if deps.Idempotency != nil {
		protected.Use(Idempotency(deps.Idempotency, deps.IdempotencyTTL, log))
	}

	// Ledger de inventario
	inv := protected.Group("/inventory")
	inventoryHandler := NewInventoryHandler(deps.Engine, log)
	inv.Post("/receipts", writers, inventoryHandler.RecordReceipt)
	inv.Post("/issues", writers, inventoryHandler.RecordIssue)
	inv.Post("/adjustments", writers, inventoryHandler.RecordAdjustment)
	inv.Post("/transfers", writers, inventoryHandler.Transfer)
	inv.Post("/resets", RequireRole(domaininv.RolesFor(domaininv.OpReset)...), inventoryHandler.Reset)
	inv.Get("/products/:id/quantity", readers, inventoryHandler.GetQuantity)
	inv.Get("/products/:id/status", readers, inventoryHandler.GetStatus)
	inv.Get("/products/:id/breakdown", readers, inventoryHandler.GetBreakdown)
	inv.Get("/movements", readers, inventoryHandler.ListMovements)
	inv.Get("/low-stock", readers, inventoryHandler.LowStock)
	inv.Get("/verify", admins, inventoryHandler.Verify)

	// Catálogo: productos
	products := protected.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC, log)
	products.Post("/", admins, productHandler.Create)
	products.Get("/", readers, productHandler.List)
	products.Get("/:id", readers, productHandler.GetByID)
	products.Put("/:id", admins, productHandler.Update)
	products.Delete("/:id", admins, productHandler.Deactivate)

	// Catálogo: ubicaciones
	locations := protected.Group("/locations")
	locationHandler := NewLocationHandler(deps.LocationUC, log)
	locations.Post("/", admins, locationHandler.Create)
	locations.Get("/", readers, locationHandler.List)
	locations.Get("/:id", readers, locationHandler.GetByID)
	locations.Put("/:id", admins, locationHandler.Update)
	locations.Delete("/:id", admins, locationHandler.Deactivate)
}
