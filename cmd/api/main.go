package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/application/usecase"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/telemetry"
	httpRouter "github.com/jhoicas/almacen-ledger/internal/interfaces/http"
	"github.com/jhoicas/almacen-ledger/pkg/config"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Str("capacity_policy", cfg.Ledger.CapacityPolicy).
		Msg("iniciando aplicación")

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.App.Env,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("cerrar proveedor de trazas")
		}
	}()

	var deps inventory.Deps
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		log.Warn().Msg("almacenamiento en memoria: el ledger se pierde al reiniciar")
		deps = memory.New().Deps()
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.Store.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("aplicar esquema")
			}
		}
		deps = inventory.Deps{
			TxRunner:  postgres.NewTxRunner(pool),
			Stock:     postgres.NewStockRepository(pool),
			Movements: postgres.NewMovementRepository(pool),
			Products:  postgres.NewProductRepository(pool),
			Locations: postgres.NewLocationRepository(pool),
			Actors:    postgres.NewActorRepository(pool),
		}
	}

	if cfg.Ledger.BootstrapAdmin != "" {
		err := deps.Actors.Create(ctx, &entity.Actor{
			ID:        cfg.Ledger.BootstrapAdmin,
			Name:      "administrador inicial",
			Role:      entity.RoleAdministrador,
			Active:    true,
			CreatedAt: time.Now().UTC(),
		})
		if err != nil && !errors.Is(err, domain.ErrDuplicate) {
			log.Fatal().Err(err).Msg("registrar administrador inicial")
		}
	}

	engine := inventory.NewLedgerEngine(deps, inventory.Options{
		MaxAttempts:     cfg.Ledger.MaxAttempts,
		StrictCapacity:  cfg.Ledger.StrictCapacity(),
		HistoryPageSize: cfg.Ledger.HistoryPageSize,
		Logger:          log,
	})
	productUC := usecase.NewProductUseCase(deps.Products, deps.Locations)
	locationUC := usecase.NewLocationUseCase(deps.Locations)

	routerDeps := httpRouter.RouterDeps{
		Engine:     engine,
		ProductUC:  productUC,
		LocationUC: locationUC,
		JWTSecret:  cfg.JWT.Secret,
		Logger:     log,
	}
	if cfg.Redis.Enabled() {
		idem, err := cache.NewRedisIdempotencyStore(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer idem.Close()
		routerDeps.Idempotency = idem
		routerDeps.IdempotencyTTL = cfg.Redis.IdempotencyTTL
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Almacén Ledger API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, routerDeps)

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
