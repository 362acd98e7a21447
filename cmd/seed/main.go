// seed importa el catálogo y el stock inicial desde la exportación CSV de la aplicación
// de escritorio (columnas sku;nombre;categoria;unidad;precio;stock_minimo;ubicacion;cantidad).
//
// Uso: go run ./cmd/seed [-utf8] [-actor <id>] ruta/inventario.csv
// Por defecto el archivo se lee como ISO-8859-1. El stock entra como recepciones firmadas por
// el actor indicado, que se registra como administrador si no existe.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/almacen-ledger/pkg/config"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

func main() {
	utf8 := flag.Bool("utf8", false, "el archivo ya está en UTF-8")
	actorID := flag.String("actor", "seed", "actor que firma las recepciones")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Uso: seed [-utf8] [-actor id] archivo.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel}).Component("seed")

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("aplicar esquema")
	}

	deps := inventory.Deps{
		TxRunner:  postgres.NewTxRunner(pool),
		Stock:     postgres.NewStockRepository(pool),
		Movements: postgres.NewMovementRepository(pool),
		Products:  postgres.NewProductRepository(pool),
		Locations: postgres.NewLocationRepository(pool),
		Actors:    postgres.NewActorRepository(pool),
	}
	err = deps.Actors.Create(ctx, &entity.Actor{
		ID: *actorID, Name: "carga inicial", Role: entity.RoleAdministrador, Active: true, CreatedAt: time.Now().UTC(),
	})
	if err != nil && !errors.Is(err, domain.ErrDuplicate) {
		log.Fatal().Err(err).Msg("registrar actor de carga")
	}

	im := &importer{
		engine:    inventory.NewLedgerEngine(deps, inventory.Options{Logger: log}),
		products:  deps.Products,
		locations: deps.Locations,
		caller:    inventory.Caller{ActorID: *actorID, Role: entity.RoleAdministrador},
		log:       log,
	}
	var r io.Reader = f
	if !*utf8 {
		r = latin1Reader(f)
	}
	sum, err := im.Run(ctx, r)
	if err != nil {
		log.Fatal().Err(err).Msg("importación interrumpida")
	}
	log.Info().
		Int("rows", sum.Rows).
		Int("products_created", sum.ProductsCreated).
		Int("locations_created", sum.LocationsCreated).
		Int("receipts", sum.ReceiptsRecorded).
		Int("skipped", sum.Skipped).
		Msg("importación terminada")
}
