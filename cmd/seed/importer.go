package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/almacen-ledger/internal/application/inventory"
	"github.com/jhoicas/almacen-ledger/internal/application/usecase"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
	"github.com/jhoicas/almacen-ledger/pkg/logger"
)

// Columnas de la exportación de la aplicación de escritorio (separador ';', Latin-1).
var expectedHeader = []string{"sku", "nombre", "categoria", "unidad", "precio", "stock_minimo", "ubicacion", "cantidad"}

// importer carga catálogo y stock inicial. El stock entra como recepciones del ledger
// con referencia SEED-<sku>-<ubicación>, así que reimportar el mismo archivo no duplica.
type importer struct {
	engine    *inventory.LedgerEngine
	products  repository.ProductRepository
	locations repository.LocationRepository
	caller    inventory.Caller
	log       *logger.Logger
}

type summary struct {
	Rows             int
	ProductsCreated  int
	LocationsCreated int
	ReceiptsRecorded int
	Skipped          int
}

// latin1Reader decodifica ISO-8859-1 a UTF-8.
func latin1Reader(r io.Reader) io.Reader {
	return transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
}

func (im *importer) Run(ctx context.Context, r io.Reader) (summary, error) {
	var sum summary
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return sum, fmt.Errorf("leer encabezado: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return sum, err
	}

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return sum, nil
		}
		if err != nil {
			return sum, fmt.Errorf("línea %d: %w", line, err)
		}
		sum.Rows++
		if err := im.importRow(ctx, rec, &sum); err != nil {
			// Una cantidad distinta para una fila ya cargada no se reescribe: se corrige con un ajuste.
			var dup *domain.DuplicateReferenceError
			if errors.As(err, &dup) {
				im.log.Warn().Int("line", line).Str("movement_id", dup.MovementID).Err(err).Msg("fila ya cargada con otra cantidad")
				sum.Skipped++
				continue
			}
			if errors.Is(err, domain.ErrInvalidInput) {
				im.log.Warn().Int("line", line).Err(err).Msg("fila omitida")
				sum.Skipped++
				continue
			}
			return sum, fmt.Errorf("línea %d: %w", line, err)
		}
	}
}

func checkHeader(header []string) error {
	if len(header) < len(expectedHeader) {
		return fmt.Errorf("encabezado con %d columnas, se esperaban %d: %w", len(header), len(expectedHeader), domain.ErrInvalidInput)
	}
	for i, name := range expectedHeader {
		got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
		if got != name {
			return fmt.Errorf("columna %d: se esperaba %q y llegó %q: %w", i+1, name, got, domain.ErrInvalidInput)
		}
	}
	return nil
}

func (im *importer) importRow(ctx context.Context, rec []string, sum *summary) error {
	sku := strings.TrimSpace(rec[0])
	name := strings.TrimSpace(rec[1])
	if sku == "" || name == "" {
		return fmt.Errorf("sku y nombre son obligatorios: %w", domain.ErrInvalidInput)
	}
	price, err := parseDecimal(rec[4])
	if err != nil {
		return err
	}
	minimum, err := parseInt(rec[5])
	if err != nil {
		return err
	}
	qty, err := parseInt(rec[7])
	if err != nil {
		return err
	}

	var loc *entity.Location
	if code := strings.TrimSpace(rec[6]); code != "" {
		if loc, err = im.ensureLocation(ctx, code, sum); err != nil {
			return err
		}
	}
	product, err := im.ensureProduct(ctx, entity.Product{
		SKU:          sku,
		Name:         name,
		Category:     strings.TrimSpace(rec[2]),
		UnitMeasure:  strings.TrimSpace(rec[3]),
		Price:        price,
		MinimumStock: minimum,
	}, loc, sum)
	if err != nil {
		return err
	}
	if qty <= 0 {
		return nil
	}

	in := inventory.ReceiptInput{
		ProductID:    product.ID,
		Quantity:     qty,
		ReasonDetail: "carga inicial desde exportación",
		Caller:       im.caller,
	}
	if loc != nil {
		in.LocationID = loc.ID
		in.Reference = "SEED-" + sku + "-" + loc.Code
	} else {
		in.Reference = "SEED-" + sku
	}
	if _, err := im.engine.RecordReceipt(ctx, in); err != nil {
		return fmt.Errorf("recepción de %s: %w", sku, err)
	}
	sum.ReceiptsRecorded++
	return nil
}

func (im *importer) ensureLocation(ctx context.Context, raw string, sum *summary) (*entity.Location, error) {
	code := usecase.NormalizeCode(raw)
	existing, err := im.locations.GetByCode(ctx, code)
	if err != nil || existing != nil {
		return existing, err
	}
	parts := strings.SplitN(code, "-", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	now := time.Now().UTC()
	loc := &entity.Location{
		ID:        uuid.New().String(),
		Code:      code,
		Aisle:     parts[0],
		Shelf:     parts[1],
		Level:     parts[2],
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := im.locations.Create(ctx, loc); err != nil {
		return nil, fmt.Errorf("crear ubicación %s: %w", code, err)
	}
	sum.LocationsCreated++
	return loc, nil
}

func (im *importer) ensureProduct(ctx context.Context, p entity.Product, loc *entity.Location, sum *summary) (*entity.Product, error) {
	existing, err := im.products.GetBySKU(ctx, p.SKU)
	if err != nil || existing != nil {
		return existing, err
	}
	now := time.Now().UTC()
	p.ID = uuid.New().String()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.UnitMeasure == "" {
		p.UnitMeasure = "unidad"
	}
	if loc != nil {
		p.DefaultLocationID = loc.ID
	}
	if err := im.products.Create(ctx, &p); err != nil {
		return nil, fmt.Errorf("crear producto %s: %w", p.SKU, err)
	}
	sum.ProductsCreated++
	return &p, nil
}

// parseDecimal acepta coma decimal ("1.250,50") y punto ("1250.50").
func parseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return decimal.Zero, fmt.Errorf("precio inválido %q: %w", raw, domain.ErrInvalidInput)
	}
	return d, nil
}

func parseInt(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("entero inválido %q: %w", raw, domain.ErrInvalidInput)
	}
	return n, nil
}
