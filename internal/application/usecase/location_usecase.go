package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jhoicas/almacen-ledger/internal/application/dto"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

// LocationUseCase casos de uso del registro de ubicaciones.
type LocationUseCase struct {
	repo repository.LocationRepository
}

// NewLocationUseCase construye el caso de uso.
func NewLocationUseCase(repo repository.LocationRepository) *LocationUseCase {
	return &LocationUseCase{repo: repo}
}

// NormalizeCode deja el código en mayúsculas y sin espacios alrededor ("a-01-2" -> "A-01-2").
// Un Caser no se comparte entre goroutines, por eso se crea en cada llamada.
func NormalizeCode(code string) string {
	return cases.Upper(language.Spanish).String(strings.TrimSpace(code))
}

// Create registra una ubicación. Sin código explícito se arma pasillo-estante-nivel.
// Occupied arranca en false: lo recalcula el ledger con cada movimiento.
func (uc *LocationUseCase) Create(ctx context.Context, role string, in dto.CreateLocationRequest) (*dto.LocationResponse, error) {
	if err := domaininv.Authorize(role, domaininv.OpCatalogAdmin); err != nil {
		return nil, err
	}
	if in.Capacity < 0 {
		return nil, domain.ErrInvalidInput
	}
	code := in.Code
	if strings.TrimSpace(code) == "" {
		if strings.TrimSpace(in.Aisle) == "" || strings.TrimSpace(in.Shelf) == "" || strings.TrimSpace(in.Level) == "" {
			return nil, domain.ErrInvalidInput
		}
		code = entity.BuildLocationCode(in.Aisle, in.Shelf, in.Level)
	}
	code = NormalizeCode(code)

	existing, err := uc.repo.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	now := time.Now().UTC()
	loc := &entity.Location{
		ID:        uuid.New().String(),
		Code:      code,
		Aisle:     strings.TrimSpace(in.Aisle),
		Shelf:     strings.TrimSpace(in.Shelf),
		Level:     strings.TrimSpace(in.Level),
		Capacity:  in.Capacity,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, loc); err != nil {
		return nil, err
	}
	return toLocationResponse(loc), nil
}

// GetByID obtiene una ubicación. Devuelve nil, nil si no existe.
func (uc *LocationUseCase) GetByID(ctx context.Context, id string) (*dto.LocationResponse, error) {
	loc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, nil
	}
	return toLocationResponse(loc), nil
}

// List lista ubicaciones por código ascendente.
func (uc *LocationUseCase) List(ctx context.Context, limit, offset int) (*dto.LocationListResponse, error) {
	list, err := uc.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *toLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}, nil
}

// ListAvailable ubicaciones activas que todavía admiten stock (sin ocupar, sin tope o con espacio).
func (uc *LocationUseCase) ListAvailable(ctx context.Context) (*dto.LocationListResponse, error) {
	list, err := uc.repo.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]dto.LocationResponse, 0, len(list))
	for _, l := range list {
		items = append(items, *toLocationResponse(l))
	}
	return &dto.LocationListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: len(items)},
	}, nil
}

// Update corrige código, pasillo, estante, nivel o capacidad. Devuelve nil, nil si no existe.
// Bajar la capacidad por debajo del stock actual no mueve nada: solo limita entradas futuras.
func (uc *LocationUseCase) Update(ctx context.Context, role, id string, in dto.UpdateLocationRequest) (*dto.LocationResponse, error) {
	if err := domaininv.Authorize(role, domaininv.OpCatalogAdmin); err != nil {
		return nil, err
	}
	loc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, nil
	}

	partsChanged := false
	for _, f := range []struct {
		in  *string
		out *string
	}{{in.Aisle, &loc.Aisle}, {in.Shelf, &loc.Shelf}, {in.Level, &loc.Level}} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return nil, domain.ErrInvalidInput
		}
		if v != *f.out {
			*f.out = v
			partsChanged = true
		}
	}
	if in.Capacity != nil {
		if *in.Capacity < 0 {
			return nil, domain.ErrInvalidInput
		}
		loc.Capacity = *in.Capacity
	}

	code := loc.Code
	switch {
	case in.Code != nil:
		if strings.TrimSpace(*in.Code) == "" {
			return nil, domain.ErrInvalidInput
		}
		code = NormalizeCode(*in.Code)
	case partsChanged:
		code = NormalizeCode(entity.BuildLocationCode(loc.Aisle, loc.Shelf, loc.Level))
	}
	if code != loc.Code {
		other, err := uc.repo.GetByCode(ctx, code)
		if err != nil {
			return nil, err
		}
		if other != nil {
			return nil, domain.ErrDuplicate
		}
		loc.Code = code
	}

	loc.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, loc); err != nil {
		return nil, err
	}
	return toLocationResponse(loc), nil
}

// Deactivate saca la ubicación del registro activo: deja de recibir entradas y de ser
// candidata por defecto, pero su stock puede seguir saliendo.
func (uc *LocationUseCase) Deactivate(ctx context.Context, role, id string) error {
	if err := domaininv.Authorize(role, domaininv.OpCatalogAdmin); err != nil {
		return err
	}
	return uc.repo.Deactivate(ctx, id)
}

func toLocationResponse(l *entity.Location) *dto.LocationResponse {
	return &dto.LocationResponse{
		ID:        l.ID,
		Code:      l.Code,
		Aisle:     l.Aisle,
		Shelf:     l.Shelf,
		Level:     l.Level,
		Capacity:  l.Capacity,
		Occupied:  l.Occupied,
		Active:    l.Active,
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
