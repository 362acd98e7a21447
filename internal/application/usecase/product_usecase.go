package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/almacen-ledger/internal/application/dto"
	"github.com/jhoicas/almacen-ledger/internal/domain"
	"github.com/jhoicas/almacen-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/almacen-ledger/internal/domain/inventory"
	"github.com/jhoicas/almacen-ledger/internal/domain/repository"
)

// ProductUseCase casos de uso del catálogo de productos. El stock nunca se toca aquí: solo vía movimientos.
type ProductUseCase struct {
	repo      repository.ProductRepository
	locations repository.LocationRepository
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, locations repository.LocationRepository) *ProductUseCase {
	return &ProductUseCase{repo: repo, locations: locations}
}

// Create crea un nuevo producto activo.
func (uc *ProductUseCase) Create(ctx context.Context, role string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if err := domaininv.Authorize(role, domaininv.OpCatalogAdmin); err != nil {
		return nil, err
	}
	sku := strings.TrimSpace(in.SKU)
	if sku == "" || strings.TrimSpace(in.Name) == "" || in.MinimumStock < 0 || in.Price.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	existing, err := uc.repo.GetBySKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicate
	}
	if err := uc.checkLocation(ctx, in.DefaultLocationID); err != nil {
		return nil, err
	}
	if in.UnitMeasure == "" {
		in.UnitMeasure = "unidad"
	}
	now := time.Now().UTC()
	product := &entity.Product{
		ID:                uuid.New().String(),
		SKU:               sku,
		Name:              strings.TrimSpace(in.Name),
		Description:       in.Description,
		Category:          in.Category,
		UnitMeasure:       in.UnitMeasure,
		Price:             in.Price,
		Supplier:          in.Supplier,
		MinimumStock:      in.MinimumStock,
		DefaultLocationID: in.DefaultLocationID,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := uc.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// GetByID obtiene un producto por ID. Devuelve nil, nil si no existe.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	return toProductResponse(product), nil
}

// Update actualiza los datos de catálogo. Devuelve nil, nil si no existe.
func (uc *ProductUseCase) Update(ctx context.Context, role, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	if err := domaininv.Authorize(role, domaininv.OpCatalogAdmin); err != nil {
		return nil, err
	}
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, nil
	}
	if in.SKU != nil {
		sku := strings.TrimSpace(*in.SKU)
		if sku == "" {
			return nil, domain.ErrInvalidInput
		}
		if sku != product.SKU {
			other, err := uc.repo.GetBySKU(ctx, sku)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, domain.ErrDuplicate
			}
		}
		product.SKU = sku
	}
	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, domain.ErrInvalidInput
		}
		product.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Category != nil {
		product.Category = *in.Category
	}
	if in.UnitMeasure != nil {
		product.UnitMeasure = *in.UnitMeasure
	}
	if in.Price != nil {
		if in.Price.IsNegative() {
			return nil, domain.ErrInvalidInput
		}
		product.Price = *in.Price
	}
	if in.Supplier != nil {
		product.Supplier = *in.Supplier
	}
	if in.MinimumStock != nil {
		if *in.MinimumStock < 0 {
			return nil, domain.ErrInvalidInput
		}
		product.MinimumStock = *in.MinimumStock
	}
	if in.DefaultLocationID != nil {
		if err := uc.checkLocation(ctx, *in.DefaultLocationID); err != nil {
			return nil, err
		}
		product.DefaultLocationID = *in.DefaultLocationID
	}
	product.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return toProductResponse(product), nil
}

// List lista productos con paginación, ordenados por SKU.
func (uc *ProductUseCase) List(ctx context.Context, onlyActive bool, limit, offset int) (*dto.ProductListResponse, error) {
	list, err := uc.repo.List(ctx, onlyActive, limit, offset)
	if err != nil {
		return nil, err
	}
	return toProductList(list, limit, offset), nil
}

// FindBySKU búsqueda exacta por SKU; la lista tiene cero o un producto.
func (uc *ProductUseCase) FindBySKU(ctx context.Context, sku string, onlyActive bool) (*dto.ProductListResponse, error) {
	var list []*entity.Product
	product, err := uc.repo.GetBySKU(ctx, strings.TrimSpace(sku))
	if err != nil {
		return nil, err
	}
	if product != nil && (product.Active || !onlyActive) {
		list = append(list, product)
	}
	return toProductList(list, 1, 0), nil
}

// SearchByName búsqueda parcial por nombre, ordenada por nombre.
func (uc *ProductUseCase) SearchByName(ctx context.Context, name string, onlyActive bool, limit, offset int) (*dto.ProductListResponse, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.ErrInvalidInput
	}
	list, err := uc.repo.SearchByName(ctx, name, onlyActive, limit, offset)
	if err != nil {
		return nil, err
	}
	return toProductList(list, limit, offset), nil
}

func toProductList(list []*entity.Product, limit, offset int) *dto.ProductListResponse {
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *toProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: limit, Offset: offset},
	}
}

// Deactivate desactiva el producto. Nunca se borra: el ledger lo sigue referenciando.
func (uc *ProductUseCase) Deactivate(ctx context.Context, role, id string) error {
	if err := domaininv.Authorize(role, domaininv.OpCatalogAdmin); err != nil {
		return err
	}
	return uc.repo.Deactivate(ctx, id)
}

func (uc *ProductUseCase) checkLocation(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	loc, err := uc.locations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if loc == nil {
		return domain.NotFound("ubicación", id)
	}
	return nil
}

func toProductResponse(p *entity.Product) *dto.ProductResponse {
	if p == nil {
		return nil
	}
	return &dto.ProductResponse{
		ID:                p.ID,
		SKU:               p.SKU,
		Name:              p.Name,
		Description:       p.Description,
		Category:          p.Category,
		UnitMeasure:       p.UnitMeasure,
		Price:             p.Price,
		Supplier:          p.Supplier,
		MinimumStock:      p.MinimumStock,
		DefaultLocationID: p.DefaultLocationID,
		Active:            p.Active,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
