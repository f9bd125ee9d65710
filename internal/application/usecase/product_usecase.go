package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Umbral por defecto del filtro de stock bajo.
const defaultLowStockThreshold = 10

// ProductUseCase casos de uso del catálogo. Stock solo cambia vía movimientos del ledger.
type ProductUseCase struct {
	tx     inventory.TxRunner
	repo   repository.ProductRepository
	ledger *inventory.Engine
	events *inventory.Notifier
}

// NewProductUseCase construye el caso de uso. repo es el repositorio de lectura (fuera de transacción).
func NewProductUseCase(tx inventory.TxRunner, repo repository.ProductRepository, ledger *inventory.Engine, events *inventory.Notifier) *ProductUseCase {
	return &ProductUseCase{tx: tx, repo: repo, ledger: ledger, events: events}
}

// Create crea un producto. El stock inicial se registra como movimiento IN en la misma transacción.
func (uc *ProductUseCase) Create(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.SKU = strings.TrimSpace(in.SKU)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name requerido", domain.ErrInvalidInput)
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price no puede ser negativo", domain.ErrInvalidInput)
	}
	if in.InitialStock < 0 {
		return nil, domain.ErrInvalidQuantity
	}

	now := time.Now()
	product := &entity.Product{
		ID:        uuid.New().String(),
		SKU:       in.SKU,
		Name:      in.Name,
		Category:  strings.TrimSpace(in.Category),
		Aliases:   in.Aliases,
		Notes:     in.Notes,
		Location:  in.Location,
		Price:     in.Price,
		CreatedAt: now,
		UpdatedAt: now,
	}
	var movs []*entity.Movement
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		if product.SKU != "" {
			existing, err := repos.Products().GetBySKU(ctx, product.SKU)
			if err != nil {
				return err
			}
			if existing != nil {
				return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, product.SKU)
			}
		}
		if err := repos.Products().Create(ctx, product); err != nil {
			return err
		}
		if in.InitialStock == 0 {
			return nil
		}
		var err error
		movs, err = uc.ledger.ApplyBatchInTx(ctx, repos, []inventory.MovementRequest{{
			ProductID: product.ID,
			Kind:      entity.MovementIN,
			Quantity:  in.InitialStock,
			Reason:    "stock inicial",
		}})
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(movs) > 0 {
		product.Stock = in.InitialStock
		uc.events.Emit(ctx, inventory.NewLedgerEvent(inventory.EventStockMoved, movs))
	}
	return dto.NewProductResponse(product), nil
}

// GetByID obtiene un producto por ID.
func (uc *ProductUseCase) GetByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}
	return dto.NewProductResponse(product), nil
}

// Update actualiza atributos. No permite modificar Stock (se maneja vía movimientos).
func (uc *ProductUseCase) Update(ctx context.Context, id string, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	var product *entity.Product
	err := uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		locked, err := repos.Products().LockForUpdate(ctx, []string{id})
		if err != nil {
			return err
		}
		product = locked[id]
		if product == nil {
			return domain.ErrProductNotFound
		}
		if in.SKU != nil && strings.TrimSpace(*in.SKU) != product.SKU {
			sku := strings.TrimSpace(*in.SKU)
			if sku != "" {
				existing, err := repos.Products().GetBySKU(ctx, sku)
				if err != nil {
					return err
				}
				if existing != nil && existing.ID != id {
					return fmt.Errorf("%w: sku %s", domain.ErrDuplicate, sku)
				}
			}
			product.SKU = sku
		}
		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return fmt.Errorf("%w: name requerido", domain.ErrInvalidInput)
			}
			product.Name = name
		}
		if in.Category != nil {
			product.Category = strings.TrimSpace(*in.Category)
		}
		if in.Aliases != nil {
			product.Aliases = *in.Aliases
		}
		if in.Notes != nil {
			product.Notes = *in.Notes
		}
		if in.Location != nil {
			product.Location = *in.Location
		}
		if in.Price != nil {
			if in.Price.IsNegative() {
				return fmt.Errorf("%w: price no puede ser negativo", domain.ErrInvalidInput)
			}
			product.Price = *in.Price
		}
		product.UpdatedAt = time.Now()
		return repos.Products().Update(ctx, product)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewProductResponse(product), nil
}

// List lista productos con búsqueda sin acentos ni mayúsculas sobre sku, nombre, alias y notas.
func (uc *ProductUseCase) List(ctx context.Context, filter repository.ProductFilter) (*dto.ProductListResponse, error) {
	if filter.LowStock && filter.Threshold <= 0 {
		filter.Threshold = defaultLowStockThreshold
	}
	list, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *dto.NewProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: filter.Limit, Offset: filter.Offset},
	}, nil
}

// Delete elimina el producto si no tiene stock ni líneas de venta con cantidad devolvible.
// Los movimientos se conservan (el log es de solo inserción).
func (uc *ProductUseCase) Delete(ctx context.Context, id string) error {
	return uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		locked, err := repos.Products().LockForUpdate(ctx, []string{id})
		if err != nil {
			return err
		}
		product := locked[id]
		if product == nil {
			return domain.ErrProductNotFound
		}
		if product.Stock != 0 {
			return fmt.Errorf("%w: stock %d", domain.ErrProductInUse, product.Stock)
		}
		open, err := repos.Sales().HasOpenLines(ctx, id)
		if err != nil {
			return err
		}
		if open {
			return fmt.Errorf("%w: ventas con devoluciones pendientes", domain.ErrProductInUse)
		}
		return repos.Products().Delete(ctx, id)
	})
}
