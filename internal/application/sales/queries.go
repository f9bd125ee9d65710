package sales

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// QueryUseCase lecturas de ventas y ajustes para la capa de presentación.
type QueryUseCase struct {
	sales       repository.SaleRepository
	adjustments repository.AdjustmentRepository
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(sales repository.SaleRepository, adjustments repository.AdjustmentRepository) *QueryUseCase {
	return &QueryUseCase{sales: sales, adjustments: adjustments}
}

// GetSale obtiene una venta con sus líneas.
func (uc *QueryUseCase) GetSale(ctx context.Context, id string) (*entity.Sale, error) {
	sale, err := uc.sales.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.ErrSaleNotFound
	}
	return sale, nil
}

// ListSales lista ventas (más recientes primero).
func (uc *QueryUseCase) ListSales(ctx context.Context, filter repository.SaleFilter) ([]*entity.Sale, error) {
	return uc.sales.List(ctx, filter)
}

// ListAdjustments devuelve los ajustes de una venta en orden cronológico.
func (uc *QueryUseCase) ListAdjustments(ctx context.Context, saleID string) ([]*entity.Adjustment, error) {
	if _, err := uc.GetSale(ctx, saleID); err != nil {
		return nil, err
	}
	return uc.adjustments.ListBySale(ctx, saleID)
}
