package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// AdjustmentRepository puerto de persistencia para devoluciones y anulaciones.
type AdjustmentRepository interface {
	Create(ctx context.Context, adj *entity.Adjustment) error
	ListBySale(ctx context.Context, saleID string) ([]*entity.Adjustment, error)
	ListBySales(ctx context.Context, saleIDs []string) ([]*entity.Adjustment, error)
}
