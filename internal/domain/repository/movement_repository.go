package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementFilter criterios de listado del log de movimientos.
type MovementFilter struct {
	ProductID string
	SaleID    string
	Limit     int
	Offset    int
}

// MovementRepository puerto del log de movimientos (solo inserción y lectura).
type MovementRepository interface {
	Create(ctx context.Context, m *entity.Movement) error
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// NetByProduct devuelve Σ IN - Σ OUT por producto. productIDs vacío = todos.
	NetByProduct(ctx context.Context, productIDs []string) (map[string]int64, error)
}
