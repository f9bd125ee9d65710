package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// SaleFilter criterios de listado de ventas.
type SaleFilter struct {
	From   *time.Time
	To     *time.Time
	Status string
	Limit  int
	Offset int
}

// SaleRepository define el puerto de persistencia para ventas y sus líneas.
type SaleRepository interface {
	Create(ctx context.Context, sale *entity.Sale) error
	GetByID(ctx context.Context, id string) (*entity.Sale, error)
	// GetForUpdate bloquea la venta hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Sale, error)
	MarkVoid(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter SaleFilter) ([]*entity.Sale, error)
	// HasOpenLines indica si alguna venta OK tiene unidades devolvibles del producto.
	HasOpenLines(ctx context.Context, productID string) (bool, error)
}
