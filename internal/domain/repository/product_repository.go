package repository

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ProductFilter criterios de listado del catálogo.
type ProductFilter struct {
	Query     string // búsqueda sin acentos ni mayúsculas sobre sku, nombre, alias y notas
	Category  string
	LowStock  bool
	Threshold int64 // con LowStock: stock <= Threshold
	Limit     int   // 0 = sin límite
	Offset    int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// Update modifica atributos; nunca el stock.
	Update(ctx context.Context, product *entity.Product) error
	UpdateStock(ctx context.Context, id string, stock int64) error
	// LockForUpdate bloquea los productos en orden ascendente de id hasta el fin de la transacción.
	// Los ids inexistentes simplemente no aparecen en el mapa.
	LockForUpdate(ctx context.Context, ids []string) (map[string]*entity.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*entity.Product, error)
	Delete(ctx context.Context, id string) error
}
