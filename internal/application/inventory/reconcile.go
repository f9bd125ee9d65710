package inventory

import (
	"context"
	"sort"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// StockDiscrepancy producto cuyo stock no coincide con la suma de sus movimientos.
type StockDiscrepancy struct {
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Name      string `json:"name"`
	Stock     int64  `json:"stock"`
	Ledger    int64  `json:"ledger"`
}

// ReconcileUseCase verifica stock(p) == Σ IN - Σ OUT para todos los productos.
type ReconcileUseCase struct {
	tx        TxRunner
	products  repository.ProductRepository
	movements repository.MovementRepository
}

// NewReconcileUseCase construye el caso de uso.
func NewReconcileUseCase(tx TxRunner, products repository.ProductRepository, movements repository.MovementRepository) *ReconcileUseCase {
	return &ReconcileUseCase{tx: tx, products: products, movements: movements}
}

// Reconcile hace un barrido sin bloqueos y confirma cada diferencia con los productos
// bloqueados, para no reportar lotes que se estaban confirmando durante el barrido.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context) ([]StockDiscrepancy, error) {
	products, err := uc.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}
	net, err := uc.movements.NetByProduct(ctx, nil)
	if err != nil {
		return nil, err
	}
	var suspects []string
	for _, p := range products {
		if p.Stock != net[p.ID] {
			suspects = append(suspects, p.ID)
		}
	}
	if len(suspects) == 0 {
		return []StockDiscrepancy{}, nil
	}
	sort.Strings(suspects)

	out := []StockDiscrepancy{}
	err = uc.tx.Run(ctx, func(repos repository.TxRepos) error {
		locked, err := repos.Products().LockForUpdate(ctx, suspects)
		if err != nil {
			return err
		}
		confirmed, err := repos.Movements().NetByProduct(ctx, suspects)
		if err != nil {
			return err
		}
		for _, id := range suspects {
			p, ok := locked[id]
			if !ok {
				continue // eliminado durante el barrido
			}
			if p.Stock != confirmed[id] {
				out = append(out, StockDiscrepancy{
					ProductID: p.ID,
					SKU:       p.SKU,
					Name:      p.Name,
					Stock:     p.Stock,
					Ledger:    confirmed[id],
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
