package memory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// tx vista transaccional: lee lo confirmado más lo propio y difiere escrituras al commit.
// auto=true confirma cada escritura al momento (repositorios fuera de transacción).
type tx struct {
	s    *Store
	auto bool

	held    []string
	heldSet map[string]bool

	products        map[string]*entity.Product
	created         map[string]bool
	deletedProducts map[string]bool
	movements       []entity.Movement
	sales           map[string]*entity.Sale
	deletedSales    map[string]bool
	adjustments     []entity.Adjustment
}

func (s *Store) newTx(auto bool) *tx {
	t := &tx{s: s, auto: auto, heldSet: make(map[string]bool)}
	t.reset()
	return t
}

func (t *tx) reset() {
	t.products = make(map[string]*entity.Product)
	t.created = make(map[string]bool)
	t.deletedProducts = make(map[string]bool)
	t.movements = nil
	t.sales = make(map[string]*entity.Sale)
	t.deletedSales = make(map[string]bool)
	t.adjustments = nil
}

// flush confirma de inmediato en modo auto.
func (t *tx) flush() error {
	if !t.auto {
		return nil
	}
	defer t.reset()
	return t.s.commit(t)
}

func (t *tx) Products() repository.ProductRepository       { return productRepo{s: t.s, t: t} }
func (t *tx) Movements() repository.MovementRepository     { return movementRepo{s: t.s, t: t} }
func (t *tx) Sales() repository.SaleRepository             { return saleRepo{s: t.s, t: t} }
func (t *tx) Adjustments() repository.AdjustmentRepository { return adjustmentRepo{s: t.s, t: t} }

// lock toma los candados en el orden recibido; los ya tomados por esta tx se ignoran.
func (t *tx) lock(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if t.heldSet[k] {
			continue
		}
		if err := t.s.locks.acquire(ctx, k, t.s.lockTimeout); err != nil {
			return err
		}
		t.heldSet[k] = true
		t.held = append(t.held, k)
	}
	return nil
}

func (t *tx) releaseLocks() {
	for i := len(t.held) - 1; i >= 0; i-- {
		t.s.locks.release(t.held[i])
	}
	t.held = nil
	t.heldSet = make(map[string]bool)
}

// product devuelve una copia de la versión visible para la tx (nil si no existe).
func (t *tx) product(id string) *entity.Product {
	if t.deletedProducts[id] {
		return nil
	}
	if p, ok := t.products[id]; ok {
		cp := *p
		return &cp
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.products[id]
	if !ok {
		return nil
	}
	return &p
}

// allProducts vista combinada de productos confirmados y propios.
func (t *tx) allProducts() []entity.Product {
	t.s.mu.RLock()
	out := make([]entity.Product, 0, len(t.s.products)+len(t.products))
	for id, p := range t.s.products {
		if t.deletedProducts[id] {
			continue
		}
		if _, staged := t.products[id]; staged {
			continue
		}
		out = append(out, p)
	}
	t.s.mu.RUnlock()
	for _, p := range t.products {
		out = append(out, *p)
	}
	return out
}

func (t *tx) allMovements() []entity.Movement {
	t.s.mu.RLock()
	out := make([]entity.Movement, 0, len(t.s.movements)+len(t.movements))
	out = append(out, t.s.movements...)
	t.s.mu.RUnlock()
	return append(out, t.movements...)
}

func (t *tx) sale(id string) *entity.Sale {
	if t.deletedSales[id] {
		return nil
	}
	if s, ok := t.sales[id]; ok {
		cp := cloneSale(*s)
		return &cp
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	s, ok := t.s.sales[id]
	if !ok {
		return nil
	}
	cp := cloneSale(s)
	return &cp
}

func (t *tx) allSales() []entity.Sale {
	t.s.mu.RLock()
	out := make([]entity.Sale, 0, len(t.s.sales)+len(t.sales))
	for id, s := range t.s.sales {
		if t.deletedSales[id] {
			continue
		}
		if _, staged := t.sales[id]; staged {
			continue
		}
		out = append(out, cloneSale(s))
	}
	t.s.mu.RUnlock()
	for _, s := range t.sales {
		out = append(out, cloneSale(*s))
	}
	return out
}

func (t *tx) allAdjustments() []entity.Adjustment {
	t.s.mu.RLock()
	out := make([]entity.Adjustment, 0, len(t.s.adjustments)+len(t.adjustments))
	for _, a := range t.s.adjustments {
		out = append(out, cloneAdjustment(a))
	}
	t.s.mu.RUnlock()
	for _, a := range t.adjustments {
		out = append(out, cloneAdjustment(a))
	}
	return out
}
