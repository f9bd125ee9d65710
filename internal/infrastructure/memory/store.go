// Package memory implementa el ledger en memoria de proceso: mapas confirmados protegidos
// por RWMutex, transacciones con escrituras diferidas hasta el Commit y candados por
// producto/venta que se mantienen hasta el final de la transacción.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store estado confirmado del ledger.
type Store struct {
	mu          sync.RWMutex
	products    map[string]entity.Product
	movements   []entity.Movement
	sales       map[string]entity.Sale
	adjustments []entity.Adjustment

	locks       *lockTable
	lockTimeout time.Duration
}

// NewStore crea un store vacío. lockTimeout acota la espera por un producto o venta bloqueados.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &Store{
		products:    make(map[string]entity.Product),
		sales:       make(map[string]entity.Sale),
		locks:       newLockTable(),
		lockTimeout: lockTimeout,
	}
}

// Run ejecuta fn en una transacción: las escrituras se aplican juntas solo si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	t := s.newTx(false)
	defer t.releaseLocks()
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

// Repos devuelve repositorios fuera de transacción (cada escritura se confirma sola).
func (s *Store) Repos() repository.TxRepos {
	return autoRepos{s: s}
}

type autoRepos struct{ s *Store }

func (a autoRepos) Products() repository.ProductRepository       { return productRepo{s: a.s} }
func (a autoRepos) Movements() repository.MovementRepository     { return movementRepo{s: a.s} }
func (a autoRepos) Sales() repository.SaleRepository             { return saleRepo{s: a.s} }
func (a autoRepos) Adjustments() repository.AdjustmentRepository { return adjustmentRepo{s: a.s} }

// commit valida unicidad y aplica todas las escrituras de la tx bajo el candado de escritura.
func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, p := range t.products {
		if t.created[id] {
			if _, exists := s.products[id]; exists {
				return domain.ErrDuplicate
			}
		}
		if p.SKU == "" {
			continue
		}
		for oid, op := range s.products {
			if oid != id && op.SKU == p.SKU && !t.deletedProducts[oid] {
				return domain.ErrDuplicate
			}
		}
	}

	for id := range t.deletedProducts {
		delete(s.products, id)
	}
	for id, p := range t.products {
		s.products[id] = *p
	}
	s.movements = append(s.movements, t.movements...)
	for id := range t.deletedSales {
		delete(s.sales, id)
	}
	for id, sale := range t.sales {
		s.sales[id] = cloneSale(*sale)
	}
	for _, a := range t.adjustments {
		s.adjustments = append(s.adjustments, cloneAdjustment(a))
	}
	return nil
}

func cloneSale(s entity.Sale) entity.Sale {
	s.Lines = append([]entity.SaleLine(nil), s.Lines...)
	if s.VoidedAt != nil {
		at := *s.VoidedAt
		s.VoidedAt = &at
	}
	return s
}

func cloneAdjustment(a entity.Adjustment) entity.Adjustment {
	a.Lines = append([]entity.AdjustmentLine(nil), a.Lines...)
	return a
}
