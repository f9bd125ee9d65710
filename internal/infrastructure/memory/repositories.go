package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/textnorm"
)

var (
	_ repository.ProductRepository    = productRepo{}
	_ repository.MovementRepository   = movementRepo{}
	_ repository.SaleRepository       = saleRepo{}
	_ repository.AdjustmentRepository = adjustmentRepo{}
)

// view devuelve la tx del repositorio o una tx auto-confirmada nueva por llamada.
func view(s *Store, t *tx) *tx {
	if t != nil {
		return t
	}
	return s.newTx(true)
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// ── Productos ─────────────────────────────────────────────────────────────────

type productRepo struct {
	s *Store
	t *tx
}

func (r productRepo) Create(_ context.Context, p *entity.Product) error {
	t := view(r.s, r.t)
	if p.SKU != "" {
		for _, o := range t.allProducts() {
			if o.SKU == p.SKU {
				return domain.ErrDuplicate
			}
		}
	}
	if t.product(p.ID) != nil {
		return domain.ErrDuplicate
	}
	cp := *p
	t.products[p.ID] = &cp
	t.created[p.ID] = true
	delete(t.deletedProducts, p.ID)
	return t.flush()
}

func (r productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	return view(r.s, r.t).product(id), nil
}

func (r productRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	for _, p := range view(r.s, r.t).allProducts() {
		if p.SKU == sku {
			return &p, nil
		}
	}
	return nil, nil
}

func (r productRepo) Update(_ context.Context, p *entity.Product) error {
	t := view(r.s, r.t)
	cur := t.product(p.ID)
	if cur == nil {
		return nil
	}
	cp := *p
	cp.Stock = cur.Stock
	cp.CreatedAt = cur.CreatedAt
	t.products[p.ID] = &cp
	return t.flush()
}

func (r productRepo) UpdateStock(_ context.Context, id string, stock int64) error {
	t := view(r.s, r.t)
	cur := t.product(id)
	if cur == nil {
		return domain.ErrProductNotFound
	}
	cur.Stock = stock
	cur.UpdatedAt = time.Now()
	t.products[id] = cur
	return t.flush()
}

func (r productRepo) LockForUpdate(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	t := view(r.s, r.t)
	keys := make([]string, 0, len(ids))
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	for _, id := range sorted {
		keys = append(keys, "p:"+id)
	}
	if err := t.lock(ctx, keys); err != nil {
		return nil, err
	}
	if t.auto {
		defer t.releaseLocks()
	}
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range sorted {
		if p := t.product(id); p != nil {
			out[id] = p
		}
	}
	return out, nil
}

func (r productRepo) List(_ context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	q := textnorm.Fold(f.Query)
	var list []*entity.Product
	for _, p := range view(r.s, r.t).allProducts() {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.LowStock && p.Stock > f.Threshold {
			continue
		}
		if q != "" && !strings.Contains(textnorm.SearchKey(p.SKU, p.Name, p.Aliases, p.Notes), q) {
			continue
		}
		p := p
		list = append(list, &p)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r productRepo) Delete(_ context.Context, id string) error {
	t := view(r.s, r.t)
	delete(t.products, id)
	delete(t.created, id)
	t.deletedProducts[id] = true
	return t.flush()
}

// ── Movimientos ───────────────────────────────────────────────────────────────

type movementRepo struct {
	s *Store
	t *tx
}

func (r movementRepo) Create(_ context.Context, m *entity.Movement) error {
	t := view(r.s, r.t)
	t.movements = append(t.movements, *m)
	return t.flush()
}

func (r movementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	all := view(r.s, r.t).allMovements()
	list := make([]*entity.Movement, 0)
	for i := len(all) - 1; i >= 0; i-- {
		m := all[i]
		if f.ProductID != "" && m.ProductID != f.ProductID {
			continue
		}
		if f.SaleID != "" && m.SaleID != f.SaleID {
			continue
		}
		list = append(list, &m)
	}
	return page(list, f.Limit, f.Offset), nil
}

func (r movementRepo) NetByProduct(_ context.Context, productIDs []string) (map[string]int64, error) {
	want := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		want[id] = true
	}
	out := make(map[string]int64)
	for _, m := range view(r.s, r.t).allMovements() {
		if len(want) > 0 && !want[m.ProductID] {
			continue
		}
		out[m.ProductID] += m.Delta()
	}
	return out, nil
}

// ── Ventas ────────────────────────────────────────────────────────────────────

type saleRepo struct {
	s *Store
	t *tx
}

func (r saleRepo) Create(_ context.Context, sale *entity.Sale) error {
	t := view(r.s, r.t)
	if t.sale(sale.ID) != nil {
		return domain.ErrDuplicate
	}
	cp := cloneSale(*sale)
	t.sales[sale.ID] = &cp
	delete(t.deletedSales, sale.ID)
	return t.flush()
}

func (r saleRepo) GetByID(_ context.Context, id string) (*entity.Sale, error) {
	return view(r.s, r.t).sale(id), nil
}

func (r saleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	t := view(r.s, r.t)
	if err := t.lock(ctx, []string{"s:" + id}); err != nil {
		return nil, err
	}
	if t.auto {
		defer t.releaseLocks()
	}
	return t.sale(id), nil
}

func (r saleRepo) MarkVoid(_ context.Context, id string, at time.Time) error {
	t := view(r.s, r.t)
	cur := t.sale(id)
	if cur == nil {
		return domain.ErrSaleNotFound
	}
	cur.Status = entity.SaleStatusVoid
	cur.VoidedAt = &at
	t.sales[id] = cur
	return t.flush()
}

func (r saleRepo) Delete(_ context.Context, id string) error {
	t := view(r.s, r.t)
	delete(t.sales, id)
	t.deletedSales[id] = true
	return t.flush()
}

func (r saleRepo) List(_ context.Context, f repository.SaleFilter) ([]*entity.Sale, error) {
	var list []*entity.Sale
	for _, s := range view(r.s, r.t).allSales() {
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.From != nil && s.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && s.CreatedAt.After(*f.To) {
			continue
		}
		s := s
		list = append(list, &s)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return page(list, f.Limit, f.Offset), nil
}

func (r saleRepo) HasOpenLines(_ context.Context, productID string) (bool, error) {
	t := view(r.s, r.t)
	adjs := t.allAdjustments()
	for _, s := range t.allSales() {
		if s.Status != entity.SaleStatusOK {
			continue
		}
		var related []*entity.Adjustment
		for i := range adjs {
			if adjs[i].SaleID == s.ID {
				related = append(related, &adjs[i])
			}
		}
		for _, l := range inventory.OpenLines(inventory.Returnable(&s, related)) {
			if l.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

// ── Ajustes ───────────────────────────────────────────────────────────────────

type adjustmentRepo struct {
	s *Store
	t *tx
}

func (r adjustmentRepo) Create(_ context.Context, a *entity.Adjustment) error {
	t := view(r.s, r.t)
	t.adjustments = append(t.adjustments, cloneAdjustment(*a))
	return t.flush()
}

func (r adjustmentRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.Adjustment, error) {
	return r.ListBySales(ctx, []string{saleID})
}

func (r adjustmentRepo) ListBySales(_ context.Context, saleIDs []string) ([]*entity.Adjustment, error) {
	want := make(map[string]bool, len(saleIDs))
	for _, id := range saleIDs {
		want[id] = true
	}
	list := make([]*entity.Adjustment, 0)
	for _, a := range view(r.s, r.t).allAdjustments() {
		if want[a.SaleID] {
			a := a
			list = append(list, &a)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}
