package sales

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// ReturnLine cantidad a devolver de una línea de venta.
type ReturnLine struct {
	LineID   string
	Quantity int64
}

// AdjustmentEngine emite devoluciones y anulaciones como entradas compensatorias.
// Bloquea la venta antes que los productos (orden global: ventas, luego productos).
type AdjustmentEngine struct {
	tx     inventory.TxRunner
	ledger *inventory.Engine
	undo   *UndoSlot
	events *inventory.Notifier
	now    func() time.Time
}

// NewAdjustmentEngine construye el motor de ajustes.
func NewAdjustmentEngine(tx inventory.TxRunner, ledger *inventory.Engine, undo *UndoSlot, events *inventory.Notifier) *AdjustmentEngine {
	return &AdjustmentEngine{tx: tx, ledger: ledger, undo: undo, events: events, now: time.Now}
}

// VoidSale anula la venta reintegrando lo vendido menos lo ya devuelto por línea.
func (e *AdjustmentEngine) VoidSale(ctx context.Context, saleID string) (*entity.Adjustment, error) {
	var (
		adj  *entity.Adjustment
		movs []*entity.Movement
	)
	err := e.tx.Run(ctx, func(repos repository.TxRepos) error {
		sale, prior, err := lockSale(ctx, repos, saleID)
		if err != nil {
			return err
		}
		if sale.IsVoid() {
			return domain.ErrAlreadyVoid
		}

		now := e.now()
		adj = &entity.Adjustment{ID: uuid.New().String(), SaleID: saleID, Type: entity.AdjustmentVoid, CreatedAt: now}
		var reqs []inventory.MovementRequest
		for _, l := range domaininv.OpenLines(domaininv.Returnable(sale, prior)) {
			reqs = append(reqs, inventory.MovementRequest{
				ProductID:    l.ProductID,
				Kind:         entity.MovementIN,
				Quantity:     l.Returnable,
				Reason:       "anulación de venta",
				SaleID:       saleID,
				AdjustmentID: adj.ID,
			})
			adj.Lines = append(adj.Lines, entity.AdjustmentLine{
				ID:           uuid.New().String(),
				AdjustmentID: adj.ID,
				SaleLineID:   l.LineID,
				ProductID:    l.ProductID,
				Quantity:     l.Returnable,
			})
		}
		if movs, err = e.ledger.ApplyBatchInTx(ctx, repos, reqs); err != nil {
			return err
		}
		if err := repos.Sales().MarkVoid(ctx, saleID, now); err != nil {
			return err
		}
		return repos.Adjustments().Create(ctx, adj)
	})
	if err != nil {
		return nil, err
	}
	e.afterCommit(ctx, inventory.EventSaleVoided, adj, movs)
	return adj, nil
}

// StartReturn lista las líneas con unidades devolvibles. Solo lectura.
func (e *AdjustmentEngine) StartReturn(ctx context.Context, saleID string) ([]domaininv.ReturnableLine, error) {
	var lines []domaininv.ReturnableLine
	err := e.tx.Run(ctx, func(repos repository.TxRepos) error {
		sale, err := repos.Sales().GetByID(ctx, saleID)
		if err != nil {
			return err
		}
		if sale == nil {
			return domain.ErrSaleNotFound
		}
		if sale.IsVoid() {
			return domain.ErrSaleVoided
		}
		prior, err := repos.Adjustments().ListBySale(ctx, saleID)
		if err != nil {
			return err
		}
		lines = domaininv.OpenLines(domaininv.Returnable(sale, prior))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, domain.ErrNothingToReturn
	}
	return lines, nil
}

// ApplyReturn reintegra las cantidades indicadas. Lo devolvible se recalcula con la venta
// bloqueada; cualquier línea inválida cancela toda la devolución.
func (e *AdjustmentEngine) ApplyReturn(ctx context.Context, saleID string, lines []ReturnLine) (*entity.Adjustment, error) {
	// Líneas repetidas se suman, conservando el orden de primera aparición.
	requested := make(map[string]int64, len(lines))
	order := make([]string, 0, len(lines))
	var invalid *domain.ReturnQuantityError
	if len(lines) == 0 {
		invalid = &domain.ReturnQuantityError{}
	}
	for _, l := range lines {
		if l.Quantity <= 0 && invalid == nil {
			invalid = &domain.ReturnQuantityError{LineID: l.LineID, Requested: l.Quantity}
		}
		if _, seen := requested[l.LineID]; !seen {
			order = append(order, l.LineID)
		}
		requested[l.LineID] += l.Quantity
	}

	var (
		adj  *entity.Adjustment
		movs []*entity.Movement
	)
	err := e.tx.Run(ctx, func(repos repository.TxRepos) error {
		sale, prior, err := lockSale(ctx, repos, saleID)
		if err != nil {
			return err
		}
		if sale.IsVoid() {
			return domain.ErrSaleVoided
		}
		if invalid != nil {
			return invalid
		}

		returnable := make(map[string]domaininv.ReturnableLine, len(sale.Lines))
		for _, l := range domaininv.Returnable(sale, prior) {
			returnable[l.LineID] = l
		}

		adj = &entity.Adjustment{ID: uuid.New().String(), SaleID: saleID, Type: entity.AdjustmentReturn, CreatedAt: e.now()}
		reqs := make([]inventory.MovementRequest, 0, len(order))
		for _, lineID := range order {
			qty := requested[lineID]
			l, ok := returnable[lineID]
			if !ok || qty > l.Returnable {
				return &domain.ReturnQuantityError{LineID: lineID, Requested: qty, Returnable: l.Returnable}
			}
			reqs = append(reqs, inventory.MovementRequest{
				ProductID:    l.ProductID,
				Kind:         entity.MovementIN,
				Quantity:     qty,
				Reason:       "devolución",
				SaleID:       saleID,
				AdjustmentID: adj.ID,
			})
			adj.Lines = append(adj.Lines, entity.AdjustmentLine{
				ID:           uuid.New().String(),
				AdjustmentID: adj.ID,
				SaleLineID:   lineID,
				ProductID:    l.ProductID,
				Quantity:     qty,
			})
		}
		if movs, err = e.ledger.ApplyBatchInTx(ctx, repos, reqs); err != nil {
			return err
		}
		return repos.Adjustments().Create(ctx, adj)
	})
	if err != nil {
		return nil, err
	}
	e.afterCommit(ctx, inventory.EventSaleReturned, adj, movs)
	return adj, nil
}

func (e *AdjustmentEngine) afterCommit(ctx context.Context, eventType string, adj *entity.Adjustment, movs []*entity.Movement) {
	e.undo.Clear()
	ev := inventory.NewLedgerEvent(eventType, movs)
	ev.SaleID = adj.SaleID
	ev.AdjustmentID = adj.ID
	e.events.Emit(ctx, ev)
}

// lockSale bloquea la venta y carga sus ajustes previos.
func lockSale(ctx context.Context, repos repository.TxRepos, saleID string) (*entity.Sale, []*entity.Adjustment, error) {
	sale, err := repos.Sales().GetForUpdate(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	if sale == nil {
		return nil, nil, domain.ErrSaleNotFound
	}
	prior, err := repos.Adjustments().ListBySale(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	return sale, prior, nil
}
