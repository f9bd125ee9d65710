package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// MovementRequest solicitud de movimiento dentro de un lote.
type MovementRequest struct {
	ProductID    string
	Kind         string
	Quantity     int64
	Reason       string
	SaleID       string
	AdjustmentID string
}

// Engine es el único punto de mutación de stock. Bloquea cada producto del lote
// (SELECT FOR UPDATE, orden ascendente de id), valida que ningún stock quede negativo
// y escribe stock + movimientos en la misma transacción.
type Engine struct {
	tx     TxRunner
	events *Notifier
	now    func() time.Time
}

// NewEngine construye el motor del ledger.
func NewEngine(tx TxRunner, events *Notifier) *Engine {
	return &Engine{tx: tx, events: events, now: time.Now}
}

// ApplyBatch aplica el lote en su propia transacción (todo o nada).
func (e *Engine) ApplyBatch(ctx context.Context, reqs []MovementRequest) ([]*entity.Movement, error) {
	if len(reqs) == 0 {
		return []*entity.Movement{}, nil
	}
	if err := validateBatch(reqs); err != nil {
		return nil, err
	}
	var out []*entity.Movement
	err := e.tx.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		out, err = e.ApplyBatchInTx(ctx, repos, reqs)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.events.Emit(ctx, NewLedgerEvent(EventStockMoved, out))
	return out, nil
}

// ManualMovement registra una entrada o salida suelta (reposición, merma, conteo).
func (e *Engine) ManualMovement(ctx context.Context, productID, kind string, qty int64, reason string) (*entity.Movement, error) {
	movs, err := e.ApplyBatch(ctx, []MovementRequest{{
		ProductID: productID,
		Kind:      kind,
		Quantity:  qty,
		Reason:    reason,
	}})
	if err != nil {
		return nil, err
	}
	return movs[0], nil
}

// ApplyBatchInTx aplica el lote con los repositorios de la transacción del llamador
// (venta, ajuste o alta de producto). No publica eventos: lo hace el llamador tras el Commit.
func (e *Engine) ApplyBatchInTx(ctx context.Context, repos repository.TxRepos, reqs []MovementRequest) ([]*entity.Movement, error) {
	if len(reqs) == 0 {
		return []*entity.Movement{}, nil
	}
	if err := validateBatch(reqs); err != nil {
		return nil, err
	}

	ids := productIDs(reqs)
	locked, err := repos.Products().LockForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	running := make(map[string]int64, len(ids))
	for _, id := range ids {
		p, ok := locked[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
		}
		running[id] = p.Stock
	}

	// Stock acumulado: dos líneas del mismo producto consumen del mismo saldo.
	var shortages []domain.StockShortage
	for i, r := range reqs {
		next, err := inventory.NextStock(running[r.ProductID], r.Kind, r.Quantity)
		if err != nil {
			return nil, err
		}
		if next < 0 {
			shortages = append(shortages, domain.StockShortage{
				Line:      i,
				ProductID: r.ProductID,
				Requested: r.Quantity,
				Available: running[r.ProductID],
			})
			continue
		}
		running[r.ProductID] = next
	}
	if len(shortages) > 0 {
		return nil, &domain.InsufficientStockError{Shortages: shortages}
	}

	for _, id := range ids {
		if running[id] == locked[id].Stock {
			continue
		}
		if err := repos.Products().UpdateStock(ctx, id, running[id]); err != nil {
			return nil, err
		}
	}

	now := e.now()
	out := make([]*entity.Movement, 0, len(reqs))
	for _, r := range reqs {
		m := &entity.Movement{
			ID:           uuid.New().String(),
			ProductID:    r.ProductID,
			Kind:         r.Kind,
			Quantity:     r.Quantity,
			Reason:       r.Reason,
			SaleID:       r.SaleID,
			AdjustmentID: r.AdjustmentID,
			CreatedAt:    now,
		}
		if err := repos.Movements().Create(ctx, m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func validateBatch(reqs []MovementRequest) error {
	for _, r := range reqs {
		if r.ProductID == "" {
			return fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
		}
		if r.Kind != entity.MovementIN && r.Kind != entity.MovementOUT {
			return fmt.Errorf("%w: tipo %q", domain.ErrInvalidInput, r.Kind)
		}
		if r.Quantity <= 0 {
			return domain.ErrInvalidQuantity
		}
	}
	return nil
}

// productIDs devuelve los ids distintos en orden ascendente (orden global de bloqueo).
func productIDs(reqs []MovementRequest) []string {
	seen := make(map[string]struct{}, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		if _, ok := seen[r.ProductID]; ok {
			continue
		}
		seen[r.ProductID] = struct{}{}
		ids = append(ids, r.ProductID)
	}
	sort.Strings(ids)
	return ids
}
