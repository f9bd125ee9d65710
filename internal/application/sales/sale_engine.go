package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// CheckoutLine línea del carrito (borrador del lado del cliente).
type CheckoutLine struct {
	ProductID string
	Quantity  int64
	PayMethod string
}

// SaleEngine confirma carritos como un único lote de salidas y permite deshacer la última venta.
type SaleEngine struct {
	tx     inventory.TxRunner
	ledger *inventory.Engine
	undo   *UndoSlot
	events *inventory.Notifier
	now    func() time.Time
}

// NewSaleEngine construye el motor de ventas. undo se comparte con el AdjustmentEngine.
func NewSaleEngine(tx inventory.TxRunner, ledger *inventory.Engine, undo *UndoSlot, events *inventory.Notifier) *SaleEngine {
	return &SaleEngine{tx: tx, ledger: ledger, undo: undo, events: events, now: time.Now}
}

// Checkout descuenta el stock de todas las líneas y persiste la venta en la misma transacción.
// El precio unitario se toma del producto bloqueado, al momento del commit.
func (e *SaleEngine) Checkout(ctx context.Context, lines []CheckoutLine) (*entity.Sale, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
		}
		if l.Quantity <= 0 {
			return nil, domain.ErrInvalidQuantity
		}
	}

	saleID := uuid.New().String()
	reqs := make([]inventory.MovementRequest, 0, len(lines))
	for _, l := range lines {
		reqs = append(reqs, inventory.MovementRequest{
			ProductID: l.ProductID,
			Kind:      entity.MovementOUT,
			Quantity:  l.Quantity,
			Reason:    "venta",
			SaleID:    saleID,
		})
	}

	var (
		sale *entity.Sale
		movs []*entity.Movement
	)
	err := e.tx.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		movs, err = e.ledger.ApplyBatchInTx(ctx, repos, reqs)
		if err != nil {
			return err
		}

		sale = &entity.Sale{
			ID:        saleID,
			Status:    entity.SaleStatusOK,
			Total:     decimal.Zero,
			CreatedAt: e.now(),
			Lines:     make([]entity.SaleLine, 0, len(lines)),
		}
		for i, l := range lines {
			p, err := repos.Products().GetByID(ctx, l.ProductID)
			if err != nil {
				return err
			}
			if p == nil {
				return fmt.Errorf("%w: %s", domain.ErrProductNotFound, l.ProductID)
			}
			subtotal := p.Price.Mul(decimal.NewFromInt(l.Quantity))
			sale.Lines = append(sale.Lines, entity.SaleLine{
				ID:          uuid.New().String(),
				SaleID:      saleID,
				LineNo:      i + 1,
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    l.Quantity,
				UnitPrice:   p.Price,
				PayMethod:   payMethod(l.PayMethod),
				Subtotal:    subtotal,
			})
			sale.Total = sale.Total.Add(subtotal)
		}
		return repos.Sales().Create(ctx, sale)
	})
	if err != nil {
		return nil, err
	}

	e.undo.Arm(sale.ID, sale.CreatedAt)
	ev := inventory.NewLedgerEvent(inventory.EventSaleCompleted, movs)
	ev.SaleID = sale.ID
	e.events.Emit(ctx, ev)
	return sale, nil
}

// UndoLast revierte por completo la última venta y elimina su registro.
// Solo aplica a la venta en el slot de deshacer, todavía OK y sin ajustes.
// Los movimientos OUT e IN quedan en el log con la referencia a la venta.
func (e *SaleEngine) UndoLast(ctx context.Context, saleID string) (*entity.Sale, error) {
	ticket, ok := e.undo.take(saleID)
	if !ok {
		return nil, domain.ErrNothingToUndo
	}

	var (
		sale *entity.Sale
		movs []*entity.Movement
	)
	err := e.tx.Run(ctx, func(repos repository.TxRepos) error {
		var err error
		sale, err = repos.Sales().GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale == nil || sale.Status != entity.SaleStatusOK {
			return domain.ErrNothingToUndo
		}
		adjs, err := repos.Adjustments().ListBySale(ctx, saleID)
		if err != nil {
			return err
		}
		if len(adjs) > 0 {
			return domain.ErrNothingToUndo
		}

		reqs := make([]inventory.MovementRequest, 0, len(sale.Lines))
		for _, l := range sale.Lines {
			reqs = append(reqs, inventory.MovementRequest{
				ProductID: l.ProductID,
				Kind:      entity.MovementIN,
				Quantity:  l.Quantity,
				Reason:    "deshacer venta",
				SaleID:    saleID,
			})
		}
		if movs, err = e.ledger.ApplyBatchInTx(ctx, repos, reqs); err != nil {
			return err
		}
		return repos.Sales().Delete(ctx, saleID)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNothingToUndo) {
			e.undo.restore(ticket)
		}
		return nil, err
	}

	ev := inventory.NewLedgerEvent(inventory.EventSaleUndone, movs)
	ev.SaleID = saleID
	e.events.Emit(ctx, ev)
	return sale, nil
}

// Undoable devuelve el id de la venta que se puede deshacer ("" si no hay).
func (e *SaleEngine) Undoable() string {
	return e.undo.Current()
}

func payMethod(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if m == "" {
		return entity.PayMethodCash
	}
	return m
}
