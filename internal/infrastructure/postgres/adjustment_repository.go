package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.AdjustmentRepository = (*AdjustmentRepo)(nil)

// AdjustmentRepo devoluciones y anulaciones sobre PostgreSQL. Solo inserción.
type AdjustmentRepo struct {
	q Querier
}

// NewAdjustmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewAdjustmentRepository(q Querier) *AdjustmentRepo {
	return &AdjustmentRepo{q: q}
}

// Create persiste el ajuste y sus líneas.
func (r *AdjustmentRepo) Create(ctx context.Context, a *entity.Adjustment) error {
	_, err := r.q.Exec(ctx, `INSERT INTO adjustments (id, sale_id, type, created_at) VALUES ($1, $2, $3, $4)`,
		a.ID, a.SaleID, a.Type, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	for i := range a.Lines {
		l := &a.Lines[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		_, err := r.q.Exec(ctx, `
			INSERT INTO adjustment_lines (id, adjustment_id, sale_line_id, product_id, quantity)
			VALUES ($1, $2, $3, $4, $5)`,
			l.ID, a.ID, l.SaleLineID, l.ProductID, l.Quantity)
		if err != nil {
			return fmt.Errorf("insert adjustment line: %w", err)
		}
	}
	return nil
}

// ListBySale ajustes de una venta en orden cronológico.
func (r *AdjustmentRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.Adjustment, error) {
	return r.ListBySales(ctx, []string{saleID})
}

// ListBySales ajustes de varias ventas en orden cronológico.
func (r *AdjustmentRepo) ListBySales(ctx context.Context, saleIDs []string) ([]*entity.Adjustment, error) {
	rows, err := r.q.Query(ctx, `
		SELECT a.id, a.sale_id, a.type, a.created_at, al.id, al.sale_line_id, al.product_id, al.quantity
		FROM adjustments a
		LEFT JOIN adjustment_lines al ON al.adjustment_id = a.id
		WHERE a.sale_id = ANY($1)
		ORDER BY a.created_at, a.id, al.id`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Adjustment, 0)
	byID := make(map[string]*entity.Adjustment)
	for rows.Next() {
		var a entity.Adjustment
		var lineID, saleLineID, productID *string
		var qty *int64
		if err := rows.Scan(&a.ID, &a.SaleID, &a.Type, &a.CreatedAt, &lineID, &saleLineID, &productID, &qty); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		cur, ok := byID[a.ID]
		if !ok {
			cur = &a
			byID[a.ID] = cur
			list = append(list, cur)
		}
		if lineID != nil {
			cur.Lines = append(cur.Lines, entity.AdjustmentLine{
				ID:           *lineID,
				AdjustmentID: cur.ID,
				SaleLineID:   derefStr(saleLineID),
				ProductID:    derefStr(productID),
				Quantity:     *qty,
			})
		}
	}
	return list, rows.Err()
}
