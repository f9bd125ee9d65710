package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.SaleRepository = (*SaleRepo)(nil)

// SaleRepo ventas y líneas sobre PostgreSQL.
type SaleRepo struct {
	q Querier
}

// NewSaleRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSaleRepository(q Querier) *SaleRepo {
	return &SaleRepo{q: q}
}

// Create persiste la cabecera y sus líneas.
func (r *SaleRepo) Create(ctx context.Context, s *entity.Sale) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO sales (id, total, status, created_at, voided_at)
		VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Total, s.Status, s.CreatedAt, s.VoidedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	for _, l := range s.Lines {
		_, err := r.q.Exec(ctx, `
			INSERT INTO sale_lines (id, sale_id, line_no, product_id, product_name, quantity, unit_price, pay_method, subtotal)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			l.ID, s.ID, l.LineNo, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.PayMethod, l.Subtotal,
		)
		if err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la venta con sus líneas. nil si no existe.
func (r *SaleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT id, total, status, created_at, voided_at FROM sales WHERE id = $1`, id)
}

// GetForUpdate bloquea la fila de la venta hasta el fin de la transacción.
func (r *SaleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.get(ctx, `SELECT id, total, status, created_at, voided_at FROM sales WHERE id = $1 FOR UPDATE`, id)
}

func (r *SaleRepo) get(ctx context.Context, query, id string) (*entity.Sale, error) {
	var s entity.Sale
	err := r.q.QueryRow(ctx, query, id).Scan(&s.ID, &s.Total, &s.Status, &s.CreatedAt, &s.VoidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	lines, err := r.lines(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Lines = lines[s.ID]
	return &s, nil
}

// MarkVoid cambia el estado a VOID (única transición permitida).
func (r *SaleRepo) MarkVoid(ctx context.Context, id string, at time.Time) error {
	tag, err := r.q.Exec(ctx, `UPDATE sales SET status = $2, voided_at = $3 WHERE id = $1 AND status = $4`,
		id, entity.SaleStatusVoid, at, entity.SaleStatusOK)
	if err != nil {
		return fmt.Errorf("void sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}

// Delete elimina la venta y sus líneas (ON DELETE CASCADE).
func (r *SaleRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}

// List lista ventas (más recientes primero) con sus líneas.
func (r *SaleRepo) List(ctx context.Context, f repository.SaleFilter) ([]*entity.Sale, error) {
	query := `SELECT id, total, status, created_at, voided_at FROM sales WHERE TRUE`
	var args []any
	pos := 1
	if f.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", pos)
		args = append(args, *f.From)
		pos++
	}
	if f.To != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", pos)
		args = append(args, *f.To)
		pos++
	}
	if f.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, f.Status)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT NULLIF($%d, 0) OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	list := make([]*entity.Sale, 0)
	ids := make([]string, 0)
	for rows.Next() {
		var s entity.Sale
		if err := rows.Scan(&s.ID, &s.Total, &s.Status, &s.CreatedAt, &s.VoidedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, &s)
		ids = append(ids, s.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	if len(ids) == 0 {
		return list, nil
	}
	lines, err := r.lines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, s := range list {
		s.Lines = lines[s.ID]
	}
	return list, nil
}

// HasOpenLines indica si alguna venta OK conserva unidades devolvibles del producto.
func (r *SaleRepo) HasOpenLines(ctx context.Context, productID string) (bool, error) {
	var open bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM sale_lines sl
			JOIN sales s ON s.id = sl.sale_id
			WHERE s.status = $2 AND sl.product_id = $1
			  AND sl.quantity > COALESCE((
				SELECT SUM(al.quantity)
				FROM adjustment_lines al
				JOIN adjustments a ON a.id = al.adjustment_id
				WHERE al.sale_line_id = sl.id AND a.type = $3
			  ), 0)
		)`, productID, entity.SaleStatusOK, entity.AdjustmentReturn).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("open lines: %w", err)
	}
	return open, nil
}

func (r *SaleRepo) lines(ctx context.Context, saleIDs []string) (map[string][]entity.SaleLine, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, sale_id, line_no, product_id, product_name, quantity, unit_price, pay_method, subtotal
		FROM sale_lines WHERE sale_id = ANY($1)
		ORDER BY sale_id, line_no`, saleIDs)
	if err != nil {
		return nil, fmt.Errorf("list sale lines: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]entity.SaleLine, len(saleIDs))
	for rows.Next() {
		var l entity.SaleLine
		if err := rows.Scan(&l.ID, &l.SaleID, &l.LineNo, &l.ProductID, &l.ProductName,
			&l.Quantity, &l.UnitPrice, &l.PayMethod, &l.Subtotal); err != nil {
			return nil, fmt.Errorf("scan sale line: %w", err)
		}
		out[l.SaleID] = append(out[l.SaleID], l)
	}
	return out, rows.Err()
}
