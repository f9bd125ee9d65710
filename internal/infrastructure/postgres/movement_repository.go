package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo log de movimientos sobre PostgreSQL. Un trigger impide UPDATE y DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create agrega un movimiento al log.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO movements (id, product_id, kind, quantity, reason, sale_id, adjustment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.Kind, m.Quantity, m.Reason,
		nullIfEmpty(m.SaleID), nullIfEmpty(m.AdjustmentID), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

// List lista movimientos, más recientes primero.
func (r *MovementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `
		SELECT id, product_id, kind, quantity, reason, sale_id, adjustment_id, created_at
		FROM movements WHERE TRUE`
	var args []any
	pos := 1
	if f.ProductID != "" {
		query += fmt.Sprintf(" AND product_id = $%d", pos)
		args = append(args, f.ProductID)
		pos++
	}
	if f.SaleID != "" {
		query += fmt.Sprintf(" AND sale_id = $%d", pos)
		args = append(args, f.SaleID)
		pos++
	}
	query += fmt.Sprintf(" ORDER BY seq DESC LIMIT NULLIF($%d, 0) OFFSET $%d", pos, pos+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Movement, 0)
	for rows.Next() {
		var m entity.Movement
		var saleID, adjID *string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.Reason, &saleID, &adjID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.SaleID, m.AdjustmentID = derefStr(saleID), derefStr(adjID)
		list = append(list, &m)
	}
	return list, rows.Err()
}

// NetByProduct devuelve Σ IN - Σ OUT por producto. productIDs vacío = todos.
func (r *MovementRepo) NetByProduct(ctx context.Context, productIDs []string) (map[string]int64, error) {
	query := `
		SELECT product_id, COALESCE(SUM(CASE WHEN kind = 'IN' THEN quantity ELSE -quantity END), 0)::BIGINT
		FROM movements`
	var args []any
	if len(productIDs) > 0 {
		query += ` WHERE product_id = ANY($1)`
		args = append(args, productIDs)
	}
	query += ` GROUP BY product_id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("net by product: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int64)
	for rows.Next() {
		var id string
		var net int64
		if err := rows.Scan(&id, &net); err != nil {
			return nil, fmt.Errorf("scan net: %w", err)
		}
		out[id] = net
	}
	return out, rows.Err()
}
