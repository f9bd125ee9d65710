package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/textnorm"
)

// scanner *sql.Row o *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// placeholders devuelve "?, ?, ..." y los args para un IN.
func placeholders(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

// limit traduce 0 (sin límite) al -1 de SQLite.
func limit(n int) int {
	if n <= 0 {
		return -1
	}
	return n
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ── Productos ─────────────────────────────────────────────────────────────────

const productColumns = `id, sku, name, category, aliases, notes, location, price, stock, created_at, updated_at`

type productRepo struct {
	q querier
}

func (r productRepo) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, category, aliases, notes, location, price, stock, search_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, nullIfEmpty(p.SKU), p.Name, p.Category, p.Aliases, p.Notes, p.Location,
		p.Price, p.Stock, searchKey(p), formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r productRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
}

func (r productRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return r.getOne(ctx, `SELECT `+productColumns+` FROM products WHERE sku = ?`, sku)
}

func (r productRepo) getOne(ctx context.Context, query string, arg any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

func (r productRepo) Update(ctx context.Context, p *entity.Product) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE products SET sku = ?, name = ?, category = ?, aliases = ?, notes = ?, location = ?,
			price = ?, search_key = ?, updated_at = ?
		WHERE id = ?`,
		nullIfEmpty(p.SKU), p.Name, p.Category, p.Aliases, p.Notes, p.Location,
		p.Price, searchKey(p), formatTime(p.UpdatedAt), p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r productRepo) UpdateStock(ctx context.Context, id string, stock int64) error {
	res, err := r.q.ExecContext(ctx, `UPDATE products SET stock = ?, updated_at = ? WHERE id = ?`,
		stock, formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

// LockForUpdate lee los productos; el lock real es el de escritura tomado por BEGIN IMMEDIATE.
func (r productRepo) LockForUpdate(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	out := make(map[string]*entity.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	ph, args := placeholders(sorted)
	rows, err := r.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id IN (`+ph+`) ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (r productRepo) List(ctx context.Context, f repository.ProductFilter) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1 = 1`
	var args []any
	if q := textnorm.Fold(f.Query); q != "" {
		query += ` AND search_key LIKE ? ESCAPE '\'`
		args = append(args, likePattern(q))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.LowStock {
		query += ` AND stock <= ?`
		args = append(args, f.Threshold)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit(f.Limit), f.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r productRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	return nil
}

func scanProduct(row scanner) (*entity.Product, error) {
	var p entity.Product
	var sku sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&p.ID, &sku, &p.Name, &p.Category, &p.Aliases, &p.Notes, &p.Location,
		&p.Price, &p.Stock, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.SKU = sku.String
	var err error
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func searchKey(p *entity.Product) string {
	return textnorm.SearchKey(p.SKU, p.Name, p.Aliases, p.Notes)
}

// ── Movimientos ───────────────────────────────────────────────────────────────

type movementRepo struct {
	q querier
}

func (r movementRepo) Create(ctx context.Context, m *entity.Movement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO movements (id, product_id, kind, quantity, reason, sale_id, adjustment_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProductID, m.Kind, m.Quantity, m.Reason,
		nullIfEmpty(m.SaleID), nullIfEmpty(m.AdjustmentID), formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create movement: %w", err)
	}
	return nil
}

func (r movementRepo) List(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT id, product_id, kind, quantity, reason, sale_id, adjustment_id, created_at FROM movements WHERE 1 = 1`
	var args []any
	if f.ProductID != "" {
		query += ` AND product_id = ?`
		args = append(args, f.ProductID)
	}
	if f.SaleID != "" {
		query += ` AND sale_id = ?`
		args = append(args, f.SaleID)
	}
	query += ` ORDER BY seq DESC LIMIT ? OFFSET ?`
	args = append(args, limit(f.Limit), f.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Movement, 0)
	for rows.Next() {
		var m entity.Movement
		var saleID, adjID sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Kind, &m.Quantity, &m.Reason, &saleID, &adjID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.SaleID, m.AdjustmentID = saleID.String, adjID.String
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}

func (r movementRepo) NetByProduct(ctx context.Context, productIDs []string) (map[string]int64, error) {
	query := `SELECT product_id, COALESCE(SUM(CASE WHEN kind = 'IN' THEN quantity ELSE -quantity END), 0) FROM movements`
	var args []any
	if len(productIDs) > 0 {
		var ph string
		ph, args = placeholders(productIDs)
		query += ` WHERE product_id IN (` + ph + `)`
	}
	query += ` GROUP BY product_id`

	rows, err := r.q.QueryContext(ctx, query, args...)
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

// ── Ventas ────────────────────────────────────────────────────────────────────

const saleColumns = `id, total, status, created_at, voided_at`

type saleRepo struct {
	q querier
}

func (r saleRepo) Create(ctx context.Context, s *entity.Sale) error {
	var voidedAt sql.NullString
	if s.VoidedAt != nil {
		voidedAt = sql.NullString{String: formatTime(*s.VoidedAt), Valid: true}
	}
	_, err := r.q.ExecContext(ctx, `INSERT INTO sales (id, total, status, created_at, voided_at) VALUES (?, ?, ?, ?, ?)`,
		s.ID, s.Total, s.Status, formatTime(s.CreatedAt), voidedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert sale: %w", err)
	}
	for _, l := range s.Lines {
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO sale_lines (id, sale_id, line_no, product_id, product_name, quantity, unit_price, pay_method, subtotal)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, s.ID, l.LineNo, l.ProductID, l.ProductName, l.Quantity, l.UnitPrice, l.PayMethod, l.Subtotal)
		if err != nil {
			return fmt.Errorf("insert sale line: %w", err)
		}
	}
	return nil
}

func (r saleRepo) GetByID(ctx context.Context, id string) (*entity.Sale, error) {
	s, err := scanSale(r.q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	lines, err := r.lines(ctx, []string{s.ID})
	if err != nil {
		return nil, err
	}
	s.Lines = lines[s.ID]
	return s, nil
}

// GetForUpdate equivale a GetByID: la transacción IMMEDIATE ya excluye a otros escritores.
func (r saleRepo) GetForUpdate(ctx context.Context, id string) (*entity.Sale, error) {
	return r.GetByID(ctx, id)
}

func (r saleRepo) MarkVoid(ctx context.Context, id string, at time.Time) error {
	res, err := r.q.ExecContext(ctx, `UPDATE sales SET status = ?, voided_at = ? WHERE id = ? AND status = ?`,
		entity.SaleStatusVoid, formatTime(at), id, entity.SaleStatusOK)
	if err != nil {
		return fmt.Errorf("void sale: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSaleNotFound
	}
	return nil
}

func (r saleRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM sales WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	return nil
}

func (r saleRepo) List(ctx context.Context, f repository.SaleFilter) ([]*entity.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE 1 = 1`
	var args []any
	if f.From != nil {
		query += ` AND created_at >= ?`
		args = append(args, formatTime(*f.From))
	}
	if f.To != nil {
		query += ` AND created_at <= ?`
		args = append(args, formatTime(*f.To))
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit(f.Limit), f.Offset)

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	list := make([]*entity.Sale, 0)
	ids := make([]string, 0)
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		list = append(list, s)
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

func (r saleRepo) HasOpenLines(ctx context.Context, productID string) (bool, error) {
	var open bool
	err := r.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM sale_lines sl
			JOIN sales s ON s.id = sl.sale_id
			WHERE s.status = ? AND sl.product_id = ?
			  AND sl.quantity > COALESCE((
				SELECT SUM(al.quantity)
				FROM adjustment_lines al
				JOIN adjustments a ON a.id = al.adjustment_id
				WHERE al.sale_line_id = sl.id AND a.type = ?
			  ), 0)
		)`, entity.SaleStatusOK, productID, entity.AdjustmentReturn).Scan(&open)
	if err != nil {
		return false, fmt.Errorf("open lines: %w", err)
	}
	return open, nil
}

func (r saleRepo) lines(ctx context.Context, saleIDs []string) (map[string][]entity.SaleLine, error) {
	ph, args := placeholders(saleIDs)
	rows, err := r.q.QueryContext(ctx, `
		SELECT id, sale_id, line_no, product_id, product_name, quantity, unit_price, pay_method, subtotal
		FROM sale_lines WHERE sale_id IN (`+ph+`)
		ORDER BY sale_id, line_no`, args...)
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

func scanSale(row scanner) (*entity.Sale, error) {
	var s entity.Sale
	var createdAt string
	var voidedAt sql.NullString
	if err := row.Scan(&s.ID, &s.Total, &s.Status, &createdAt, &voidedAt); err != nil {
		return nil, err
	}
	var err error
	if s.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if voidedAt.Valid {
		t, err := parseTime(voidedAt.String)
		if err != nil {
			return nil, err
		}
		s.VoidedAt = &t
	}
	return &s, nil
}

// ── Ajustes ───────────────────────────────────────────────────────────────────

type adjustmentRepo struct {
	q querier
}

func (r adjustmentRepo) Create(ctx context.Context, a *entity.Adjustment) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO adjustments (id, sale_id, type, created_at) VALUES (?, ?, ?, ?)`,
		a.ID, a.SaleID, a.Type, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert adjustment: %w", err)
	}
	for i := range a.Lines {
		l := &a.Lines[i]
		if l.ID == "" {
			l.ID = uuid.New().String()
		}
		_, err := r.q.ExecContext(ctx, `
			INSERT INTO adjustment_lines (id, adjustment_id, sale_line_id, product_id, quantity)
			VALUES (?, ?, ?, ?, ?)`,
			l.ID, a.ID, l.SaleLineID, l.ProductID, l.Quantity)
		if err != nil {
			return fmt.Errorf("insert adjustment line: %w", err)
		}
	}
	return nil
}

func (r adjustmentRepo) ListBySale(ctx context.Context, saleID string) ([]*entity.Adjustment, error) {
	return r.ListBySales(ctx, []string{saleID})
}

func (r adjustmentRepo) ListBySales(ctx context.Context, saleIDs []string) ([]*entity.Adjustment, error) {
	list := make([]*entity.Adjustment, 0)
	if len(saleIDs) == 0 {
		return list, nil
	}
	ph, args := placeholders(saleIDs)
	rows, err := r.q.QueryContext(ctx, `
		SELECT a.id, a.sale_id, a.type, a.created_at, al.id, al.sale_line_id, al.product_id, al.quantity
		FROM adjustments a
		LEFT JOIN adjustment_lines al ON al.adjustment_id = a.id
		WHERE a.sale_id IN (`+ph+`)
		ORDER BY a.created_at, a.id, al.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list adjustments: %w", err)
	}
	defer rows.Close()
	byID := make(map[string]*entity.Adjustment)
	for rows.Next() {
		var a entity.Adjustment
		var createdAt string
		var lineID, saleLineID, productID sql.NullString
		var qty sql.NullInt64
		if err := rows.Scan(&a.ID, &a.SaleID, &a.Type, &createdAt, &lineID, &saleLineID, &productID, &qty); err != nil {
			return nil, fmt.Errorf("scan adjustment: %w", err)
		}
		cur, ok := byID[a.ID]
		if !ok {
			if a.CreatedAt, err = parseTime(createdAt); err != nil {
				return nil, err
			}
			cur = &a
			byID[a.ID] = cur
			list = append(list, cur)
		}
		if lineID.Valid {
			cur.Lines = append(cur.Lines, entity.AdjustmentLine{
				ID:           lineID.String,
				AdjustmentID: cur.ID,
				SaleLineID:   saleLineID.String,
				ProductID:    productID.String,
				Quantity:     qty.Int64,
			})
		}
	}
	return list, rows.Err()
}
