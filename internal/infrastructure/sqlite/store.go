// Package sqlite implementa los puertos de persistencia sobre SQLite para instalaciones de un solo nodo.
//
// Cada unidad de trabajo abre BEGIN IMMEDIATE (_txlock=immediate): los escritores se serializan
// y la espera queda acotada por _busy_timeout. SQLITE_BUSY/SQLITE_LOCKED se traducen a domain.ErrBusy.
// Las fechas se guardan como TEXT UTC de ancho fijo para que el orden lexicográfico sea cronológico.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

const tsLayout = "2006-01-02T15:04:05.000000000Z"

// querier superficie común de *sql.DB y *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store persistencia SQLite.
type Store struct {
	db *sql.DB
}

// Open abre (o crea) la base en path y aplica el esquema.
func Open(path string, lockTimeout time.Duration) (*Store, error) {
	q := url.Values{}
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	q.Set("_busy_timeout", fmt.Sprint(lockTimeout.Milliseconds()))
	q.Set("_txlock", "immediate")
	db, err := sql.Open("sqlite3", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("abrir sqlite: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrar sqlite: %w", err)
	}
	return s, nil
}

// Close cierra la base.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Run ejecuta fn en una transacción IMMEDIATE y hace Commit o Rollback.
func (s *Store) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	err := s.run(ctx, fn)
	if err != nil && isBusy(err) && !errors.Is(err, domain.ErrBusy) {
		return fmt.Errorf("%w: %v", domain.ErrBusy, err)
	}
	return err
}

func (s *Store) run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(repos{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repos repositorios sobre la conexión, para lecturas fuera de transacción.
func (s *Store) Repos() repository.TxRepos {
	return repos{q: s.db}
}

type repos struct {
	q querier
}

func (r repos) Products() repository.ProductRepository       { return productRepo{q: r.q} }
func (r repos) Movements() repository.MovementRepository     { return movementRepo{q: r.q} }
func (r repos) Sales() repository.SaleRepository             { return saleRepo{q: r.q} }
func (r repos) Adjustments() repository.AdjustmentRepository { return adjustmentRepo{q: r.q} }

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func formatTime(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(tsLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("fecha inválida %q: %w", s, err)
	}
	return t, nil
}

func (s *Store) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	sku         TEXT UNIQUE,
	name        TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	aliases     TEXT NOT NULL DEFAULT '',
	notes       TEXT NOT NULL DEFAULT '',
	location    TEXT NOT NULL DEFAULT '',
	price       TEXT NOT NULL DEFAULT '0',
	stock       INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
	search_key  TEXT NOT NULL DEFAULT '',
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS products_created_idx ON products (created_at);

CREATE TABLE IF NOT EXISTS movements (
	seq            INTEGER PRIMARY KEY AUTOINCREMENT,
	id             TEXT NOT NULL UNIQUE,
	product_id     TEXT NOT NULL,
	kind           TEXT NOT NULL CHECK (kind IN ('IN', 'OUT')),
	quantity       INTEGER NOT NULL CHECK (quantity > 0),
	reason         TEXT NOT NULL DEFAULT '',
	sale_id        TEXT,
	adjustment_id  TEXT,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS movements_product_idx ON movements (product_id);
CREATE INDEX IF NOT EXISTS movements_sale_idx ON movements (sale_id);

CREATE TRIGGER IF NOT EXISTS movements_no_update BEFORE UPDATE ON movements
BEGIN
	SELECT RAISE(ABORT, 'movements es de solo inserción');
END;

CREATE TRIGGER IF NOT EXISTS movements_no_delete BEFORE DELETE ON movements
BEGIN
	SELECT RAISE(ABORT, 'movements es de solo inserción');
END;

CREATE TABLE IF NOT EXISTS sales (
	id          TEXT PRIMARY KEY,
	total       TEXT NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('OK', 'VOID')),
	created_at  TEXT NOT NULL,
	voided_at   TEXT
);

CREATE INDEX IF NOT EXISTS sales_created_idx ON sales (created_at);

CREATE TABLE IF NOT EXISTS sale_lines (
	id            TEXT PRIMARY KEY,
	sale_id       TEXT NOT NULL REFERENCES sales (id) ON DELETE CASCADE,
	line_no       INTEGER NOT NULL,
	product_id    TEXT NOT NULL,
	product_name  TEXT NOT NULL,
	quantity      INTEGER NOT NULL CHECK (quantity > 0),
	unit_price    TEXT NOT NULL,
	pay_method    TEXT NOT NULL,
	subtotal      TEXT NOT NULL,
	UNIQUE (sale_id, line_no)
);

CREATE INDEX IF NOT EXISTS sale_lines_product_idx ON sale_lines (product_id);

CREATE TABLE IF NOT EXISTS adjustments (
	id          TEXT PRIMARY KEY,
	sale_id     TEXT NOT NULL REFERENCES sales (id),
	type        TEXT NOT NULL CHECK (type IN ('RETURN', 'VOID')),
	created_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS adjustments_sale_idx ON adjustments (sale_id);

CREATE TABLE IF NOT EXISTS adjustment_lines (
	id             TEXT PRIMARY KEY,
	adjustment_id  TEXT NOT NULL REFERENCES adjustments (id) ON DELETE CASCADE,
	sale_line_id   TEXT NOT NULL REFERENCES sale_lines (id),
	product_id     TEXT NOT NULL,
	quantity       INTEGER NOT NULL CHECK (quantity > 0)
);

CREATE INDEX IF NOT EXISTS adjustment_lines_line_idx ON adjustment_lines (sale_line_id);
`
