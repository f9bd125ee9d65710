package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewTxRunner construye el runner con el pool. lockTimeout acota la espera por cada lock de fila.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration) *TxRunner {
	return &TxRunner{pool: pool, lockTimeout: lockTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// La contención de locks se traduce a domain.ErrBusy.
func (r *TxRunner) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	err := r.run(ctx, fn)
	if err != nil && isBusy(err) && !errors.Is(err, domain.ErrBusy) {
		return fmt.Errorf("%w: %v", domain.ErrBusy, err)
	}
	return err
}

func (r *TxRunner) run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if r.lockTimeout > 0 {
		ms := strconv.FormatInt(r.lockTimeout.Milliseconds(), 10) + "ms"
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, ms); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err := fn(newRepos(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Repos devuelve repositorios sobre el pool, para lecturas fuera de transacción.
func (r *TxRunner) Repos() repository.TxRepos {
	return newRepos(r.pool)
}

type repos struct {
	q Querier
}

func newRepos(q Querier) repos { return repos{q: q} }

func (r repos) Products() repository.ProductRepository       { return NewProductRepository(r.q) }
func (r repos) Movements() repository.MovementRepository     { return NewMovementRepository(r.q) }
func (r repos) Sales() repository.SaleRepository             { return NewSaleRepository(r.q) }
func (r repos) Adjustments() repository.AdjustmentRepository { return NewAdjustmentRepository(r.q) }
