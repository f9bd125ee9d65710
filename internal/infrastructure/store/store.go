// Package store abre el driver de persistencia configurado (postgres, sqlite o memory).
package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/inventario-ledger/pkg/config"
)

// Ledger lo que exponen los tres drivers: unidad de trabajo + lecturas fuera de transacción.
type Ledger interface {
	inventory.TxRunner
	Repos() repository.TxRepos
}

// Open abre el driver de cfg.Store.Driver y devuelve su función de cierre.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Ledger, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.Store.SQLitePath, cfg.Ledger.LockTimeout())
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.Store.SQLitePath).Msg("sqlite listo")
		return st, func() { _ = st.Close() }, nil
	case config.DriverMemory:
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		return memory.NewStore(cfg.Ledger.LockTimeout()), func() {}, nil
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, err
			}
			log.Info().Msg("migraciones aplicadas")
		}
		return postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout()), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("driver no soportado: %q", cfg.Store.Driver)
	}
}
