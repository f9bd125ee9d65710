package inventory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit.
type TxRunner interface {
	Run(ctx context.Context, fn func(repos repository.TxRepos) error) error
}

// EventPublisher publica eventos del ledger después del Commit.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// NopPublisher descarta los eventos (sin broker configurado).
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
