package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

// fakePublisher registra los eventos publicados.
type fakePublisher struct {
	mu     sync.Mutex
	events []inventory.LedgerEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ev, ok := event.(inventory.LedgerEvent); ok {
		f.events = append(f.events, ev)
	}
	return f.err
}

func (f *fakePublisher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

func newEngine(t *testing.T) (*memory.Store, *inventory.Engine, *fakePublisher) {
	t.Helper()
	store := memory.NewStore(5 * time.Second)
	pub := &fakePublisher{}
	return store, inventory.NewEngine(store, inventory.NewNotifier(pub, zerolog.Nop())), pub
}

func seed(t *testing.T, store *memory.Store, id string, stock int64) {
	t.Helper()
	require.NoError(t, store.Repos().Products().Create(context.Background(), &entity.Product{
		ID: id, Name: "Producto " + id, Price: decimal.NewFromInt(1000), Stock: 0, CreatedAt: time.Now(),
	}))
	if stock > 0 {
		require.NoError(t, store.Run(context.Background(), func(r repository.TxRepos) error {
			if err := r.Products().UpdateStock(context.Background(), id, stock); err != nil {
				return err
			}
			return r.Movements().Create(context.Background(), &entity.Movement{
				ID: "seed-" + id, ProductID: id, Kind: entity.MovementIN, Quantity: stock, CreatedAt: time.Now(),
			})
		}))
	}
}

func stockOf(t *testing.T, store *memory.Store, id string) int64 {
	t.Helper()
	p, err := store.Repos().Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Stock
}

// assertLedgerConsistent verifica stock(p) == Σ IN - Σ OUT para los productos dados.
func assertLedgerConsistent(t *testing.T, store *memory.Store, ids ...string) {
	t.Helper()
	net, err := store.Repos().Movements().NetByProduct(context.Background(), ids)
	require.NoError(t, err)
	for _, id := range ids {
		assert.Equal(t, net[id], stockOf(t, store, id), "stock y movimientos de %s deben coincidir", id)
	}
}

func out(id string, qty int64) inventory.MovementRequest {
	return inventory.MovementRequest{ProductID: id, Kind: entity.MovementOUT, Quantity: qty}
}

func in(id string, qty int64) inventory.MovementRequest {
	return inventory.MovementRequest{ProductID: id, Kind: entity.MovementIN, Quantity: qty}
}

// ──────────────────────────────────────────────────────────────────────────────
// ApplyBatch
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_LoteVacioEsNoOp(t *testing.T) {
	_, engine, pub := newEngine(t)
	movs, err := engine.ApplyBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, movs)
	assert.Equal(t, 0, pub.count())
}

func TestApplyBatch_AplicaYRegistraMovimientos(t *testing.T) {
	store, engine, pub := newEngine(t)
	seed(t, store, "a", 10)
	seed(t, store, "b", 0)

	movs, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{
		out("a", 4),
		in("b", 7),
		out("a", 1),
	})
	require.NoError(t, err)
	require.Len(t, movs, 3)
	for _, m := range movs {
		assert.NotEmpty(t, m.ID)
		assert.False(t, m.CreatedAt.IsZero())
	}

	assert.Equal(t, int64(5), stockOf(t, store, "a"))
	assert.Equal(t, int64(7), stockOf(t, store, "b"))
	assertLedgerConsistent(t, store, "a", "b")
	assert.Equal(t, 1, pub.count(), "un evento por lote confirmado")
}

func TestApplyBatch_SinStockNoEscribeNada(t *testing.T) {
	store, engine, pub := newEngine(t)
	seed(t, store, "a", 10)
	seed(t, store, "b", 1)

	_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{
		out("a", 2),
		out("b", 3),
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, domain.StockShortage{Line: 1, ProductID: "b", Requested: 3, Available: 1}, stockErr.Shortages[0])

	assert.Equal(t, int64(10), stockOf(t, store, "a"), "la línea con stock no debe aplicarse")
	assert.Equal(t, int64(1), stockOf(t, store, "b"))
	movs, _ := store.Repos().Movements().List(context.Background(), repository.MovementFilter{ProductID: "a"})
	assert.Len(t, movs, 1, "solo el movimiento inicial de a")
	assert.Equal(t, 0, pub.count())
}

func TestApplyBatch_LineasDelMismoProductoAcumulan(t *testing.T) {
	store, engine, _ := newEngine(t)
	seed(t, store, "a", 5)

	_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{
		out("a", 3),
		out("a", 3),
	})
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(2), stockErr.Shortages[0].Available, "disponible después de la primera línea")
	assert.Equal(t, int64(5), stockOf(t, store, "a"))
}

func TestApplyBatch_ProductoInexistenteAbortaElLote(t *testing.T) {
	store, engine, _ := newEngine(t)
	seed(t, store, "a", 5)

	_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{
		in("a", 1),
		in("fantasma", 1),
	})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, int64(5), stockOf(t, store, "a"))
}

func TestApplyBatch_Validaciones(t *testing.T) {
	store, engine, _ := newEngine(t)
	seed(t, store, "a", 5)
	ctx := context.Background()

	_, err := engine.ApplyBatch(ctx, []inventory.MovementRequest{out("a", 0)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = engine.ApplyBatch(ctx, []inventory.MovementRequest{in("a", -2)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = engine.ApplyBatch(ctx, []inventory.MovementRequest{{ProductID: "a", Kind: "TRANSFER", Quantity: 1}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, int64(5), stockOf(t, store, "a"))
}

func TestApplyBatch_FalloAlPublicarNoRevierte(t *testing.T) {
	store, engine, pub := newEngine(t)
	pub.err = errors.New("broker caído")
	seed(t, store, "a", 5)

	_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{out("a", 2)})
	require.NoError(t, err)
	assert.Equal(t, int64(3), stockOf(t, store, "a"))
}

// stalledPublisher simula un broker caído: bloquea hasta que vence el contexto.
type stalledPublisher struct {
	cancelledOnEntry atomic.Bool
}

func (p *stalledPublisher) Publish(ctx context.Context, _ string, _ any) error {
	p.cancelledOnEntry.Store(ctx.Err() != nil)
	<-ctx.Done()
	return ctx.Err()
}

func TestApplyBatch_BrokerBloqueadoNoRetieneLaOperacion(t *testing.T) {
	store := memory.NewStore(5 * time.Second)
	pub := &stalledPublisher{}
	engine := inventory.NewEngine(store, inventory.NewNotifier(pub, zerolog.Nop()).WithTimeout(30*time.Millisecond))
	seed(t, store, "a", 5)

	// la petición ya terminó: el evento igual se intenta con su propio plazo
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := engine.ApplyBatch(ctx, []inventory.MovementRequest{out("a", 2)})
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, time.Second)
	assert.False(t, pub.cancelledOnEntry.Load())
	assert.Equal(t, int64(3), stockOf(t, store, "a"))
}

func TestManualMovement(t *testing.T) {
	store, engine, _ := newEngine(t)
	seed(t, store, "a", 0)

	m, err := engine.ManualMovement(context.Background(), "a", entity.MovementIN, 12, "reposición")
	require.NoError(t, err)
	assert.Equal(t, "reposición", m.Reason)
	assert.Equal(t, int64(12), stockOf(t, store, "a"))

	_, err = engine.ManualMovement(context.Background(), "a", entity.MovementOUT, 13, "merma")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyBatch_ConcurrenteNuncaDejaStockNegativo(t *testing.T) {
	store, engine, _ := newEngine(t)
	seed(t, store, "a", 30)
	seed(t, store, "b", 1000)

	var ok, rejected atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{out("b", 1), out("a", 1)})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(30), ok.Load())
	assert.Equal(t, int64(30), rejected.Load())
	assert.Equal(t, int64(0), stockOf(t, store, "a"))
	assert.Equal(t, int64(970), stockOf(t, store, "b"))
	assertLedgerConsistent(t, store, "a", "b")
}

func TestApplyBatch_OrdenOpuestoNoSeBloquea(t *testing.T) {
	store, engine, _ := newEngine(t)
	seed(t, store, "a", 100)
	seed(t, store, "b", 100)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{out("a", 1), in("b", 1)})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{out("b", 1), in("a", 1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(100), stockOf(t, store, "a"))
	assert.Equal(t, int64(100), stockOf(t, store, "b"))
	assertLedgerConsistent(t, store, "a", "b")
}

// ──────────────────────────────────────────────────────────────────────────────
// Reconcile
// ──────────────────────────────────────────────────────────────────────────────

func TestReconcile(t *testing.T) {
	store, engine, _ := newEngine(t)
	seed(t, store, "a", 10)
	seed(t, store, "b", 4)
	_, err := engine.ApplyBatch(context.Background(), []inventory.MovementRequest{out("a", 3)})
	require.NoError(t, err)

	repos := store.Repos()
	uc := inventory.NewReconcileUseCase(store, repos.Products(), repos.Movements())

	diffs, err := uc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, diffs)

	// Escritura directa fuera del ledger
	require.NoError(t, repos.Products().UpdateStock(context.Background(), "b", 9))
	diffs, err = uc.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, diffs, 1)
	assert.Equal(t, "b", diffs[0].ProductID)
	assert.Equal(t, int64(9), diffs[0].Stock)
	assert.Equal(t, int64(4), diffs[0].Ledger)
}
