package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

func seedProduct(t *testing.T, s *memory.Store, id, sku string, stock int64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, s.Repos().Products().Create(context.Background(), &entity.Product{
		ID: id, SKU: sku, Name: "Producto " + id, Price: decimal.NewFromInt(100), Stock: stock,
		CreatedAt: now, UpdatedAt: now,
	}))
}

func TestRun_RollbackDescartaEscrituras(t *testing.T) {
	s := memory.NewStore(time.Second)
	seedProduct(t, s, "p1", "A-1", 10)
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Run(ctx, func(r repository.TxRepos) error {
		require.NoError(t, r.Products().UpdateStock(ctx, "p1", 3))
		require.NoError(t, r.Movements().Create(ctx, &entity.Movement{ID: "m1", ProductID: "p1", Kind: entity.MovementOUT, Quantity: 7}))

		// La propia tx ve sus escrituras
		p, _ := r.Products().GetByID(ctx, "p1")
		assert.Equal(t, int64(3), p.Stock)
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Repos().Products().GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), p.Stock, "el rollback no debe tocar el stock confirmado")
	movs, _ := s.Repos().Movements().List(ctx, repository.MovementFilter{})
	assert.Empty(t, movs)
}

func TestLockForUpdate_TimeoutDevuelveBusy(t *testing.T) {
	s := memory.NewStore(50 * time.Millisecond)
	seedProduct(t, s, "p1", "A-1", 10)
	ctx := context.Background()

	locked := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = s.Run(ctx, func(r repository.TxRepos) error {
			_, err := r.Products().LockForUpdate(ctx, []string{"p1"})
			close(locked)
			<-done
			return err
		})
	}()
	<-locked

	err := s.Run(ctx, func(r repository.TxRepos) error {
		_, err := r.Products().LockForUpdate(ctx, []string{"p1"})
		return err
	})
	close(done)
	assert.ErrorIs(t, err, domain.ErrBusy)
}

func TestLockForUpdate_ReentranteEnLaMismaTx(t *testing.T) {
	s := memory.NewStore(50 * time.Millisecond)
	seedProduct(t, s, "p1", "A-1", 1)
	seedProduct(t, s, "p2", "A-2", 2)
	ctx := context.Background()

	err := s.Run(ctx, func(r repository.TxRepos) error {
		got, err := r.Products().LockForUpdate(ctx, []string{"p2", "p1"})
		require.NoError(t, err)
		assert.Len(t, got, 2)
		_, err = r.Products().LockForUpdate(ctx, []string{"p1", "missing"})
		return err
	})
	require.NoError(t, err)
}

func TestCreate_SKUDuplicado(t *testing.T) {
	s := memory.NewStore(time.Second)
	seedProduct(t, s, "p1", "A-1", 0)
	err := s.Repos().Products().Create(context.Background(), &entity.Product{ID: "p2", SKU: "A-1", Name: "otro"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductList_BusquedaSinAcentos(t *testing.T) {
	s := memory.NewStore(time.Second)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.Repos().Products().Create(ctx, &entity.Product{ID: "p1", Name: "Café de Colombia", Category: "bebidas", Stock: 3, CreatedAt: now}))
	require.NoError(t, s.Repos().Products().Create(ctx, &entity.Product{ID: "p2", Name: "Té verde", Aliases: "infusión", Category: "bebidas", Stock: 40, CreatedAt: now.Add(time.Second)}))

	found, err := s.Repos().Products().List(ctx, repository.ProductFilter{Query: "CAFE"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "p1", found[0].ID)

	found, _ = s.Repos().Products().List(ctx, repository.ProductFilter{Query: "infusion"})
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].ID)

	low, _ := s.Repos().Products().List(ctx, repository.ProductFilter{LowStock: true, Threshold: 10})
	require.Len(t, low, 1)
	assert.Equal(t, "p1", low[0].ID)

	all, _ := s.Repos().Products().List(ctx, repository.ProductFilter{Category: "bebidas", Limit: 1})
	require.Len(t, all, 1)
	assert.Equal(t, "p2", all[0].ID, "más reciente primero")
}

func TestSaleRepo_DeleteYHasOpenLines(t *testing.T) {
	s := memory.NewStore(time.Second)
	ctx := context.Background()
	sale := &entity.Sale{
		ID: "s1", Status: entity.SaleStatusOK, CreatedAt: time.Now(),
		Lines: []entity.SaleLine{{ID: "l1", SaleID: "s1", LineNo: 1, ProductID: "p1", Quantity: 2}},
	}
	require.NoError(t, s.Repos().Sales().Create(ctx, sale))

	open, err := s.Repos().Sales().HasOpenLines(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, open)

	require.NoError(t, s.Repos().Adjustments().Create(ctx, &entity.Adjustment{
		ID: "a1", SaleID: "s1", Type: entity.AdjustmentReturn, CreatedAt: time.Now(),
		Lines: []entity.AdjustmentLine{{ID: "al1", AdjustmentID: "a1", SaleLineID: "l1", ProductID: "p1", Quantity: 2}},
	}))
	open, _ = s.Repos().Sales().HasOpenLines(ctx, "p1")
	assert.False(t, open, "todo devuelto: sin referencias abiertas")

	require.NoError(t, s.Repos().Sales().Delete(ctx, "s1"))
	got, _ := s.Repos().Sales().GetByID(ctx, "s1")
	assert.Nil(t, got)
}
