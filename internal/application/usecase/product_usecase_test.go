package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/sales"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

type catalogFixture struct {
	store  *memory.Store
	uc     *usecase.ProductUseCase
	ledger *inventory.Engine
	sales  *sales.SaleEngine
	adjust *sales.AdjustmentEngine
}

func newCatalog(t *testing.T) *catalogFixture {
	t.Helper()
	store := memory.NewStore(time.Second)
	ledger := inventory.NewEngine(store, nil)
	undo := &sales.UndoSlot{}
	return &catalogFixture{
		store:  store,
		uc:     usecase.NewProductUseCase(store, store.Repos().Products(), ledger, nil),
		ledger: ledger,
		sales:  sales.NewSaleEngine(store, ledger, undo, nil),
		adjust: sales.NewAdjustmentEngine(store, ledger, undo, nil),
	}
}

func (f *catalogFixture) create(t *testing.T, sku, name string, stock int64) *dto.ProductResponse {
	t.Helper()
	p, err := f.uc.Create(context.Background(), dto.CreateProductRequest{
		SKU: sku, Name: name, Price: decimal.NewFromInt(1000), InitialStock: stock,
	})
	require.NoError(t, err)
	return p
}

func TestProductUseCase_CreateRegistraStockInicialComoMovimiento(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()

	p := f.create(t, "SKU-1", "Martillo", 7)
	assert.Equal(t, int64(7), p.Stock)

	movs, err := f.store.Repos().Movements().List(ctx, repository.MovementFilter{ProductID: p.ID})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementIN, movs[0].Kind)
	assert.Equal(t, "stock inicial", movs[0].Reason)

	sinStock := f.create(t, "", "Clavos", 0)
	movs, _ = f.store.Repos().Movements().List(ctx, repository.MovementFilter{ProductID: sinStock.ID})
	assert.Empty(t, movs)
}

func TestProductUseCase_CreateValidaciones(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	f.create(t, "SKU-1", "Martillo", 0)

	_, err := f.uc.Create(ctx, dto.CreateProductRequest{SKU: "SKU-1", Name: "Otro"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = f.uc.Create(ctx, dto.CreateProductRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Create(ctx, dto.CreateProductRequest{Name: "X", Price: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.uc.Create(ctx, dto.CreateProductRequest{Name: "X", InitialStock: -3})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	list, err := f.uc.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1, "ningún alta fallida debe persistir")
}

func TestProductUseCase_UpdateNoTocaStock(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	p := f.create(t, "SKU-1", "Martillo", 4)

	name := "Martillo de bola"
	price := decimal.NewFromInt(2500)
	updated, err := f.uc.Update(ctx, p.ID, dto.UpdateProductRequest{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.True(t, price.Equal(updated.Price))
	assert.Equal(t, int64(4), updated.Stock)

	_, err = f.uc.Update(ctx, "no-existe", dto.UpdateProductRequest{Name: &name})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	f.create(t, "SKU-2", "Serrucho", 0)
	dup := "SKU-2"
	_, err = f.uc.Update(ctx, p.ID, dto.UpdateProductRequest{SKU: &dup})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestProductUseCase_ListBuscaSinAcentos(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()
	f.create(t, "A1", "Cinta Métrica", 2)
	f.create(t, "A2", "Destornillador", 40)

	list, err := f.uc.List(ctx, repository.ProductFilter{Query: "METRICA"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "A1", list.Items[0].SKU)

	low, err := f.uc.List(ctx, repository.ProductFilter{LowStock: true})
	require.NoError(t, err)
	require.Len(t, low.Items, 1, "umbral por defecto 10")
	assert.Equal(t, "A1", low.Items[0].SKU)
}

func TestProductUseCase_DeleteReglas(t *testing.T) {
	f := newCatalog(t)
	ctx := context.Background()

	conStock := f.create(t, "S1", "Con stock", 3)
	assert.ErrorIs(t, f.uc.Delete(ctx, conStock.ID), domain.ErrProductInUse)

	// Venta que agota el stock: queda una línea con cantidad devolvible.
	sale, err := f.sales.Checkout(ctx, []sales.CheckoutLine{{ProductID: conStock.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.ErrorIs(t, f.uc.Delete(ctx, conStock.ID), domain.ErrProductInUse)

	// Devolver todo y volver a sacar el stock libera la referencia.
	_, err = f.adjust.ApplyReturn(ctx, sale.ID, []sales.ReturnLine{{LineID: sale.Lines[0].ID, Quantity: 3}})
	require.NoError(t, err)
	_, err = f.ledger.ManualMovement(ctx, conStock.ID, entity.MovementOUT, 3, "merma")
	require.NoError(t, err)
	require.NoError(t, f.uc.Delete(ctx, conStock.ID))

	_, err = f.uc.GetByID(ctx, conStock.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	movs, _ := f.store.Repos().Movements().List(ctx, repository.MovementFilter{ProductID: conStock.ID})
	assert.NotEmpty(t, movs, "los movimientos se conservan")

	assert.ErrorIs(t, f.uc.Delete(ctx, "no-existe"), domain.ErrProductNotFound)
}
