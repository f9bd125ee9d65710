package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/analytics"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/sales"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func saleLine(id, method string, qty, price int64) entity.SaleLine {
	return entity.SaleLine{ID: id, Quantity: qty, UnitPrice: dec(price), PayMethod: method, Subtotal: dec(qty * price)}
}

func TestComputeEarnings_DescuentaDevolucionesYOmiteAnuladas(t *testing.T) {
	now := time.Now()
	ok := &entity.Sale{ID: "s1", Status: entity.SaleStatusOK, CreatedAt: now, Lines: []entity.SaleLine{
		saleLine("l1", "efectivo", 3, 1000),
		saleLine("l2", "tarjeta", 1, 500),
	}}
	ok2 := &entity.Sale{ID: "s2", Status: entity.SaleStatusOK, CreatedAt: now, Lines: []entity.SaleLine{
		saleLine("l3", "efectivo", 2, 200),
	}}
	void := &entity.Sale{ID: "s3", Status: entity.SaleStatusVoid, CreatedAt: now, Lines: []entity.SaleLine{
		saleLine("l4", "efectivo", 10, 1000),
	}}
	adjs := []*entity.Adjustment{
		{ID: "a1", SaleID: "s1", Type: entity.AdjustmentReturn, Lines: []entity.AdjustmentLine{{SaleLineID: "l1", Quantity: 2}}},
		{ID: "a2", SaleID: "s3", Type: entity.AdjustmentVoid, Lines: []entity.AdjustmentLine{{SaleLineID: "l4", Quantity: 10}}},
	}

	r := analytics.ComputeEarnings([]*entity.Sale{ok, ok2, void}, adjs)

	require.Len(t, r.Methods, 2)
	cash, card := r.Methods[0], r.Methods[1]
	assert.Equal(t, "efectivo", cash.PayMethod)
	assert.Equal(t, 2, cash.Sales)
	assert.True(t, dec(3400).Equal(cash.Gross), cash.Gross.String())
	assert.True(t, dec(2000).Equal(cash.Returned))
	assert.True(t, dec(1400).Equal(cash.Net))

	assert.Equal(t, "tarjeta", card.PayMethod)
	assert.True(t, dec(500).Equal(card.Net))

	assert.Equal(t, 2, r.Sales)
	assert.True(t, dec(1900).Equal(r.Net))
	assert.True(t, r.Gross.Sub(r.Returned).Equal(r.Net))
}

func TestComputeEarnings_SinVentas(t *testing.T) {
	r := analytics.ComputeEarnings(nil, nil)
	assert.Empty(t, r.Methods)
	assert.True(t, r.Net.IsZero())
}

// Las ganancias netas coinciden con Σ(vendido − devuelto) × precio sobre las ventas OK.
func TestEarnings_ReconciliaConElLedger(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore(time.Second)
	ledger := inventory.NewEngine(store, nil)
	undo := &sales.UndoSlot{}
	saleEngine := sales.NewSaleEngine(store, ledger, undo, nil)
	adjust := sales.NewAdjustmentEngine(store, ledger, undo, nil)

	for _, id := range []string{"a", "b"} {
		require.NoError(t, store.Repos().Products().Create(ctx, &entity.Product{ID: id, Name: id, Price: dec(100), CreatedAt: time.Now()}))
	}
	_, err := ledger.ApplyBatch(ctx, []inventory.MovementRequest{
		{ProductID: "a", Kind: entity.MovementIN, Quantity: 50},
		{ProductID: "b", Kind: entity.MovementIN, Quantity: 50},
	})
	require.NoError(t, err)

	s1, err := saleEngine.Checkout(ctx, []sales.CheckoutLine{{ProductID: "a", Quantity: 4}, {ProductID: "b", Quantity: 2, PayMethod: "Tarjeta"}})
	require.NoError(t, err)
	s2, err := saleEngine.Checkout(ctx, []sales.CheckoutLine{{ProductID: "a", Quantity: 5}})
	require.NoError(t, err)
	_, err = saleEngine.Checkout(ctx, []sales.CheckoutLine{{ProductID: "b", Quantity: 1, PayMethod: "transferencia"}})
	require.NoError(t, err)

	_, err = adjust.ApplyReturn(ctx, s1.ID, []sales.ReturnLine{{LineID: s1.Lines[0].ID, Quantity: 1}})
	require.NoError(t, err)
	_, err = adjust.VoidSale(ctx, s2.ID)
	require.NoError(t, err)

	repos := store.Repos()
	uc := analytics.NewEarningsUseCase(repos.Sales(), repos.Adjustments())
	r, err := uc.Earnings(ctx, "", "")
	require.NoError(t, err)

	// efectivo: (4−1)×100; tarjeta: 2×100; transferencia: 1×100
	assert.Equal(t, 2, r.Sales)
	got := map[string]string{}
	for _, m := range r.Methods {
		got[m.PayMethod] = m.Net.String()
	}
	assert.Equal(t, map[string]string{"efectivo": "300", "tarjeta": "200", "transferencia": "100"}, got)
	assert.True(t, dec(600).Equal(r.Net))
}

func TestParsePeriod(t *testing.T) {
	from, to, err := analytics.ParsePeriod("2024-03-01", "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, 1, from.Day())
	assert.Equal(t, 31, to.Day())
	assert.Equal(t, 23, to.Hour())

	from, to, err = analytics.ParsePeriod("", "")
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Nil(t, to)

	_, _, err = analytics.ParsePeriod("01/03/2024", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, _, err = analytics.ParsePeriod("2024-04-01", "2024-03-01")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
