package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

func TestMessage_LedgerEvent(t *testing.T) {
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	ev := inventory.NewLedgerEvent(inventory.EventSaleCompleted, []*entity.Movement{
		{ID: "m1", ProductID: "p1", Kind: entity.MovementOUT, Quantity: 2, SaleID: "s1"},
	})
	ev.SaleID = "s1"

	msg, err := message("s1", ev, at)
	require.NoError(t, err)
	assert.Equal(t, []byte("s1"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event-type", msg.Headers[0].Key)
	assert.Equal(t, inventory.EventSaleCompleted, string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, inventory.EventSaleCompleted, decoded["type"])
	assert.Equal(t, "s1", decoded["sale_id"])
}

func TestMessage_EventoNoSerializable(t *testing.T) {
	_, err := message("k", map[string]any{"ch": make(chan int)}, time.Now())
	assert.Error(t, err)
}
