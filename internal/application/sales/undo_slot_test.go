package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUndoSlot_CheckoutLentoNoDesplazaAlMasNuevo(t *testing.T) {
	var u UndoSlot
	t0 := time.Now()
	u.Arm("nuevo", t0.Add(time.Second))
	u.Arm("viejo", t0)
	assert.Equal(t, "nuevo", u.Current())
}

func TestUndoSlot_TakeYRestore(t *testing.T) {
	var u UndoSlot
	u.Arm("s1", time.Now())

	_, ok := u.take("otra")
	assert.False(t, ok)

	ticket, ok := u.take("s1")
	assert.True(t, ok)
	assert.Empty(t, u.Current())

	u.restore(ticket)
	assert.Equal(t, "s1", u.Current())
}

func TestUndoSlot_RestoreNoPisaUnClearPosterior(t *testing.T) {
	var u UndoSlot
	u.Arm("s1", time.Now())
	ticket, ok := u.take("s1")
	assert.True(t, ok)

	u.Clear()
	u.restore(ticket)
	assert.Empty(t, u.Current())
}
