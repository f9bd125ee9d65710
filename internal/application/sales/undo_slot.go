package sales

import (
	"sync"
	"time"
)

// UndoSlot guarda la única venta que se puede deshacer: la más reciente sin ajustes.
// Cualquier devolución o anulación la limpia; cada checkout más nuevo la reemplaza.
type UndoSlot struct {
	mu     sync.Mutex
	saleID string
	at     time.Time // fecha de la venta en el slot
	last   time.Time // venta más reciente vista, aunque el slot se haya limpiado
	gen    uint64
}

// Arm registra una venta confirmada. Un checkout más lento que termina después
// de uno más nuevo no lo desplaza.
func (u *UndoSlot) Arm(saleID string, createdAt time.Time) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if createdAt.Before(u.last) {
		return
	}
	u.saleID, u.at, u.last = saleID, createdAt, createdAt
	u.gen++
}

// Clear deja el slot vacío.
func (u *UndoSlot) Clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.saleID = ""
	u.gen++
}

// Current devuelve la venta deshacible ("" si no hay).
func (u *UndoSlot) Current() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.saleID
}

type undoTicket struct {
	saleID string
	at     time.Time
	gen    uint64
}

// take vacía el slot si contiene saleID.
func (u *UndoSlot) take(saleID string) (undoTicket, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if saleID == "" || u.saleID != saleID {
		return undoTicket{}, false
	}
	u.saleID = ""
	u.gen++
	return undoTicket{saleID: saleID, at: u.at, gen: u.gen}, true
}

// restore devuelve la venta al slot solo si nada lo tocó desde take.
func (u *UndoSlot) restore(t undoTicket) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.gen == t.gen {
		u.saleID, u.at = t.saleID, t.at
	}
}
