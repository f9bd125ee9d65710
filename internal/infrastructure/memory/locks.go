package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// lockTable candados exclusivos por clave ("p:<id>", "s:<id>") con espera acotada.
// Una entrada vive mientras alguien la tiene tomada o espera por ella.
type lockTable struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func newLockTable() *lockTable {
	return &lockTable{slots: make(map[string]*lockSlot)}
}

// ref obtiene (o crea) la entrada y registra un interesado más.
func (t *lockTable) ref(key string) *lockSlot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[key]
	if !ok {
		s = &lockSlot{ch: make(chan struct{}, 1)}
		t.slots[key] = s
	}
	s.refs++
	return s
}

func (t *lockTable) unref(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.slots[key]
	if !ok {
		return
	}
	s.refs--
	if s.refs <= 0 {
		delete(t.slots, key)
	}
}

// acquire espera el candado hasta timeout; al vencer devuelve domain.ErrBusy.
func (t *lockTable) acquire(ctx context.Context, key string, timeout time.Duration) error {
	s := t.ref(key)
	select {
	case s.ch <- struct{}{}:
		return nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case s.ch <- struct{}{}:
		return nil
	case <-timer.C:
		t.unref(key)
		return domain.ErrBusy
	case <-ctx.Done():
		t.unref(key)
		return ctx.Err()
	}
}

func (t *lockTable) release(key string) {
	t.mu.Lock()
	s, ok := t.slots[key]
	t.mu.Unlock()
	if !ok {
		return
	}
	<-s.ch
	t.unref(key)
}

// size cantidad de claves con titular o en espera.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
