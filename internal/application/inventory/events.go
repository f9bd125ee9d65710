package inventory

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Tipos de evento publicados tras el Commit.
const (
	EventStockMoved    = "stock.moved"
	EventSaleCompleted = "sale.completed"
	EventSaleUndone    = "sale.undone"
	EventSaleVoided    = "sale.voided"
	EventSaleReturned  = "sale.returned"
)

// MovementEvent proyección de un movimiento dentro de un evento.
type MovementEvent struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Kind      string `json:"kind"`
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason,omitempty"`
}

// LedgerEvent mensaje publicado al broker.
type LedgerEvent struct {
	Type         string          `json:"type"`
	SaleID       string          `json:"sale_id,omitempty"`
	AdjustmentID string          `json:"adjustment_id,omitempty"`
	Movements    []MovementEvent `json:"movements"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// NewLedgerEvent construye el evento a partir de los movimientos confirmados.
func NewLedgerEvent(eventType string, movements []*entity.Movement) LedgerEvent {
	ev := LedgerEvent{
		Type:       eventType,
		Movements:  make([]MovementEvent, 0, len(movements)),
		OccurredAt: time.Now().UTC(),
	}
	for _, m := range movements {
		ev.Movements = append(ev.Movements, MovementEvent{
			ID:        m.ID,
			ProductID: m.ProductID,
			Kind:      m.Kind,
			Quantity:  m.Quantity,
			Reason:    m.Reason,
		})
	}
	return ev
}

// DefaultPublishTimeout espera máxima por evento.
const DefaultPublishTimeout = 2 * time.Second

// Notifier publica eventos y registra los fallos sin propagarlos:
// el ledger ya está confirmado cuando se publica.
type Notifier struct {
	pub     EventPublisher
	log     zerolog.Logger
	timeout time.Duration
}

// NewNotifier construye el notificador. pub nil equivale a NopPublisher.
func NewNotifier(pub EventPublisher, log zerolog.Logger) *Notifier {
	if pub == nil {
		pub = NopPublisher{}
	}
	return &Notifier{pub: pub, log: log, timeout: DefaultPublishTimeout}
}

// WithTimeout acota cuánto puede bloquear cada publicación. d <= 0 conserva el valor actual.
func (n *Notifier) WithTimeout(d time.Duration) *Notifier {
	if d > 0 {
		n.timeout = d
	}
	return n
}

// Emit publica el evento usando la venta (o el primer producto) como key de partición.
func (n *Notifier) Emit(ctx context.Context, ev LedgerEvent) {
	if n == nil {
		return
	}
	key := ev.SaleID
	if key == "" && len(ev.Movements) > 0 {
		key = ev.Movements[0].ProductID
	}
	// la publicación no hereda la cancelación de la petición, solo su plazo propio
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.pub.Publish(pubCtx, key, ev); err != nil {
		n.log.Warn().Err(err).Str("type", ev.Type).Str("key", key).Msg("publicar evento")
	}
}
