package entity

import "time"

// Tipos de movimiento de stock.
const (
	MovementIN  = "IN"  // entrada
	MovementOUT = "OUT" // salida
)

// Movement es un registro inmutable del log de movimientos.
// Quantity siempre es positivo; Kind define el signo.
type Movement struct {
	ID           string
	ProductID    string
	Kind         string
	Quantity     int64
	Reason       string
	SaleID       string // venta que originó el movimiento (salida o reverso)
	AdjustmentID string // devolución o anulación que originó la entrada
	CreatedAt    time.Time
}

// Delta devuelve el efecto con signo del movimiento sobre el stock.
func (m *Movement) Delta() int64 {
	if m.Kind == MovementOUT {
		return -m.Quantity
	}
	return m.Quantity
}
