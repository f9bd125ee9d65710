package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de una venta. Solo se permite OK -> VOID.
const (
	SaleStatusOK   = "OK"
	SaleStatusVoid = "VOID"
)

// PayMethodCash método de pago por defecto.
const PayMethodCash = "efectivo"

// Sale cabecera de una venta confirmada.
type Sale struct {
	ID        string
	Lines     []SaleLine
	Total     decimal.Decimal
	Status    string
	CreatedAt time.Time
	VoidedAt  *time.Time
}

// SaleLine línea de venta con el precio congelado al momento del checkout.
type SaleLine struct {
	ID          string
	SaleID      string
	LineNo      int
	ProductID   string
	ProductName string
	Quantity    int64
	UnitPrice   decimal.Decimal
	PayMethod   string
	Subtotal    decimal.Decimal
}

// IsVoid indica si la venta fue anulada.
func (s *Sale) IsVoid() bool { return s.Status == SaleStatusVoid }

// Line busca una línea por ID.
func (s *Sale) Line(lineID string) (SaleLine, bool) {
	for _, l := range s.Lines {
		if l.ID == lineID {
			return l, true
		}
	}
	return SaleLine{}, false
}
