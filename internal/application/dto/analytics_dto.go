package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayMethodEarningsDTO ganancias de un método de pago.
type PayMethodEarningsDTO struct {
	PayMethod string          `json:"pay_method"`
	Sales     int             `json:"sales"`    // ventas OK con al menos una línea en este método
	Gross     decimal.Decimal `json:"gross"`    // Σ subtotales de ventas OK
	Returned  decimal.Decimal `json:"returned"` // Σ cantidad devuelta × precio unitario original
	Net       decimal.Decimal `json:"net"`
}

// EarningsReportDTO ganancias por método de pago, recalculadas desde ventas y ajustes.
type EarningsReportDTO struct {
	From     *time.Time             `json:"from,omitempty"`
	To       *time.Time             `json:"to,omitempty"`
	Methods  []PayMethodEarningsDTO `json:"methods"`
	Sales    int                    `json:"sales"`
	Gross    decimal.Decimal        `json:"gross"`
	Returned decimal.Decimal        `json:"returned"`
	Net      decimal.Decimal        `json:"net"`
}
