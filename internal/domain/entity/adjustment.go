package entity

import "time"

// Tipos de ajuste sobre una venta.
const (
	AdjustmentReturn = "RETURN"
	AdjustmentVoid   = "VOID"
)

// Adjustment acción compensatoria (devolución o anulación) sobre una venta previa. Inmutable.
type Adjustment struct {
	ID        string
	SaleID    string
	Type      string
	Lines     []AdjustmentLine
	CreatedAt time.Time
}

// AdjustmentLine cantidad reintegrada para una línea de la venta.
type AdjustmentLine struct {
	ID           string
	AdjustmentID string
	SaleLineID   string
	ProductID    string
	Quantity     int64
}
