package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo.
// Stock solo cambia a través de movimientos del ledger; nunca se edita directamente.
type Product struct {
	ID        string
	SKU       string // opcional; único cuando está presente
	Name      string
	Category  string
	Aliases   string // nombres alternativos separados por coma, para búsqueda
	Notes     string
	Location  string // ubicación física (estante, pasillo)
	Price     decimal.Decimal
	Stock     int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
