package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// ReturnableLine estado de devolución de una línea de venta.
type ReturnableLine struct {
	LineID      string
	LineNo      int
	ProductID   string
	ProductName string
	Sold        int64
	Returned    int64
	Returnable  int64
	UnitPrice   decimal.Decimal
	PayMethod   string
}

// ReturnedByLine acumula las cantidades devueltas (solo ajustes RETURN) por línea de venta.
func ReturnedByLine(adjustments []*entity.Adjustment) map[string]int64 {
	out := make(map[string]int64)
	for _, a := range adjustments {
		if a.Type != entity.AdjustmentReturn {
			continue
		}
		for _, l := range a.Lines {
			out[l.SaleLineID] += l.Quantity
		}
	}
	return out
}

// Returnable calcula vendido - devuelto para cada línea, en el orden de la venta.
// Incluye las líneas con devolvible 0; el filtro lo hace quien lo necesite.
func Returnable(sale *entity.Sale, adjustments []*entity.Adjustment) []ReturnableLine {
	returned := ReturnedByLine(adjustments)
	out := make([]ReturnableLine, 0, len(sale.Lines))
	for _, l := range sale.Lines {
		r := returned[l.ID]
		left := l.Quantity - r
		if left < 0 {
			left = 0
		}
		out = append(out, ReturnableLine{
			LineID:      l.ID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Sold:        l.Quantity,
			Returned:    r,
			Returnable:  left,
			UnitPrice:   l.UnitPrice,
			PayMethod:   l.PayMethod,
		})
	}
	return out
}

// OpenLines filtra las líneas con unidades aún devolvibles.
func OpenLines(lines []ReturnableLine) []ReturnableLine {
	out := make([]ReturnableLine, 0, len(lines))
	for _, l := range lines {
		if l.Returnable > 0 {
			out = append(out, l)
		}
	}
	return out
}
