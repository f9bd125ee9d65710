package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
)

// CheckoutLineRequest línea del carrito.
type CheckoutLineRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	PayMethod string `json:"pay_method"`
}

// CheckoutRequest body para POST /api/sales.
type CheckoutRequest struct {
	Lines []CheckoutLineRequest `json:"lines"`
}

// ReturnLineRequest cantidad a devolver de una línea.
type ReturnLineRequest struct {
	LineID   string `json:"line_id"`
	Quantity int64  `json:"quantity"`
}

// ReturnRequest body para POST /api/sales/:id/returns.
type ReturnRequest struct {
	Lines []ReturnLineRequest `json:"lines"`
}

// SaleLineResponse línea con precio congelado al momento de la venta.
type SaleLineResponse struct {
	ID          string          `json:"id"`
	LineNo      int             `json:"line_no"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PayMethod   string          `json:"pay_method"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleResponse salida de una venta.
type SaleResponse struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"`
	Total     decimal.Decimal    `json:"total"`
	CreatedAt time.Time          `json:"created_at"`
	VoidedAt  *time.Time         `json:"voided_at,omitempty"`
	Lines     []SaleLineResponse `json:"lines"`
}

// SaleListResponse lista paginada de ventas.
type SaleListResponse struct {
	Items []SaleResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// ReturnableLineResponse línea con cantidad aún devolvible.
type ReturnableLineResponse struct {
	LineID      string          `json:"line_id"`
	LineNo      int             `json:"line_no"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Sold        int64           `json:"sold"`
	Returned    int64           `json:"returned"`
	Returnable  int64           `json:"returnable"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	PayMethod   string          `json:"pay_method"`
}

// AdjustmentLineResponse línea de una devolución o anulación.
type AdjustmentLineResponse struct {
	SaleLineID string `json:"sale_line_id"`
	ProductID  string `json:"product_id"`
	Quantity   int64  `json:"quantity"`
}

// AdjustmentResponse salida de un ajuste.
type AdjustmentResponse struct {
	ID        string                   `json:"id"`
	SaleID    string                   `json:"sale_id"`
	Type      string                   `json:"type"`
	CreatedAt time.Time                `json:"created_at"`
	Lines     []AdjustmentLineResponse `json:"lines"`
}

// NewSaleResponse mapea la venta.
func NewSaleResponse(s *entity.Sale) *SaleResponse {
	if s == nil {
		return nil
	}
	out := &SaleResponse{
		ID:        s.ID,
		Status:    s.Status,
		Total:     s.Total,
		CreatedAt: s.CreatedAt,
		VoidedAt:  s.VoidedAt,
		Lines:     make([]SaleLineResponse, 0, len(s.Lines)),
	}
	for _, l := range s.Lines {
		out.Lines = append(out.Lines, SaleLineResponse{
			ID:          l.ID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			PayMethod:   l.PayMethod,
			Subtotal:    l.Subtotal,
		})
	}
	return out
}

// NewReturnableLineResponses mapea las líneas devolvibles.
func NewReturnableLineResponses(lines []inventory.ReturnableLine) []ReturnableLineResponse {
	out := make([]ReturnableLineResponse, 0, len(lines))
	for _, l := range lines {
		out = append(out, ReturnableLineResponse{
			LineID:      l.LineID,
			LineNo:      l.LineNo,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Sold:        l.Sold,
			Returned:    l.Returned,
			Returnable:  l.Returnable,
			UnitPrice:   l.UnitPrice,
			PayMethod:   l.PayMethod,
		})
	}
	return out
}

// NewAdjustmentResponse mapea el ajuste.
func NewAdjustmentResponse(a *entity.Adjustment) *AdjustmentResponse {
	if a == nil {
		return nil
	}
	out := &AdjustmentResponse{
		ID:        a.ID,
		SaleID:    a.SaleID,
		Type:      a.Type,
		CreatedAt: a.CreatedAt,
		Lines:     make([]AdjustmentLineResponse, 0, len(a.Lines)),
	}
	for _, l := range a.Lines {
		out.Lines = append(out.Lines, AdjustmentLineResponse{SaleLineID: l.SaleLineID, ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}
