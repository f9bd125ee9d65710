package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// Ledger
	ErrProductNotFound       = errors.New("producto no encontrado")
	ErrSaleNotFound          = errors.New("venta no encontrada")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrEmptyCart             = errors.New("el carrito está vacío")
	ErrInvalidQuantity       = errors.New("cantidad inválida")
	ErrNothingToUndo         = errors.New("no hay venta para deshacer")
	ErrAlreadyVoid           = errors.New("la venta ya fue anulada")
	ErrSaleVoided            = errors.New("la venta está anulada")
	ErrInvalidReturnQuantity = errors.New("cantidad de devolución inválida")
	ErrNothingToReturn       = errors.New("no hay unidades por devolver")
	ErrBusy                  = errors.New("recurso ocupado, intente de nuevo")
	ErrProductInUse          = errors.New("el producto tiene stock o ventas con devoluciones pendientes")
)

// StockShortage detalle de una línea del lote que dejaría stock negativo.
// Line es la posición de la línea dentro del lote (base 0).
type StockShortage struct {
	Line      int
	ProductID string
	Requested int64
	Available int64
}

// InsufficientStockError agrupa todas las líneas sin stock suficiente de un lote.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("línea %d producto %s: solicitado %d, disponible %d",
			s.Line, s.ProductID, s.Requested, s.Available))
	}
	return ErrInsufficientStock.Error() + ": " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ReturnQuantityError devolución que excede lo devolvible de una línea (o línea inexistente).
type ReturnQuantityError struct {
	LineID     string
	Requested  int64
	Returnable int64
}

func (e *ReturnQuantityError) Error() string {
	return fmt.Sprintf("%s: línea %s solicitado %d, devolvible %d",
		ErrInvalidReturnQuantity.Error(), e.LineID, e.Requested, e.Returnable)
}

func (e *ReturnQuantityError) Unwrap() error { return ErrInvalidReturnQuantity }
