package inventory

import (
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// NextStock calcula el stock resultante de aplicar un movimiento (servicio de dominio).
// No valida negativos: el llamador decide qué hacer con un resultado < 0.
func NextStock(stock int64, kind string, qty int64) (int64, error) {
	if qty <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	switch kind {
	case entity.MovementIN:
		return stock + qty, nil
	case entity.MovementOUT:
		return stock - qty, nil
	}
	return 0, domain.ErrInvalidInput
}

// NetStock suma con signo una serie de movimientos (IN suma, OUT resta).
func NetStock(movements []*entity.Movement) int64 {
	var net int64
	for _, m := range movements {
		net += m.Delta()
	}
	return net
}
