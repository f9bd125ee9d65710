package dto

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// RegisterMovementRequest body para POST /api/movements.
type RegisterMovementRequest struct {
	ProductID string `json:"product_id"`
	Type      string `json:"type"` // IN | OUT
	Quantity  int64  `json:"quantity"`
	Reason    string `json:"reason"`
}

// BatchMovementRequest body para POST /api/movements/batch: todo o nada.
type BatchMovementRequest struct {
	Movements []RegisterMovementRequest `json:"movements"`
}

// MovementResponse salida de un movimiento del ledger.
type MovementResponse struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"product_id"`
	Type         string    `json:"type"`
	Quantity     int64     `json:"quantity"`
	Reason       string    `json:"reason"`
	SaleID       string    `json:"sale_id,omitempty"`
	AdjustmentID string    `json:"adjustment_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// MovementListResponse lista paginada de movimientos (más recientes primero).
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// NewMovementResponses mapea movimientos a respuestas.
func NewMovementResponses(movs []*entity.Movement) []MovementResponse {
	out := make([]MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, MovementResponse{
			ID:           m.ID,
			ProductID:    m.ProductID,
			Type:         m.Kind,
			Quantity:     m.Quantity,
			Reason:       m.Reason,
			SaleID:       m.SaleID,
			AdjustmentID: m.AdjustmentID,
			CreatedAt:    m.CreatedAt,
		})
	}
	return out
}
