package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// MovementHandler expone el log de movimientos y el motor del ledger.
type MovementHandler struct {
	ledger    *inventory.Engine
	movements repository.MovementRepository
	reconcile *inventory.ReconcileUseCase
}

// NewMovementHandler construye el handler.
func NewMovementHandler(ledger *inventory.Engine, movements repository.MovementRepository, reconcile *inventory.ReconcileUseCase) *MovementHandler {
	return &MovementHandler{ledger: ledger, movements: movements, reconcile: reconcile}
}

// Register godoc
// @Summary      Registrar movimiento manual (IN / OUT)
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type, quantity, reason"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/movements [post]
func (h *MovementHandler) Register(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return bodyError(c, err)
	}
	mov, err := h.ledger.ManualMovement(c.Context(), in.ProductID, in.Type, in.Quantity, in.Reason)
	if err != nil {
		return writeError(c, err)
	}
	out := dto.NewMovementResponses([]*entity.Movement{mov})
	return c.Status(fiber.StatusCreated).JSON(out[0])
}

// ApplyBatch godoc
// @Summary      Aplicar lote de movimientos (todo o nada)
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.BatchMovementRequest  true  "Movimientos"
// @Success      201   {array}   dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/movements/batch [post]
func (h *MovementHandler) ApplyBatch(c *fiber.Ctx) error {
	var in dto.BatchMovementRequest
	if err := c.BodyParser(&in); err != nil {
		return bodyError(c, err)
	}
	reqs := make([]inventory.MovementRequest, 0, len(in.Movements))
	for _, m := range in.Movements {
		reqs = append(reqs, inventory.MovementRequest{
			ProductID: m.ProductID,
			Kind:      m.Type,
			Quantity:  m.Quantity,
			Reason:    m.Reason,
		})
	}
	movs, err := h.ledger.ApplyBatch(c.Context(), reqs)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewMovementResponses(movs))
}

// List godoc
// @Summary      Listar movimientos (más recientes primero)
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Param        product_id  query  string  false  "Filtrar por producto"
// @Param        sale_id     query  string  false  "Filtrar por venta"
// @Param        limit       query  int     false  "Límite"  default(20)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/movements [get]
func (h *MovementHandler) List(c *fiber.Ctx) error {
	page := dto.NewPage(c.QueryInt("limit", dto.DefaultLimit), c.QueryInt("offset", 0))
	movs, err := h.movements.List(c.Context(), repository.MovementFilter{
		ProductID: c.Query("product_id"),
		SaleID:    c.Query("sale_id"),
		Limit:     page.Limit,
		Offset:    page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.MovementListResponse{
		Items: dto.NewMovementResponses(movs),
		Page:  page.Response(),
	})
}

// Reconcile godoc
// @Summary      Verificar stock contra el log de movimientos
// @Description  Lista los productos cuyo stock difiere de Σ IN − Σ OUT. Vacío = ledger consistente.
// @Tags         movements
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "consistent + discrepancies"
// @Router       /api/ledger/reconcile [get]
func (h *MovementHandler) Reconcile(c *fiber.Ctx) error {
	out, err := h.reconcile.Reconcile(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"consistent": len(out) == 0, "discrepancies": out})
}
