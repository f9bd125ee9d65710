package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/analytics"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/sales"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// SaleHandler maneja checkout, deshacer, anulaciones y devoluciones.
type SaleHandler struct {
	sales       *sales.SaleEngine
	adjustments *sales.AdjustmentEngine
	queries     *sales.QueryUseCase
	receipts    *sales.ReceiptUseCase
}

// NewSaleHandler construye el handler.
func NewSaleHandler(
	saleEngine *sales.SaleEngine,
	adjustments *sales.AdjustmentEngine,
	queries *sales.QueryUseCase,
	receipts *sales.ReceiptUseCase,
) *SaleHandler {
	return &SaleHandler{sales: saleEngine, adjustments: adjustments, queries: queries, receipts: receipts}
}

// Checkout godoc
// @Summary      Registrar venta (checkout)
// @Description  Descuenta stock de todas las líneas en una sola transacción. Sin stock suficiente no se registra nada.
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CheckoutRequest  true  "Líneas del carrito"
// @Success      201   {object}  dto.SaleResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sales [post]
func (h *SaleHandler) Checkout(c *fiber.Ctx) error {
	var in dto.CheckoutRequest
	if err := c.BodyParser(&in); err != nil {
		return bodyError(c, err)
	}
	lines := make([]sales.CheckoutLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, sales.CheckoutLine{ProductID: l.ProductID, Quantity: l.Quantity, PayMethod: l.PayMethod})
	}
	sale, err := h.sales.Checkout(c.Context(), lines)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewSaleResponse(sale))
}

// List godoc
// @Summary      Listar ventas (más recientes primero)
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        from    query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to      query  string  false  "Hasta inclusive (YYYY-MM-DD)"
// @Param        status  query  string  false  "OK | VOID"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.SaleListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/sales [get]
func (h *SaleHandler) List(c *fiber.Ctx) error {
	from, to, err := analytics.ParsePeriod(c.Query("from"), c.Query("to"))
	if err != nil {
		return writeError(c, err)
	}
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	if status != "" && status != entity.SaleStatusOK && status != entity.SaleStatusVoid {
		return badRequest(c, "VALIDATION", "status debe ser OK o VOID")
	}
	page := dto.NewPage(c.QueryInt("limit", dto.DefaultLimit), c.QueryInt("offset", 0))

	list, err := h.queries.ListSales(c.Context(), repository.SaleFilter{
		From: from, To: to, Status: status, Limit: page.Limit, Offset: page.Offset,
	})
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.SaleResponse, 0, len(list))
	for _, s := range list {
		items = append(items, *dto.NewSaleResponse(s))
	}
	return c.JSON(dto.SaleListResponse{Items: items, Page: page.Response()})
}

// GetByID godoc
// @Summary      Obtener venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id} [get]
func (h *SaleHandler) GetByID(c *fiber.Ctx) error {
	sale, err := h.queries.GetSale(c.Context(), pathID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSaleResponse(sale))
}

// Undoable godoc
// @Summary      Venta que se puede deshacer
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /api/sales/undoable [get]
func (h *SaleHandler) Undoable(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"sale_id": h.sales.Undoable()})
}

// Undo godoc
// @Summary      Deshacer la última venta
// @Description  Solo la venta más reciente, sin ajustes. Repone stock y elimina el registro de la venta.
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.SaleResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/undo [post]
func (h *SaleHandler) Undo(c *fiber.Ctx) error {
	sale, err := h.sales.UndoLast(c.Context(), pathID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewSaleResponse(sale))
}

// Void godoc
// @Summary      Anular venta
// @Description  Repone lo vendido menos lo ya devuelto. Una venta anulada no admite más ajustes.
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {object}  dto.AdjustmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      503  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/void [post]
func (h *SaleHandler) Void(c *fiber.Ctx) error {
	adj, err := h.adjustments.VoidSale(c.Context(), pathID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewAdjustmentResponse(adj))
}

// StartReturn godoc
// @Summary      Líneas devolvibles de una venta
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {array}   dto.ReturnableLineResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/returns [get]
func (h *SaleHandler) StartReturn(c *fiber.Ctx) error {
	lines, err := h.adjustments.StartReturn(c.Context(), pathID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.NewReturnableLineResponses(lines))
}

// ApplyReturn godoc
// @Summary      Registrar devolución parcial
// @Tags         sales
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string             true  "ID de la venta"
// @Param        body  body  dto.ReturnRequest  true  "Líneas y cantidades a devolver"
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/returns [post]
func (h *SaleHandler) ApplyReturn(c *fiber.Ctx) error {
	var in dto.ReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return bodyError(c, err)
	}
	lines := make([]sales.ReturnLine, 0, len(in.Lines))
	for _, l := range in.Lines {
		lines = append(lines, sales.ReturnLine{LineID: l.LineID, Quantity: l.Quantity})
	}
	adj, err := h.adjustments.ApplyReturn(c.Context(), pathID(c), lines)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.NewAdjustmentResponse(adj))
}

// Adjustments godoc
// @Summary      Ajustes de una venta (devoluciones y anulación)
// @Tags         sales
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {array}   dto.AdjustmentResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/adjustments [get]
func (h *SaleHandler) Adjustments(c *fiber.Ctx) error {
	adjs, err := h.queries.ListAdjustments(c.Context(), pathID(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]dto.AdjustmentResponse, 0, len(adjs))
	for _, a := range adjs {
		out = append(out, *dto.NewAdjustmentResponse(a))
	}
	return c.JSON(out)
}

// Receipt godoc
// @Summary      Comprobante PDF de la venta
// @Tags         sales
// @Security     Bearer
// @Produce      application/pdf
// @Param        id   path  string  true  "ID de la venta"
// @Success      200  {file}    binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sales/{id}/receipt [get]
func (h *SaleHandler) Receipt(c *fiber.Ctx) error {
	pdf, filename, err := h.receipts.Download(c.Context(), pathID(c))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Send(pdf)
}
