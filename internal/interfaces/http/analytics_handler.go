package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/analytics"
)

// AnalyticsHandler maneja los reportes derivados del ledger.
type AnalyticsHandler struct {
	uc *analytics.EarningsUseCase
}

// NewAnalyticsHandler construye el handler.
func NewAnalyticsHandler(uc *analytics.EarningsUseCase) *AnalyticsHandler {
	return &AnalyticsHandler{uc: uc}
}

// Earnings godoc
// @Summary      Ganancias por método de pago
// @Description  Bruto de ventas OK menos devoluciones al precio original. Las ventas anuladas no suman.
// @Tags         analytics
// @Security     Bearer
// @Produce      json
// @Param        from  query  string  false  "Inicio del período (YYYY-MM-DD). Vacío = sin límite."
// @Param        to    query  string  false  "Fin del período inclusive (YYYY-MM-DD). Vacío = sin límite."
// @Success      200  {object}  dto.EarningsReportDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/analytics/earnings [get]
func (h *AnalyticsHandler) Earnings(c *fiber.Ctx) error {
	report, err := h.uc.Earnings(c.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(report)
}
