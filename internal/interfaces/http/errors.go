package http

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// ShortageDetail línea del lote sin stock suficiente.
type ShortageDetail struct {
	Line      int    `json:"line"`
	ProductID string `json:"product_id"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// ReturnDetail línea de devolución rechazada.
type ReturnDetail struct {
	LineID     string `json:"line_id"`
	Requested  int64  `json:"requested"`
	Returnable int64  `json:"returnable"`
}

type errorMapping struct {
	status int
	code   string
}

// Orden relevante: los errores tipados se resuelven antes que su sentinel.
var errorTable = []struct {
	target error
	errorMapping
}{
	{domain.ErrProductNotFound, errorMapping{fiber.StatusNotFound, "PRODUCT_NOT_FOUND"}},
	{domain.ErrSaleNotFound, errorMapping{fiber.StatusNotFound, "SALE_NOT_FOUND"}},
	{domain.ErrNotFound, errorMapping{fiber.StatusNotFound, "NOT_FOUND"}},
	{domain.ErrInsufficientStock, errorMapping{fiber.StatusConflict, "INSUFFICIENT_STOCK"}},
	{domain.ErrEmptyCart, errorMapping{fiber.StatusBadRequest, "EMPTY_CART"}},
	{domain.ErrInvalidQuantity, errorMapping{fiber.StatusBadRequest, "INVALID_QUANTITY"}},
	{domain.ErrInvalidInput, errorMapping{fiber.StatusBadRequest, "VALIDATION"}},
	{domain.ErrNothingToUndo, errorMapping{fiber.StatusConflict, "NOTHING_TO_UNDO"}},
	{domain.ErrAlreadyVoid, errorMapping{fiber.StatusConflict, "ALREADY_VOID"}},
	{domain.ErrSaleVoided, errorMapping{fiber.StatusConflict, "SALE_VOIDED"}},
	{domain.ErrInvalidReturnQuantity, errorMapping{fiber.StatusUnprocessableEntity, "INVALID_RETURN_QUANTITY"}},
	{domain.ErrNothingToReturn, errorMapping{fiber.StatusConflict, "NOTHING_TO_RETURN"}},
	{domain.ErrProductInUse, errorMapping{fiber.StatusConflict, "PRODUCT_IN_USE"}},
	{domain.ErrDuplicate, errorMapping{fiber.StatusConflict, "DUPLICATE"}},
	{domain.ErrBusy, errorMapping{fiber.StatusServiceUnavailable, "BUSY"}},
	{domain.ErrUnauthorized, errorMapping{fiber.StatusUnauthorized, "UNAUTHORIZED"}},
	{domain.ErrForbidden, errorMapping{fiber.StatusForbidden, "FORBIDDEN"}},
}

// writeError traduce un error de dominio a dto.ErrorResponse con el status HTTP que corresponde.
func writeError(c *fiber.Ctx, err error) error {
	resp := dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()}
	status := fiber.StatusInternalServerError
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			status, resp.Code = e.status, e.code
			break
		}
	}

	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		details := make([]ShortageDetail, 0, len(stockErr.Shortages))
		for _, s := range stockErr.Shortages {
			details = append(details, ShortageDetail(s))
		}
		resp.Details = details
	}
	var retErr *domain.ReturnQuantityError
	if errors.As(err, &retErr) {
		resp.Details = []ReturnDetail{{LineID: retErr.LineID, Requested: retErr.Requested, Returnable: retErr.Returnable}}
	}
	if status == fiber.StatusServiceUnavailable {
		c.Set(fiber.HeaderRetryAfter, "1")
	}
	return c.Status(status).JSON(resp)
}

func badRequest(c *fiber.Ctx, code, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: code, Message: msg})
}

// quantityFields campos JSON que solo admiten enteros.
var quantityFields = []string{"quantity", "initial_stock"}

// bodyError responde a un cuerpo que no se pudo decodificar. Una cantidad no entera
// (1.5, "2") es INVALID_QUANTITY; cualquier otro fallo es INVALID_BODY.
func bodyError(c *fiber.Ctx, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := typeErr.Field
		if i := strings.LastIndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		for _, f := range quantityFields {
			if field == f {
				return badRequest(c, "INVALID_QUANTITY", "la cantidad debe ser un entero positivo")
			}
		}
	}
	return badRequest(c, "INVALID_BODY", "cuerpo inválido")
}
