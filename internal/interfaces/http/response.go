package http

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

var validate = validator.New()

// errorStatus relación error de dominio → código HTTP y código de error de la API.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrOverReceipt, fiber.StatusConflict, "OVER_RECEIPT"},
	{domain.ErrNegativeResult, fiber.StatusConflict, "NEGATIVE_RESULT"},
	{domain.ErrOrderClosed, fiber.StatusConflict, "ORDER_CLOSED"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrDriftDetected, fiber.StatusConflict, "DRIFT_DETECTED"},
	{domain.ErrLockTimeout, fiber.StatusLocked, "LOCK_TIMEOUT"},
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{context.DeadlineExceeded, fiber.StatusGatewayTimeout, "TIMEOUT"},
}

// writeError responde con el código que corresponde al error. Las mutaciones rechazadas
// incluyen la regla violada y el stock real de la variante.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			status, code = e.status, e.code
			break
		}
	}
	body := dto.ErrorResponse{Code: code, Message: err.Error()}
	if v, ok := domain.AsViolation(err); ok {
		body.Message = v.Err.Error()
		body.Invariant = v.Invariant
		body.VariantID = v.VariantID
		current, requested := v.CurrentStock, v.Requested
		body.CurrentStock = &current
		body.Requested = &requested
	}
	return c.Status(status).JSON(body)
}

// bindBody parsea y valida el cuerpo; si falla ya respondió 400 y devuelve false.
func bindBody(c *fiber.Ctx, in any) (bool, error) {
	if err := c.BodyParser(in); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := validate.Struct(in); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	}
	return true, nil
}

// pageParams limit/offset de la query con los topes de la API.
func pageParams(c *fiber.Ctx, maxLimit int) (int, int) {
	p := dto.PageRequest{Limit: c.QueryInt("limit", 20), Offset: c.QueryInt("offset", 0)}
	p.DefaultPage()
	if maxLimit > 0 && p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p.Limit, p.Offset
}

// actor identidad del llamador que se registra en el libro.
func actor(c *fiber.Ctx) string {
	return GetUserID(c)
}
