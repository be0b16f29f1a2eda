package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// VariantHandler variantes y sus operaciones de stock (protegido).
type VariantHandler struct {
	variants *usecase.VariantUseCase
	stock    *inventory.StockUseCase
}

// NewVariantHandler construye el handler.
func NewVariantHandler(variants *usecase.VariantUseCase, stock *inventory.StockUseCase) *VariantHandler {
	return &VariantHandler{variants: variants, stock: stock}
}

// Create godoc
// @Summary      Crear variante
// @Tags         variants
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateVariantRequest  true  "SKU y nombre"
// @Success      201   {object}  dto.VariantResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/variants [post]
func (h *VariantHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateVariantRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	out, err := h.variants.Create(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetByID godoc
// @Summary      Obtener variante por ID
// @Tags         variants
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la variante"
// @Success      200  {object}  dto.VariantResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/variants/{id} [get]
func (h *VariantHandler) GetByID(c *fiber.Ctx) error {
	out, err := h.variants.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	if out == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "variante no encontrada"})
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar variantes
// @Tags         variants
// @Security     Bearer
// @Produce      json
// @Param        limit   query  int  false  "Límite"   default(20)
// @Param        offset  query  int  false  "Offset"   default(0)
// @Success      200     {object}  dto.VariantListResponse
// @Router       /api/variants [get]
func (h *VariantHandler) List(c *fiber.Ctx) error {
	limit, offset := pageParams(c, 0)
	out, err := h.variants.List(c.UserContext(), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetStock godoc
// @Summary      Stock derivado de una variante
// @Description  Disponible, entrante, valuación, costo promedio y lotes en orden FIFO.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la variante"
// @Success      200  {object}  dto.StockResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/variants/{id}/stock [get]
func (h *VariantHandler) GetStock(c *fiber.Ctx) error {
	view, err := h.stock.GetStock(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toStockResponse(view))
}

// ListMovements godoc
// @Summary      Historial de movimientos
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "ID de la variante"
// @Param        limit   query  int     false  "Límite (acotado por HISTORY_MAX_LIMIT)"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.MovementListResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /api/variants/{id}/movements [get]
func (h *VariantHandler) ListMovements(c *fiber.Ctx) error {
	page, err := h.stock.GetMovementHistory(c.UserContext(), c.Params("id"), c.QueryInt("limit", 20), c.QueryInt("offset", 0))
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.MovementResponse, 0, len(page.Items))
	for _, m := range page.Items {
		items = append(items, toMovementResponse(*m))
	}
	return c.JSON(dto.MovementListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}})
}

// Receive godoc
// @Summary      Entrada de stock (nuevo lote)
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la variante"
// @Param        body  body  dto.ReceiveStockRequest  true  "Cantidad, costo unitario y datos del lote"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/variants/{id}/receive [post]
func (h *VariantHandler) Receive(c *fiber.Ctx) error {
	var in dto.ReceiveStockRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	mov, err := h.stock.ReceiveStock(c.UserContext(), inventory.ReceiveInput{
		VariantID:     c.Params("id"),
		Quantity:      in.Quantity,
		UnitCost:      in.UnitCost,
		SourceOrderID: in.OrderID,
		Meta: entity.BatchMeta{
			WarehouseID: in.WarehouseID,
			LotCode:     in.LotCode,
			ExpiryDate:  in.ExpiryDate,
			ReceivedAt:  in.ReceivedAt,
		},
		Reason: in.Reason,
		Actor:  actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(*mov))
}

// Issue godoc
// @Summary      Salida de stock por FIFO
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la variante"
// @Param        body  body  dto.IssueStockRequest  true  "Cantidad, motivo y bodega opcional"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/variants/{id}/issue [post]
func (h *VariantHandler) Issue(c *fiber.Ctx) error {
	var in dto.IssueStockRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	mov, err := h.stock.IssueStock(c.UserContext(), inventory.IssueInput{
		VariantID:     c.Params("id"),
		Quantity:      in.Quantity,
		Reason:        in.Reason,
		SourceOrderID: in.OrderID,
		WarehouseID:   in.WarehouseID,
		Actor:         actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(*mov))
}

// Adjust godoc
// @Summary      Ajuste manual de stock
// @Description  Con batch_id corrige ese lote; sin batch_id un delta positivo crea un lote y uno negativo descuenta por FIFO.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID de la variante"
// @Param        body  body  dto.AdjustStockRequest  true  "Delta con signo y motivo"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/variants/{id}/adjust [post]
func (h *VariantHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	mov, err := h.stock.AdjustStock(c.UserContext(), inventory.AdjustInput{
		VariantID:   c.Params("id"),
		Delta:       in.Delta,
		Reason:      in.Reason,
		BatchID:     in.BatchID,
		UnitCost:    in.UnitCost,
		WarehouseID: in.WarehouseID,
		Actor:       actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toMovementResponse(*mov))
}

// Transfer godoc
// @Summary      Traslado entre bodegas
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la variante"
// @Param        body  body  dto.TransferStockRequest  true  "Bodegas origen/destino y cantidad"
// @Success      201   {object}  dto.TransferResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/variants/{id}/transfer [post]
func (h *VariantHandler) Transfer(c *fiber.Ctx) error {
	var in dto.TransferStockRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	movs, err := h.stock.TransferStock(c.UserContext(), inventory.TransferInput{
		VariantID:       c.Params("id"),
		FromWarehouseID: in.FromWarehouseID,
		ToWarehouseID:   in.ToWarehouseID,
		Quantity:        in.Quantity,
		Reason:          in.Reason,
		Actor:           actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.TransferResponse{
		Out: toMovementResponse(movs[0]),
		In:  toMovementResponse(movs[1]),
	})
}
