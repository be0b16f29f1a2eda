package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// OrderHandler órdenes de inventario y recepciones (protegido).
type OrderHandler struct {
	uc *inventory.ReceiptUseCase
}

// NewOrderHandler construye el handler.
func NewOrderHandler(uc *inventory.ReceiptUseCase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// Create godoc
// @Summary      Crear orden de inventario
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "Tipo (purchase|sale|adjustment), código opcional e ítems"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	items := make([]inventory.OrderItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, inventory.OrderItemInput{
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			UnitCost:  it.UnitCost,
			BatchRef:  it.BatchRef,
		})
	}
	o, err := h.uc.CreateOrder(c.UserContext(), inventory.OrderInput{
		Type:  in.Type,
		Code:  in.Code,
		Items: items,
		Actor: actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toOrderResponse(o))
}

// GetByID godoc
// @Summary      Obtener orden con ítems y recepciones
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	o, err := h.uc.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(o))
}

// List godoc
// @Summary      Listar órdenes
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending | completed | cancelled"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200     {object}  dto.OrderListResponse
// @Router       /api/orders [get]
func (h *OrderHandler) List(c *fiber.Ctx) error {
	status := c.Query("status")
	switch status {
	case "", entity.OrderStatusPending, entity.OrderStatusCompleted, entity.OrderStatusCancelled:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "status inválido"})
	}
	limit, offset := pageParams(c, 0)
	list, err := h.uc.ListOrders(c.UserContext(), status, limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	items := make([]dto.OrderResponse, 0, len(list))
	for _, o := range list {
		items = append(items, toOrderResponse(o))
	}
	return c.JSON(dto.OrderListResponse{Items: items, Page: dto.PageResponse{Limit: limit, Offset: offset}})
}

// RecordReceipt godoc
// @Summary      Registrar recepción contra un ítem
// @Description  Compras crean un lote; ventas y ajustes descuentan por FIFO. Todo en una sola transacción.
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID de la orden"
// @Param        body  body  dto.RecordReceiptRequest  true  "Índice del ítem, cantidad y datos del lote"
// @Success      201   {object}  dto.ReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/receipts [post]
func (h *OrderHandler) RecordReceipt(c *fiber.Ctx) error {
	var in dto.RecordReceiptRequest
	if ok, err := bindBody(c, &in); !ok {
		return err
	}
	rc, err := h.uc.RecordReceipt(c.UserContext(), inventory.ReceiptInput{
		OrderID:   c.Params("id"),
		ItemIndex: in.ItemIndex,
		Quantity:  in.Quantity,
		Meta: entity.BatchMeta{
			WarehouseID: in.WarehouseID,
			LotCode:     in.LotCode,
			ExpiryDate:  in.ExpiryDate,
			ReceivedAt:  in.ReceivedAt,
		},
		Actor: actor(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(toReceiptResponse(*rc))
}

// Cancel godoc
// @Summary      Cancelar orden pendiente
// @Description  Lo recibido se conserva; lo pendiente deja de contar como entrante.
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/cancel [post]
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	o, err := h.uc.CancelOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toOrderResponse(o))
}
