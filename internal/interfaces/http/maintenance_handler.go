package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// MaintenanceHandler conciliación y verificación fuera de la ruta normal de operación (solo admin).
type MaintenanceHandler struct {
	reconcile *inventory.ReconcileUseCase
	repair    *inventory.RepairUseCase
}

// NewMaintenanceHandler construye el handler.
func NewMaintenanceHandler(reconcile *inventory.ReconcileUseCase, repair *inventory.RepairUseCase) *MaintenanceHandler {
	return &MaintenanceHandler{reconcile: reconcile, repair: repair}
}

// ReconcileOrder godoc
// @Summary      Conciliar una orden
// @Description  Recalcula acumulados y estado desde las recepciones y reconstruye lotes de compra. Idempotente.
// @Tags         maintenance
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la orden"
// @Success      200  {object}  dto.ReconcileResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/maintenance/orders/{id}/reconcile [post]
func (h *MaintenanceHandler) ReconcileOrder(c *fiber.Ctx) error {
	report, err := h.reconcile.ReconcileOrder(c.UserContext(), c.Params("id"), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toReconcileResponse(report))
}

// VerifyVariant godoc
// @Summary      Verificar el libro de una variante
// @Tags         maintenance
// @Security     Bearer
// @Produce      json
// @Param        id   path  string  true  "ID de la variante"
// @Success      200  {object}  dto.VerifyResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/maintenance/variants/{id}/verify [get]
func (h *MaintenanceHandler) VerifyVariant(c *fiber.Ctx) error {
	report, err := h.repair.VerifyVariant(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(toVerifyResponse(report))
}

// DetectDrift godoc
// @Summary      Detectar desvíos
// @Description  Reporta hallazgos sin corregirlos. Con strict=true responde 409 si hay alguno.
// @Tags         maintenance
// @Security     Bearer
// @Produce      json
// @Param        strict  query  bool  false  "Modo estricto"
// @Success      200     {object}  dto.DriftResponse
// @Failure      409     {object}  dto.DriftResponse
// @Router       /api/maintenance/drift [get]
func (h *MaintenanceHandler) DetectDrift(c *fiber.Ctx) error {
	strict := c.QueryBool("strict", false)
	findings, err := h.repair.DetectDrift(c.UserContext(), strict)
	if err != nil {
		if errors.Is(err, domain.ErrDriftDetected) {
			return c.Status(fiber.StatusConflict).JSON(driftResponse(findings))
		}
		return writeError(c, err)
	}
	return c.JSON(driftResponse(findings))
}

// RecomputeIncoming godoc
// @Summary      Recalcular el entrante de todos los lotes
// @Tags         maintenance
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RecomputeIncomingResponse
// @Router       /api/maintenance/incoming/recompute [post]
func (h *MaintenanceHandler) RecomputeIncoming(c *fiber.Ctx) error {
	n, err := h.repair.RecomputeIncoming(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.RecomputeIncomingResponse{BatchesUpdated: n})
}

// BackfillReceipts godoc
// @Summary      Reconstruir recepciones históricas
// @Description  Crea recepciones para lotes de órdenes que no tienen ninguna que los referencie. Idempotente.
// @Tags         maintenance
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.BackfillResponse
// @Router       /api/maintenance/receipts/backfill [post]
func (h *MaintenanceHandler) BackfillReceipts(c *fiber.Ctx) error {
	report, err := h.repair.BackfillReceipts(c.UserContext(), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.BackfillResponse{
		ReceiptsCreated: report.ReceiptsCreated,
		Findings:        report.Findings,
	})
}
