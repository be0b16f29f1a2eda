package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName        string
	VariantUC      *usecase.VariantUseCase
	WarehouseUC    *usecase.WarehouseUseCase
	Stock          *inventory.StockUseCase
	Receipts       *inventory.ReceiptUseCase
	Reconcile      *inventory.ReconcileUseCase
	Repair         *inventory.RepairUseCase
	MetricsHandler nethttp.Handler // nil = sin /metrics
	JWTSecret      string
}

// Router registra las rutas de la API.
// Roles: admin todo; bodeguero stock y órdenes; vendedor salidas y consultas.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.MetricsHandler != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.MetricsHandler))
	}

	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	readers := RequireRole(RoleAdmin, RoleBodeguero, RoleVendedor)
	operators := RequireRole(RoleAdmin, RoleBodeguero)
	admins := RequireRole(RoleAdmin)

	// Variants y stock
	variants := api.Group("/variants")
	variantHandler := NewVariantHandler(deps.VariantUC, deps.Stock)
	variants.Post("/", admins, variantHandler.Create)
	variants.Get("/", readers, variantHandler.List)
	variants.Get("/:id", readers, variantHandler.GetByID)
	variants.Get("/:id/stock", readers, variantHandler.GetStock)
	variants.Get("/:id/movements", readers, variantHandler.ListMovements)
	variants.Post("/:id/receive", operators, variantHandler.Receive)
	variants.Post("/:id/issue", readers, variantHandler.Issue)
	variants.Post("/:id/adjust", operators, variantHandler.Adjust)
	variants.Post("/:id/transfer", operators, variantHandler.Transfer)

	// Warehouses
	warehouses := api.Group("/warehouses")
	warehouseHandler := NewWarehouseHandler(deps.WarehouseUC)
	warehouses.Post("/", admins, warehouseHandler.Create)
	warehouses.Get("/", readers, warehouseHandler.List)
	warehouses.Get("/:id", readers, warehouseHandler.GetByID)

	// Orders y recepciones
	orders := api.Group("/orders")
	orderHandler := NewOrderHandler(deps.Receipts)
	orders.Post("/", operators, orderHandler.Create)
	orders.Get("/", readers, orderHandler.List)
	orders.Get("/:id", readers, orderHandler.GetByID)
	orders.Post("/:id/receipts", operators, orderHandler.RecordReceipt)
	orders.Post("/:id/cancel", operators, orderHandler.Cancel)

	// Mantenimiento (fuera de la ruta normal de operación)
	maintenance := api.Group("/maintenance", admins)
	maintenanceHandler := NewMaintenanceHandler(deps.Reconcile, deps.Repair)
	maintenance.Post("/orders/:id/reconcile", maintenanceHandler.ReconcileOrder)
	maintenance.Get("/variants/:id/verify", maintenanceHandler.VerifyVariant)
	maintenance.Get("/drift", maintenanceHandler.DetectDrift)
	maintenance.Post("/incoming/recompute", maintenanceHandler.RecomputeIncoming)
	maintenance.Post("/receipts/backfill", maintenanceHandler.BackfillReceipts)
}
