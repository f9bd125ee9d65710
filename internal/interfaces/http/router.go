package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/jhoicas/inventario-ledger/internal/application/analytics"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/sales"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	ProductUC   *usecase.ProductUseCase
	Ledger      *inventory.Engine
	Movements   repository.MovementRepository
	Reconcile   *inventory.ReconcileUseCase
	Sales       *sales.SaleEngine
	Adjustments *sales.AdjustmentEngine
	SaleQueries *sales.QueryUseCase
	Receipts    *sales.ReceiptUseCase
	Earnings    *analytics.EarningsUseCase
	JWTSecret   string
	JWTIssuer   string
}

// AppConfig configuración de Fiber para la API. Immutable: los ids de ruta y query
// se guardan en el ledger y deben sobrevivir al reciclado del buffer de fasthttp.
func AppConfig(name string) fiber.Config {
	return fiber.Config{
		AppName:      name,
		Immutable:    true,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	}
}

// pathID copia el parámetro :id fuera del buffer de la petición.
func pathID(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	stockWriters := RequireRole(jwt.RoleAdmin, jwt.RoleBodeguero)
	sellers := RequireRole(jwt.RoleAdmin, jwt.RoleVendedor)
	adminOnly := RequireRole(jwt.RoleAdmin)

	// Products
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.ProductUC)
	products.Get("/", productHandler.List)
	products.Post("/", stockWriters, productHandler.Create)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", stockWriters, productHandler.Update)
	products.Delete("/:id", adminOnly, productHandler.Delete)

	// Movements + ledger
	movementHandler := NewMovementHandler(deps.Ledger, deps.Movements, deps.Reconcile)
	movements := api.Group("/movements")
	movements.Get("/", movementHandler.List)
	movements.Post("/", stockWriters, movementHandler.Register)
	movements.Post("/batch", stockWriters, movementHandler.ApplyBatch)
	api.Get("/ledger/reconcile", adminOnly, movementHandler.Reconcile)

	// Sales
	saleHandler := NewSaleHandler(deps.Sales, deps.Adjustments, deps.SaleQueries, deps.Receipts)
	salesGroup := api.Group("/sales")
	salesGroup.Post("/", sellers, saleHandler.Checkout)
	salesGroup.Get("/", saleHandler.List)
	salesGroup.Get("/undoable", sellers, saleHandler.Undoable)
	salesGroup.Get("/:id", saleHandler.GetByID)
	salesGroup.Post("/:id/undo", sellers, saleHandler.Undo)
	salesGroup.Post("/:id/void", sellers, saleHandler.Void)
	salesGroup.Get("/:id/returns", sellers, saleHandler.StartReturn)
	salesGroup.Post("/:id/returns", sellers, saleHandler.ApplyReturn)
	salesGroup.Get("/:id/adjustments", saleHandler.Adjustments)
	salesGroup.Get("/:id/receipt", saleHandler.Receipt)

	// Analytics
	analyticsHandler := NewAnalyticsHandler(deps.Earnings)
	api.Get("/analytics/earnings", adminOnly, analyticsHandler.Earnings)
}
