package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/inventario-ledger/internal/application/analytics"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/application/sales"
	"github.com/jhoicas/inventario-ledger/internal/application/usecase"
	infrakafka "github.com/jhoicas/inventario-ledger/internal/infrastructure/kafka"
	infrapdf "github.com/jhoicas/inventario-ledger/internal/infrastructure/pdf"
	infrastore "github.com/jhoicas/inventario-ledger/internal/infrastructure/store"
	httpRouter "github.com/jhoicas/inventario-ledger/internal/interfaces/http"
	"github.com/jhoicas/inventario-ledger/pkg/config"
	"github.com/jhoicas/inventario-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.Log.Level,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")
	if cfg.JWT.Secret == "" {
		log.Warn().Msg("JWT_SECRET vacío: todas las rutas /api responderán 401")
	}

	ctx := context.Background()
	store, closeStore, err := infrastore.Open(ctx, cfg, log.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Str("store", cfg.Store.Driver).Msg("abrir almacenamiento")
	}
	defer closeStore()

	// Eventos del ledger: Kafka si hay brokers, si no se descartan.
	var publisher inventory.EventPublisher = inventory.NopPublisher{}
	if cfg.Kafka.Enabled() {
		kp := infrakafka.NewPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer closeQuietly(kp)
		publisher = kp
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("publicación de eventos activa")
	}
	events := inventory.NewNotifier(publisher, log.Component("ledger")).WithTimeout(cfg.Kafka.PublishTimeout())

	repos := store.Repos()
	ledger := inventory.NewEngine(store, events)
	undo := &sales.UndoSlot{}
	saleQueries := sales.NewQueryUseCase(repos.Sales(), repos.Adjustments())

	app := fiber.New(httpRouter.AppConfig(cfg.App.Name))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.HTTP.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(httpRouter.RequestLogger(log.Component("http")))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.Swagger.FilePath); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.Swagger.FilePath,
			Path:     "docs",
			Title:    "Inventario Ledger API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		ProductUC:   usecase.NewProductUseCase(store, repos.Products(), ledger, events),
		Ledger:      ledger,
		Movements:   repos.Movements(),
		Reconcile:   inventory.NewReconcileUseCase(store, repos.Products(), repos.Movements()),
		Sales:       sales.NewSaleEngine(store, ledger, undo, events),
		Adjustments: sales.NewAdjustmentEngine(store, ledger, undo, events),
		SaleQueries: saleQueries,
		Receipts:    sales.NewReceiptUseCase(saleQueries, infrapdf.NewReceiptGenerator(), cfg.App.Name),
		Earnings:    analytics.NewEarningsUseCase(repos.Sales(), repos.Adjustments()),
		JWTSecret:   cfg.JWT.Secret,
		JWTIssuer:   cfg.JWT.Issuer,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func closeQuietly(c io.Closer) { _ = c.Close() }
