package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/localnerve/maintdb/internal/cache"
	"github.com/localnerve/maintdb/internal/config"
	"github.com/localnerve/maintdb/internal/database"
	"github.com/localnerve/maintdb/internal/handlers"
	"github.com/localnerve/maintdb/internal/logging"
	"github.com/localnerve/maintdb/internal/middleware"
	"go.uber.org/zap"

	_ "github.com/localnerve/maintdb/docs/api" // Swagger docs
)

// @title MaintDB API
// @version 1.0.0
// @description Maintenance tracking and materials request data service
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/localnerve/maintdb
// @contact.email info@localnerve.com

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name cookie_session

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = zl.Sync() }()

	db, err := database.Connect(cfg, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	// Run auto-migrations and seed the default request statuses
	ctx := context.Background()
	if err := database.AutoMigrate(ctx, db); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}
	if n, err := database.SeedStatusTypes(ctx, db); err != nil {
		zl.Fatal("failed to seed status types", zap.Error(err))
	} else if n > 0 {
		zl.Info("seeded request status types", zap.Int("count", n))
	}

	queryCache, err := cache.New(cfg.CacheSize, zl.Named("cache"))
	if err != nil {
		zl.Fatal("failed to create query cache", zap.Error(err))
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(zl),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("maintdb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	handlers.Register(api, handlers.Dependencies{
		DB:     db,
		Cache:  queryCache,
		Logger: zl,
		Config: cfg,
	})

	// 404 handler
	app.Use(handlers.NotFound)

	if cfg.AuthEnabled() {
		zl.Info("authorizer will be initialized on first authenticated request", zap.String("url", cfg.AuthzURL))
	} else {
		zl.Warn("AUTHZ_URL not set, mutating routes are not authenticated")
	}

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		zl.Info("gracefully shutting down")
		_ = app.Shutdown()
	}()

	// Start server
	zl.Info("starting server", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zl.Error("failed to start server", zap.Error(err))
	}

	zl.Info("server stopped")
}
