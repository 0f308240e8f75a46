package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_console/internal/cache"
	"github.com/GTDGit/gtd_console/internal/config"
	"github.com/GTDGit/gtd_console/internal/database"
	"github.com/GTDGit/gtd_console/internal/handler"
	"github.com/GTDGit/gtd_console/internal/importer"
	"github.com/GTDGit/gtd_console/internal/middleware"
	"github.com/GTDGit/gtd_console/internal/repository"
	"github.com/GTDGit/gtd_console/internal/service"
	"github.com/GTDGit/gtd_console/internal/sse"
	"github.com/GTDGit/gtd_console/internal/storage"
	"github.com/GTDGit/gtd_console/internal/utils"
	"github.com/GTDGit/gtd_console/internal/worker"
)

// main is the application entrypoint for the merchant console API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting console api")
	utils.ConfigureJWT(cfg.JWTSecret, cfg.JWTTTL)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	uploadStatus := cache.NewUploadStatusCache(redisClient, cfg.Import.UploadStatusTTL)
	// Counts outlive one refresh so a slow worker run never empties the badge.
	lowStockCache := cache.NewLowStockCache(redisClient, 2*cfg.Worker.LowStockInterval)

	// 4. Upload archive
	archive, err := storage.NewUploadArchive(context.Background(), &cfg.S3)
	if err != nil {
		log.Warn().Err(err).Msg("S3 archive initialization failed - uploads will not be archived")
	}

	// 5. Progress fan-out: live subscribers and the status cache
	hub := sse.NewHub()
	publisher := importer.MultiPublisher{sse.NewHubPublisher(hub), uploadStatus}

	// 6. Initialize repositories
	userRepo := repository.NewUserRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	productRepo := repository.NewProductRepository(db)
	inventoryRepo := repository.NewInventoryRepository(db)

	// 7. Initialize services
	authSvc := service.NewAuthService(userRepo)
	productSvc := service.NewProductService(db, productRepo, inventoryRepo, lowStockCache)
	importSvc := service.NewImportService(db, productRepo, inventoryRepo, archive, publisher, cfg.Import.BatchSize)
	stockSvc := service.NewStockService(db, productRepo, inventoryRepo, archive, publisher)

	// 8. Initialize middleware
	loginLimiter := middleware.NewFailedLoginLimiter(5, 15*time.Minute)
	jwtMw := middleware.NewJWTMiddleware()
	merchantMw := middleware.NewMerchantMiddleware(merchantRepo)

	// 9. Initialize handlers
	handlers := &Handlers{
		Health:     handler.NewHealthHandler(db, redisClient),
		Auth:       handler.NewAuthHandler(authSvc, loginLimiter),
		Product:    handler.NewProductHandler(productSvc),
		Stock:      handler.NewStockHandler(stockSvc),
		Import:     handler.NewImportHandler(importSvc, stockSvc, uploadStatus, cfg.Import.MaxFileSize),
		SSE:        handler.NewSSEHandler(hub, uploadStatus),
		ProgressWS: handler.NewProgressWSHandler(hub, uploadStatus, middleware.OriginChecker(cfg.CORSAllowedHosts)),
	}

	// 10. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.MaxMultipartMemory = cfg.Import.MaxFileSize
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedHosts))
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, jwtMw, merchantMw)

	// 11. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 12. Start workers
	go worker.NewLowStockWorker(inventoryRepo, lowStockCache, cfg.Worker.LowStockInterval).Start(ctx)
	go loginLimiter.Cleanup(ctx, time.Minute)

	// 13. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 14. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 15. Cancel context to stop workers
	cancel()

	// 16. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health     *handler.HealthHandler
	Auth       *handler.AuthHandler
	Product    *handler.ProductHandler
	Stock      *handler.StockHandler
	Import     *handler.ImportHandler
	SSE        *handler.SSEHandler
	ProgressWS *handler.ProgressWSHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, jwtMiddleware *middleware.JWTMiddleware, merchantMiddleware *middleware.MerchantMiddleware) {
	router.GET("/v1/health", handlers.Health.GetHealth)
	router.POST("/v1/auth/login", handlers.Auth.Login)

	v1 := router.Group("/v1")
	v1.Use(jwtMiddleware.Handle(), merchantMiddleware.Handle())
	{
		// Products
		v1.GET("/products", handlers.Product.ListProducts)
		v1.POST("/products", handlers.Product.CreateProduct)
		v1.GET("/products/low-stock", handlers.Product.LowStock)
		v1.GET("/products/low-stock/count", handlers.Product.LowStockCount)
		v1.GET("/products/:id", handlers.Product.GetProduct)
		v1.PUT("/products/:id", handlers.Product.UpdateProduct)
		v1.DELETE("/products/:id", handlers.Product.DeleteProduct)
		v1.GET("/categories", handlers.Product.GetCategories)

		// Stock and prices
		v1.PATCH("/products/:id/stock", handlers.Stock.UpdateStock)
		v1.PATCH("/products/:id/price", handlers.Stock.UpdatePrice)
		v1.PATCH("/stock", handlers.Stock.UpdateByNameOrSku)

		// Bulk imports
		v1.POST("/imports/products", handlers.Import.ImportProducts)
		v1.POST("/imports/stock", handlers.Import.ImportStock)
		v1.GET("/imports/template", handlers.Import.Template)
		v1.GET("/imports/:uploadId/status", handlers.Import.Status)
		v1.GET("/imports/:uploadId/events", handlers.SSE.Stream)
		v1.GET("/imports/:uploadId/ws", handlers.ProgressWS.Serve)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
