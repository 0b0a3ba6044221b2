package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vendstock/vendstock-backend/internal/inventory/events"
	"github.com/vendstock/vendstock-backend/internal/inventory/handler"
	"github.com/vendstock/vendstock-backend/internal/inventory/repository"
	"github.com/vendstock/vendstock-backend/internal/inventory/service"
	"github.com/vendstock/vendstock-backend/pkg/config"
	"github.com/vendstock/vendstock-backend/pkg/database"
	"github.com/vendstock/vendstock-backend/pkg/httputil"
	"github.com/vendstock/vendstock-backend/pkg/logger"
	"github.com/vendstock/vendstock-backend/pkg/messaging"
	"github.com/vendstock/vendstock-backend/pkg/metrics"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-engine")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("inventory-engine", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Engine")

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	adjRepo := repository.NewAdjustmentRepository(db)

	// Initialize services
	inventoryService := service.NewInventoryService(db, productRepo, batchRepo, adjRepo, publisher, m, log)
	allocatorService := service.NewAllocatorService(db, productRepo, batchRepo, adjRepo, publisher, m, log)
	monitorService := service.NewMonitorService(productRepo, batchRepo, cfg.Inventory, log)
	scannerService := service.NewScannerService(monitorService, publisher, cfg.Inventory, log)

	// Initialize handlers
	productHandler := handler.NewProductHandler(inventoryService, log)
	batchHandler := handler.NewBatchHandler(inventoryService, log)
	allocationHandler := handler.NewAllocationHandler(allocatorService, log)
	monitorHandler := handler.NewMonitorHandler(monitorService, scannerService, log)
	auditHandler := handler.NewAuditHandler(inventoryService, adjRepo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start background monitoring sweep
	go scannerService.Run(ctx, cfg.Inventory.ScanInterval)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Actor(cfg.Auth.Secret))
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-engine",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// Prometheus metrics
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	// API routes
	r.Route("/api/v1/inventory", func(r chi.Router) {
		// Product routes
		r.Route("/products", func(r chi.Router) {
			r.Get("/", productHandler.List)
			r.Post("/", productHandler.Create)
			r.Get("/{id}", productHandler.Get)
			r.Put("/{id}", productHandler.Update)
			r.Delete("/{id}", productHandler.Delete)
			r.Post("/{id}/adjust", productHandler.AdjustStock)
			r.Get("/{id}/batches", batchHandler.ListByProduct)
			r.Post("/{id}/batches", batchHandler.Create)
			r.Get("/{id}/summary", monitorHandler.Summary)
			r.Get("/{id}/adjustments", auditHandler.ListByProduct)
		})

		// Batch routes
		r.Route("/batches", func(r chi.Router) {
			r.Get("/{id}", batchHandler.Get)
			r.Put("/{id}/quantity", batchHandler.Correct)
			r.Delete("/{id}", batchHandler.Delete)
		})

		// Allocation
		r.Post("/allocations", allocationHandler.Allocate)
		r.Get("/allocations/{orderID}/adjustments", auditHandler.ListByOrder)

		// Monitoring
		r.Get("/monitor/expiring", monitorHandler.ExpiringBatches)
		r.Get("/monitor/low-stock", monitorHandler.LowStock)
		r.Post("/monitor/scan", monitorHandler.Scan)

		// Maintenance
		r.Post("/maintenance/reset-daily-sales", productHandler.ResetDailySales)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Stop the background sweep
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
