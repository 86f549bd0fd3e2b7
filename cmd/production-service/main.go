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

	"github.com/brauwerk/brauwerk-backend/internal/production/events"
	"github.com/brauwerk/brauwerk-backend/internal/production/handler"
	"github.com/brauwerk/brauwerk-backend/internal/production/repository"
	"github.com/brauwerk/brauwerk-backend/internal/production/service"
	"github.com/brauwerk/brauwerk-backend/pkg/config"
	"github.com/brauwerk/brauwerk-backend/pkg/database"
	"github.com/brauwerk/brauwerk-backend/pkg/httputil"
	"github.com/brauwerk/brauwerk-backend/pkg/logger"
	"github.com/brauwerk/brauwerk-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("production-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("production-service", cfg.Server.Environment)
	log.Info().Msg("starting Production Service")

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
	publisher, err := events.NewProductionEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	itemRepo := repository.NewItemRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	lotRepo := repository.NewLotRepository(db)
	tankRepo := repository.NewTankRepository(db)
	timelineRepo := repository.NewTimelineRepository(db)

	// Initialize services
	resolver := service.NewItemResolver(itemRepo, log)
	ledgerService := service.NewLedgerService(db, itemRepo, ledgerRepo, publisher, log)
	deductionService := service.NewDeductionService(db, resolver, itemRepo, ledgerService, publisher, log)
	transitionService := service.NewTransitionService(db, batchRepo, lotRepo, tankRepo, timelineRepo, publisher, log)
	lotQueryService := service.NewLotQueryService(lotRepo, tankRepo, log)

	// Initialize handlers
	ledgerHandler := handler.NewLedgerHandler(ledgerService, deductionService, log)
	deductionHandler := handler.NewDeductionHandler(deductionService, log)
	productionHandler := handler.NewProductionHandler(transitionService, lotQueryService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-User-ID", "X-User-Name", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.TenantMiddleware) // Extract tenant context from headers

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "production-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/production", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/{id}/balance", ledgerHandler.GetBalance)
			r.Get("/{id}/ledger", ledgerHandler.GetHistory)
			r.Post("/{id}/ledger", ledgerHandler.Adjust)
		})

		r.Post("/inventory/deduct", deductionHandler.Deduct)

		r.Route("/batches", func(r chi.Router) {
			r.Post("/{id}/packaging/start", productionHandler.StartPackaging)
			r.Get("/{id}/timeline", productionHandler.GetTimeline)
		})

		r.Get("/lots/active", productionHandler.ListActiveLots)
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

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
