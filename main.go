package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrops-br/price-watch-api/internal/app/service"
	"github.com/mrops-br/price-watch-api/internal/domain"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/config"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/http"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/http/handler"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/repository/memory"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/repository/sqlite"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/search"
	"github.com/mrops-br/price-watch-api/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry
	telem, err := telemetry.New(ctx, &cfg.OTLP)
	if err != nil {
		log.Fatalf("Failed to initialize telemetry: %v", err)
	}

	// Ensure telemetry is shutdown on exit
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := telem.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	// Get tracer, meter, and logger instances
	tracer := telem.TracerProvider.Tracer("price-watch-api")
	meter := telem.MeterProvider.Meter("price-watch-api")
	logger := telem.Logger

	logger.Info("Starting Price Watch API")

	store, err := openStore(ctx, &cfg.Database, tracer, logger)
	if err != nil {
		logger.Error("Failed to open catalog store", slog.String("error", err.Error()))
		return
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close catalog store", slog.String("error", err.Error()))
		}
	}()

	provider, err := newSearchProvider(&cfg.Search, tracer, logger)
	if err != nil {
		logger.Error("Failed to initialize search provider", slog.String("error", err.Error()))
		return
	}

	// Initialize services (dependency injection)
	reconciler := service.NewCategoryReconciler(tracer, meter, logger)
	productService := service.NewProductService(store, provider, reconciler, tracer, meter, logger)
	subscriptionService := service.NewSubscriptionService(store, tracer, meter, logger)
	userService := service.NewUserService(store, tracer, logger)

	// Initialize handlers
	productHandler := handler.NewProductHandler(productService, logger)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService, userService, logger)

	// Initialize HTTP server
	server := http.NewServer(&cfg.Server, productHandler, subscriptionHandler, telem.MeterProvider, telem.MetricsHandler(), logger)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil {
			logger.Error("Server error", "error", err.Error())
			cancel()
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("Shutting down server...")
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.DatabaseConfig, tracer trace.Tracer, logger *slog.Logger) (domain.CatalogStore, error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("Using in-memory catalog store")
		return memory.NewStore(tracer, logger), nil
	case "sqlite":
		logger.Info("Using SQLite catalog store", slog.String("path", cfg.Path))
		return sqlite.Open(ctx, cfg.Path, tracer, logger)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.Driver)
	}
}

func newSearchProvider(cfg *config.SearchConfig, tracer trace.Tracer, logger *slog.Logger) (domain.SearchProvider, error) {
	switch cfg.Provider {
	case "static":
		return search.LoadStaticProvider(cfg.CatalogFile, tracer, logger)
	case "html":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("SEARCH_BASE_URL is required for the html provider")
		}
		return search.NewHTMLProvider(search.HTMLConfig{
			BaseURL:           cfg.BaseURL,
			QueryParam:        cfg.QueryParam,
			CategoryParam:     cfg.CategoryParam,
			UserAgent:         cfg.UserAgent,
			Timeout:           cfg.Timeout,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Selectors: search.Selectors{
				Item:           cfg.ItemSelector,
				Name:           cfg.NameSelector,
				Description:    cfg.DescSelector,
				Price:          cfg.PriceSelector,
				Category:       cfg.CategorySelector,
				CategoryIDAttr: cfg.CategoryIDAttr,
			},
		}, tracer, logger), nil
	default:
		return nil, fmt.Errorf("unknown SEARCH_PROVIDER %q", cfg.Provider)
	}
}
