/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the loyalty points ledger server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env + environment configuration, parse flag overrides
  2. Initialize SQLite store
  3. Build engine, reason catalog and program service
  4. Configure HTTP router and metrics
  5. Start background sweep scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides PORT)
  -db      SQLite database path (overrides DATABASE_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the sweep scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/points.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/points-engine/api"
	"github.com/warp/points-engine/config"
	"github.com/warp/points-engine/ledger"
	"github.com/warp/points-engine/loyalty"
	"github.com/warp/points-engine/reporting"
	"github.com/warp/points-engine/store/sqlite"
)

func main() {
	// .env is optional; environment wins when both are set.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Flag overrides
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	flag.Parse()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	// Engine + program
	engine := ledger.NewEngine(store, ledger.Options{
		DefaultExpiry: ledger.ExpireAfterDays(cfg.DefaultTTLDays),
	})
	catalog, err := loadCatalog(cfg)
	if err != nil {
		logger.Fatal("failed to load reason catalog", zap.Error(err))
	}
	program := loyalty.NewProgram(engine, catalog)
	estimator := reporting.NewEstimator(engine, catalog.EarnRate, loyalty.ReasonPurchaseCredit)

	// HTTP surface
	metrics := api.NewMetrics(prometheus.DefaultRegisterer)
	handler := api.NewHandler(program, estimator, metrics, logger)
	router := api.NewRouter(handler)

	// Background sweeps
	scheduler := api.NewSweepScheduler(program, metrics, logger)
	scheduler.CheckInterval = cfg.SweepInterval
	scheduler.Enabled = cfg.SweepEnabled
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.String("earn_rate", catalog.EarnRate.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func loadCatalog(cfg *config.Config) (loyalty.Catalog, error) {
	if cfg.CatalogFile == "" {
		catalog := loyalty.DefaultCatalog()
		catalog.EarnRate = cfg.EarnRate
		return catalog, nil
	}
	raw, err := os.ReadFile(cfg.CatalogFile)
	if err != nil {
		return loyalty.Catalog{}, err
	}
	return loyalty.ParseCatalog(raw)
}
