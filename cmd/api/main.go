package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/safar/retail-store/internal/catalog"
	"github.com/safar/retail-store/internal/config"
	"github.com/safar/retail-store/internal/database"
	"github.com/safar/retail-store/internal/fulfillment"
	"github.com/safar/retail-store/internal/logging"
	"github.com/safar/retail-store/internal/metrics"
	"github.com/safar/retail-store/internal/order"
	"github.com/safar/retail-store/internal/store"
	"github.com/safar/retail-store/internal/store/memory"
	"github.com/safar/retail-store/internal/transport/rest"
	"github.com/safar/retail-store/migrations"
)

// backend is what the API needs from a storage driver.
type backend interface {
	order.Repository
	catalog.Repository
	fulfillment.UnitOfWork
	rest.UserStore
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}
	logger := logging.New(cfg.Log)

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	entry := log.NewEntry(logger)

	db, repo, err := openStore(ctx, cfg, entry)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	transitions, err := order.ParseTransitionPolicy(cfg.Orders.TransitionPolicy)
	if err != nil {
		return err
	}
	stock, err := catalog.ParseStockPolicy(cfg.Catalog.StockPolicy)
	if err != nil {
		return err
	}

	collector := metrics.New()
	orderOpts := []order.Option{
		order.WithLogger(entry),
		order.WithMetrics(collector),
		order.WithTransitionPolicy(transitions),
	}
	catalogOpts := []catalog.Option{
		catalog.WithLogger(entry),
		catalog.WithMetrics(collector),
		catalog.WithStockPolicy(stock),
	}

	shipping := fulfillment.NewService(repo,
		fulfillment.WithOrderOptions(orderOpts...),
		fulfillment.WithCatalogOptions(catalogOpts...),
		fulfillment.WithLogger(entry),
	)
	handler := rest.NewHandler(
		order.NewEngine(repo, orderOpts...),
		catalog.NewEngine(repo, catalogOpts...),
		repo,
		rest.WithLogger(entry),
		rest.WithFulfillment(shipping),
	)

	router := chi.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.Mount("/", handler.Routes())

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithFields(log.Fields{
			"port":              cfg.Server.Port,
			"store":             cfg.Store.Driver,
			"transition_policy": cfg.Orders.TransitionPolicy,
			"stock_policy":      stock.String(),
		}).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore returns the configured backend. The *sql.DB is nil for the
// memory driver.
func openStore(ctx context.Context, cfg *config.Config, logger *log.Entry) (*sql.DB, backend, error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("Using in-memory store; data is lost on exit")
		return nil, memory.New(), nil
	}

	if cfg.Database.AutoMigrate {
		version, err := database.Migrate(cfg.Database.URL, migrations.FS, database.MigrateUp)
		if err != nil {
			return nil, nil, err
		}
		logger.WithField("version", version).Info("Schema migrated")
	}

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("Connected to database")

	return db, store.NewPostgres(db), nil
}
