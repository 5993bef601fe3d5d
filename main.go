package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	appCart "github.com/mgallardo/gamestore/internal/application/cart"
	appCatalog "github.com/mgallardo/gamestore/internal/application/catalog"
	appCheckout "github.com/mgallardo/gamestore/internal/application/checkout"
	appPurchase "github.com/mgallardo/gamestore/internal/application/purchase"
	appSettlement "github.com/mgallardo/gamestore/internal/application/settlement"
	domsettlement "github.com/mgallardo/gamestore/internal/domain/settlement"
	"github.com/mgallardo/gamestore/internal/infrastructure/config"
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/mgallardo/gamestore/internal/infrastructure/gormstore"
	"github.com/mgallardo/gamestore/internal/infrastructure/id"
	"github.com/mgallardo/gamestore/internal/infrastructure/lock"
	"github.com/mgallardo/gamestore/internal/infrastructure/memory"
	notificationworker "github.com/mgallardo/gamestore/internal/infrastructure/notification/worker"
	infraobs "github.com/mgallardo/gamestore/internal/infrastructure/observability"
	"github.com/mgallardo/gamestore/internal/infrastructure/observability/oteltrace"
	"github.com/mgallardo/gamestore/internal/infrastructure/observability/prometrics"
	"github.com/mgallardo/gamestore/internal/infrastructure/observability/zaplogger"
	"github.com/mgallardo/gamestore/internal/infrastructure/outbox"
	"github.com/mgallardo/gamestore/internal/infrastructure/webpay"
	"github.com/mgallardo/gamestore/internal/pkg/logging"
	httppresentation "github.com/mgallardo/gamestore/internal/presentation/http"
)

func main() {
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	registry := prometrics.New("", "")
	counters, histograms := prometrics.DefaultInstruments(registry)
	tel := infraobs.New(
		oteltrace.New(cfg.ServiceName),
		zaplogger.Wrap(baseLogger),
		counters,
		histograms,
	)
	systemLogger := tel.Logger()

	stores, txRunner, err := buildStores(cfg)
	if err != nil {
		baseLogger.Fatal("storage_init_failed", zap.Error(err))
	}

	var locker domsettlement.Locker
	if cfg.RedisAddress != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedisLocker(rdb)
	} else {
		locker = lock.NewLocalLocker()
	}

	bus := outbox.NewBus(systemLogger)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	gateway := webpay.NewClient(cfg.WebpayBaseURL, cfg.WebpayCommerceCode, cfg.WebpayAPIKey)
	buyOrders := id.NewBuyOrderGenerator()
	uuids := id.NewUUIDGenerator()

	catalogService := appCatalog.NewService(stores.Products)
	cartService := appCart.NewService(stores.Carts, stores.Products, bus, tel)
	checkoutService := appCheckout.NewService(
		stores.Carts, stores.Transactions, gateway, buyOrders, cfg.ReturnBaseURL, tel,
	)
	settlementService := appSettlement.NewService(
		gateway, txRunner, locker, stores, bus, uuids, buyOrders, tel,
	)
	purchaseService := appPurchase.NewService(stores.Purchases)

	notificationWorker := notificationworker.New(bus, tel)
	notificationWorker.Start()

	handler := httppresentation.NewHandler(
		catalogService, cartService, checkoutService, settlementService, purchaseService, tel,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", otelhttp.NewHandler(handler.Router(), "http.server"))

	server := &http.Server{
		Addr:    cfg.Addr,
		Handler: mux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			observability.F("addr", server.Addr),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		systemLogger.Info("http_server_stopped")
	}
}

// buildStores selects the storage backend: MySQL via gorm when a DSN is
// configured, process memory otherwise. Both expose the same repository
// ports and transactional runner.
func buildStores(cfg config.Config) (domsettlement.Stores, domsettlement.TxRunner, error) {
	if cfg.MySQLDSN != "" {
		db, err := gormstore.Open(cfg.MySQLDSN)
		if err != nil {
			return domsettlement.Stores{}, nil, err
		}
		stores := domsettlement.Stores{
			Purchases:    gormstore.NewPurchaseRepository(db),
			Products:     gormstore.NewProductRepository(db),
			Carts:        gormstore.NewCartRepository(db),
			Transactions: gormstore.NewTransactionRepository(db),
		}
		return stores, gormstore.NewTxRunner(db), nil
	}

	stores := domsettlement.Stores{
		Purchases:    memory.NewPurchaseRepository(),
		Products:     memory.NewProductRepository(),
		Carts:        memory.NewCartRepository(),
		Transactions: memory.NewTransactionRepository(),
	}
	return stores, memory.NewTxRunner(stores), nil
}
