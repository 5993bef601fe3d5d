// Command sweep reconciles abandoned payment sessions: pending
// transaction records older than the configured age are finalized when
// their purchase exists and deleted otherwise. Run it from cron.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	appSettlement "github.com/mgallardo/gamestore/internal/application/settlement"
	domsettlement "github.com/mgallardo/gamestore/internal/domain/settlement"
	"github.com/mgallardo/gamestore/internal/infrastructure/config"
	"github.com/mgallardo/gamestore/internal/infrastructure/gormstore"
	infraobs "github.com/mgallardo/gamestore/internal/infrastructure/observability"
	"github.com/mgallardo/gamestore/internal/infrastructure/observability/zaplogger"
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/mgallardo/gamestore/internal/pkg/logging"
)

func main() {
	cfg := config.Load()

	baseLogger := logging.MustNewLogger(cfg.ServiceName+"-sweep", cfg.Env)
	defer func() { _ = baseLogger.Sync() }()

	if cfg.MySQLDSN == "" {
		baseLogger.Fatal("mysql_dsn_required",
			zap.String("hint", "sweep only makes sense against persistent storage"),
		)
	}

	db, err := gormstore.Open(cfg.MySQLDSN)
	if err != nil {
		baseLogger.Fatal("storage_init_failed", zap.Error(err))
	}

	stores := domsettlement.Stores{
		Purchases:    gormstore.NewPurchaseRepository(db),
		Products:     gormstore.NewProductRepository(db),
		Carts:        gormstore.NewCartRepository(db),
		Transactions: gormstore.NewTransactionRepository(db),
	}

	tel := infraobs.New(nil, zaplogger.Wrap(baseLogger), nil, nil)
	sweeper := appSettlement.NewSweeper(stores, tel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := sweeper.SweepStale(ctx, cfg.StaleTransactionAge)
	if err != nil {
		baseLogger.Fatal("sweep_failed", zap.Error(err))
	}

	tel.Logger().Info("sweep_done",
		observability.F("examined", report.Examined),
		observability.F("finalized", report.Finalized),
		observability.F("deleted", report.Deleted),
	)
}
