package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	dompurchase "github.com/mgallardo/gamestore/internal/domain/purchase"
	domsettlement "github.com/mgallardo/gamestore/internal/domain/settlement"
	"github.com/mgallardo/gamestore/internal/observability"
)

// Sweeper reconciles payment sessions abandoned before the payer
// returned: sessions old enough that no confirmation will arrive
// anymore. A session whose purchase exists is marked finalized (the
// finalize write was lost); the rest are deleted.
type Sweeper struct {
	stores domsettlement.Stores
	log    observability.Logger
}

func NewSweeper(stores domsettlement.Stores, tel observability.Observability) *Sweeper {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Sweeper{
		stores: stores,
		log:    tel.Logger().With(observability.F("component", "settlement_sweeper")),
	}
}

type SweepReport struct {
	Examined  int
	Finalized int
	Deleted   int
}

func (s *Sweeper) SweepStale(ctx context.Context, olderThan time.Duration) (*SweepReport, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	stale, err := s.stores.Transactions.ListStalePending(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("sweep: list stale sessions: %w", err)
	}

	report := &SweepReport{Examined: len(stale)}
	for _, rec := range stale {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		_, err := s.stores.Purchases.FindByTransactionID(ctx, rec.Token)
		switch {
		case err == nil:
			if err := s.stores.Transactions.MarkFinalized(ctx, rec.Token); err != nil {
				s.log.Warn("sweep_finalize_failed",
					observability.F("token", rec.Token),
					observability.F("error", err),
				)
				continue
			}
			report.Finalized++
			s.log.Info("sweep_session_finalized",
				observability.F("token", rec.Token),
				observability.F("user_id", rec.UserID),
			)
		case errors.Is(err, dompurchase.ErrNotFound):
			if err := s.stores.Transactions.Delete(ctx, rec.Token); err != nil {
				s.log.Warn("sweep_delete_failed",
					observability.F("token", rec.Token),
					observability.F("error", err),
				)
				continue
			}
			report.Deleted++
			s.log.Info("sweep_session_deleted",
				observability.F("token", rec.Token),
				observability.F("user_id", rec.UserID),
				observability.F("age_hours", time.Since(rec.CreatedAt).Hours()),
			)
		default:
			s.log.Warn("sweep_purchase_lookup_failed",
				observability.F("token", rec.Token),
				observability.F("error", err),
			)
		}
	}
	return report, nil
}
