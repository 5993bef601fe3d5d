package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcart "github.com/mgallardo/gamestore/internal/domain/cart"
	domoutbox "github.com/mgallardo/gamestore/internal/domain/outbox"
	dompayment "github.com/mgallardo/gamestore/internal/domain/payment"
	dompurchase "github.com/mgallardo/gamestore/internal/domain/purchase"
	domsettlement "github.com/mgallardo/gamestore/internal/domain/settlement"
	domtransaction "github.com/mgallardo/gamestore/internal/domain/transaction"
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/mgallardo/gamestore/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	settlementService  = "settlement-service"
	useCaseConfirm     = "settlement.confirm"
	useCaseStatus      = "settlement.status"
	spanPrefix         = "UC."
	gatewayPeer        = "webpay"
	gatewayCommitName  = "transactions.commit"
	gatewayStatusName  = "transactions.status"
	publishPeer        = "outbox"
	publishTimeout     = 300 * time.Millisecond
	settlementLockTTL  = 30 * time.Second
	outcomeSettled     = "settled"
	outcomeReplayed    = "replayed"
	outcomeNotAuthzd   = "not_authorized"
	outcomeInventoryWn = "inventory_warning"
)

var (
	ErrMissingToken   = domsettlement.ErrMissingToken
	ErrCartResolution = domsettlement.ErrCartResolution
	ErrInFlight       = domsettlement.ErrInFlight
	ErrUnknownSession = domtransaction.ErrNotFound
)

// IDGenerator produces purchase identifiers and the replacement merchant
// order id recorded on the purchase.
type IDGenerator interface {
	NewID() string
}

// Service confirms a returned payment session and settles it: exactly
// one purchase per gateway token, stock decremented, cart cleared. The
// call is safe to replay; every invocation after the first observes the
// purchase written by the winner and changes nothing.
type Service struct {
	gateway   dompayment.Gateway
	txRunner  domsettlement.TxRunner
	locker    domsettlement.Locker
	reader    domsettlement.Stores
	publisher domoutbox.Publisher
	ids       IDGenerator
	buyOrders IDGenerator
	tel       observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
	settlements  observability.Counter
}

// NewService wires the settlement coordinator. reader serves the
// pre-transaction dedup read and status lookups; writes only ever happen
// through txRunner.
func NewService(
	gateway dompayment.Gateway,
	txRunner domsettlement.TxRunner,
	locker domsettlement.Locker,
	reader domsettlement.Stores,
	publisher domoutbox.Publisher,
	ids IDGenerator,
	buyOrders IDGenerator,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Service{
		gateway:      gateway,
		txRunner:     txRunner,
		locker:       locker,
		reader:       reader,
		publisher:    publisher,
		ids:          ids,
		buyOrders:    buyOrders,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", settlementService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
		settlements:  metrics.Counter(observability.MSettlements),
	}
}

type ConfirmInput struct {
	Token string
	// Flag is the cart kind echoed back by the gateway return URL. When
	// it does not parse, the recorded session's flag wins.
	Flag string
}

type ConfirmResult struct {
	// Status is the gateway's verdict, e.g. AUTHORIZED or FAILED.
	Status   string
	Purchase *dompurchase.Purchase
	// Replayed is true when this confirmation found the purchase already
	// settled by an earlier invocation of the same token.
	Replayed bool
	// InventoryWarning is non-nil when one or more stock decrements
	// failed after the purchase row was written. The purchase stands;
	// the discrepancy goes to reconciliation.
	InventoryWarning error
}

// Confirm settles one returned payment session.
func (s *Service) Confirm(ctx context.Context, cmd ConfirmInput) (_ *ConfirmResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseConfirm))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"ConfirmSettlement",
		attribute.String("use_case", useCaseConfirm),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	settlementOutcome := ""

	defer func() {
		lat := time.Since(start).Seconds()

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		s.reqCounter.Add(1,
			observability.L("use_case", useCaseConfirm),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat,
			observability.L("use_case", useCaseConfirm),
		)
		if settlementOutcome != "" {
			s.settlements.Add(1, observability.L("outcome", settlementOutcome))
		}

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if cmd.Token == "" {
		outcome, statusText = "error", "TOKEN_MISSING"
		return nil, ErrMissingToken
	}

	lock, err := s.locker.Obtain(ctx, cmd.Token, settlementLockTTL)
	if err != nil {
		if errors.Is(err, domsettlement.ErrInFlight) {
			outcome, statusText = "error", "SETTLEMENT_IN_FLIGHT"
			return nil, ErrInFlight
		}
		outcome, statusText = "error", "LOCK_FAILED"
		return nil, fmt.Errorf("settlement: obtain lock: %w", err)
	}
	defer func() {
		if releaseErr := lock.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			logger.Warn("settlement_lock_release_failed",
				observability.F("error", releaseErr),
			)
		}
	}()

	// A confirmation replayed after settlement finds its purchase here
	// and returns before touching the gateway again. This also covers
	// page reloads that arrive after the cart was already cleared.
	if existing, lookupErr := s.reader.Purchases.FindByTransactionID(ctx, cmd.Token); lookupErr == nil {
		statusText = "REPLAYED"
		settlementOutcome = outcomeReplayed
		span.AddEvent("settlement.replayed",
			trace.WithAttributes(attribute.String("purchase.id", existing.ID)),
		)
		return &ConfirmResult{
			Status:   dompayment.StatusAuthorized,
			Purchase: existing,
			Replayed: true,
		}, nil
	} else if !errors.Is(lookupErr, dompurchase.ErrNotFound) {
		outcome, statusText = "error", "DEDUP_LOOKUP_FAILED"
		return nil, fmt.Errorf("settlement: dedup lookup: %w", lookupErr)
	}

	rec, err := s.reader.Transactions.Get(ctx, cmd.Token)
	if errors.Is(err, domtransaction.ErrNotFound) {
		outcome, statusText = "error", "SESSION_UNKNOWN"
		return nil, ErrUnknownSession
	}
	if err != nil {
		outcome, statusText = "error", "SESSION_LOOKUP_FAILED"
		return nil, fmt.Errorf("settlement: load session: %w", err)
	}

	kind, ok := domcart.ParseKind(cmd.Flag)
	if !ok {
		kind, ok = domcart.ParseKind(rec.Flag)
		if !ok {
			kind = domcart.KindShop
		}
	}
	span.SetAttributes(attribute.String("cart.kind", string(kind)))

	commit, err := s.commitWithGateway(ctx, cmd.Token)
	if err != nil {
		outcome, statusText = "error", "GATEWAY_COMMIT_FAILED"
		return nil, err
	}
	span.SetAttributes(attribute.String("gateway.status", commit.Status))

	if commit.Status != dompayment.StatusAuthorized {
		statusText = "NOT_AUTHORIZED"
		settlementOutcome = outcomeNotAuthzd
		logger.Info("settlement_not_authorized",
			observability.F("gateway_status", commit.Status),
			observability.F("response_code", commit.ResponseCode),
		)
		return &ConfirmResult{Status: commit.Status}, nil
	}

	crt, err := s.reader.Carts.Get(ctx, rec.UserID, kind)
	if errors.Is(err, domcart.ErrNotFound) {
		outcome, statusText = "error", "CART_RESOLUTION_FAILED"
		return nil, ErrCartResolution
	}
	if err != nil {
		outcome, statusText = "error", "CART_LOOKUP_FAILED"
		return nil, fmt.Errorf("settlement: load cart: %w", err)
	}
	if crt.IsEmpty() {
		outcome, statusText = "error", "CART_RESOLUTION_FAILED"
		return nil, ErrCartResolution
	}

	items := make([]dompurchase.Item, 0, len(crt.Items))
	for _, li := range crt.Items {
		items = append(items, dompurchase.Item{
			ProductID: li.ProductID,
			Name:      li.Name,
			UnitPrice: li.UnitPrice,
			Quantity:  li.Quantity,
			Subtotal:  li.Subtotal,
			Photo:     li.Photo,
		})
	}
	entity, err := dompurchase.New(
		s.ids.NewID(),
		rec.UserID,
		cmd.Token,
		crt.Total(),
		s.buyOrders.NewID(),
		commit.PaymentTypeCode,
		items,
	)
	if err != nil {
		outcome, statusText = "error", "PURCHASE_CONSTRUCTION_FAILED"
		return nil, fmt.Errorf("settlement: construct purchase: %w", err)
	}

	var (
		settled       *dompurchase.Purchase
		replayed      bool
		inventoryErrs []error
	)
	err = s.txRunner.RunInTransaction(ctx, func(ctx context.Context, st domsettlement.Stores) error {
		created, txErr := st.Purchases.CreateIfAbsent(ctx, entity)
		if txErr != nil {
			return fmt.Errorf("settlement: write purchase: %w", txErr)
		}
		if !created {
			// Another invocation slipped in between the dedup read and
			// this insert. Its purchase wins; nothing else changes.
			existing, txErr := st.Purchases.FindByTransactionID(ctx, cmd.Token)
			if txErr != nil {
				return fmt.Errorf("settlement: load winning purchase: %w", txErr)
			}
			settled, replayed = existing, true
			return nil
		}
		settled = entity

		// Decrement failures are collected, not returned: aborting here
		// would roll the purchase back, and the money already moved.
		for _, it := range entity.Items {
			if txErr := st.Products.DecrementStock(ctx, it.ProductID, it.Quantity); txErr != nil {
				inventoryErrs = append(inventoryErrs, fmt.Errorf("product %s: %w", it.ProductID, txErr))
			}
		}

		if txErr := st.Carts.Delete(ctx, rec.UserID, kind); txErr != nil {
			return fmt.Errorf("settlement: clear cart: %w", txErr)
		}
		if kind == domcart.KindShop {
			// The shopper keeps a standing SHOP cart; the quick-buy cart
			// is discarded outright.
			if txErr := st.Carts.Save(ctx, domcart.New(rec.UserID, domcart.KindShop)); txErr != nil {
				return fmt.Errorf("settlement: recreate cart: %w", txErr)
			}
		}
		if txErr := st.Transactions.MarkFinalized(ctx, cmd.Token); txErr != nil {
			return fmt.Errorf("settlement: finalize session: %w", txErr)
		}
		return nil
	})
	if err != nil {
		outcome, statusText = "error", "SETTLEMENT_TX_FAILED"
		return nil, err
	}

	result := &ConfirmResult{
		Status:   dompayment.StatusAuthorized,
		Purchase: settled,
		Replayed: replayed,
	}
	if replayed {
		statusText = "REPLAYED"
		settlementOutcome = outcomeReplayed
		return result, nil
	}

	settlementOutcome = outcomeSettled
	if len(inventoryErrs) > 0 {
		statusText = "INVENTORY_WARNING"
		settlementOutcome = outcomeInventoryWn
		result.InventoryWarning = fmt.Errorf("%w: %w", domsettlement.ErrInventory, errors.Join(inventoryErrs...))
		logger.Warn("settlement_inventory_warning",
			observability.F("purchase_id", settled.ID),
			observability.F("error", result.InventoryWarning.Error()),
		)
	}

	span.AddEvent("settlement.settled",
		trace.WithAttributes(attribute.String("purchase.id", settled.ID)),
	)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if pubErr := s.publisher.Publish(pubCtx, dompurchase.NewSettledEvent(settled)); pubErr != nil {
		logger.Warn("settlement_event_publish_failed",
			observability.F("purchase_id", settled.ID),
			observability.F("error", pubErr),
		)
	}

	return result, nil
}

func (s *Service) commitWithGateway(ctx context.Context, token string) (*dompayment.CommitResult, error) {
	extStart := time.Now()
	commit, err := s.gateway.Commit(ctx, token)
	extOutcome := "success"
	if err != nil {
		extOutcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayCommitName),
		observability.L("outcome", extOutcome),
	)
	s.extHistogram.Observe(time.Since(extStart).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayCommitName),
	)
	if err != nil {
		return nil, fmt.Errorf("settlement: gateway commit: %w", err)
	}
	return commit, nil
}

// QueryStatus reads the gateway's view of a session. It is display-only
// and never gates or triggers settlement.
func (s *Service) QueryStatus(ctx context.Context, token string) (*dompayment.StatusResult, error) {
	if token == "" {
		return nil, ErrMissingToken
	}
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseStatus))

	extStart := time.Now()
	res, err := s.gateway.Status(ctx, token)
	extOutcome := "success"
	if err != nil {
		extOutcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayStatusName),
		observability.L("outcome", extOutcome),
	)
	s.extHistogram.Observe(time.Since(extStart).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayStatusName),
	)
	if err != nil {
		logger.Warn("status_query_failed", observability.F("error", err))
		return nil, fmt.Errorf("settlement: gateway status: %w", err)
	}
	return res, nil
}
