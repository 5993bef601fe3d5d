package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	domcart "github.com/mgallardo/gamestore/internal/domain/cart"
	dompayment "github.com/mgallardo/gamestore/internal/domain/payment"
	domtransaction "github.com/mgallardo/gamestore/internal/domain/transaction"
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/mgallardo/gamestore/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	checkoutService     = "checkout-service"
	useCaseInitiate     = "checkout.initiate"
	spanPrefix          = "UC."
	gatewayPeer         = "webpay"
	gatewayCreateName   = "transactions.create"
	returnPath          = "/api/payment/return"
	flagQueryParam      = "FLAG"
	tokenRedirectSuffix = "?token_ws="
)

var (
	// ErrEmptyCart means there is nothing to pay for; no gateway session
	// is opened.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	ErrNoCart    = domcart.ErrNotFound
)

// IDGenerator produces the opaque merchant identifiers sent to the
// gateway: the buy order and the session id, both capped at 26
// characters by the gateway contract.
type IDGenerator interface {
	NewID() string
}

// Service opens a payment session for the user's cart. The flow is
// suspended behind a browser redirect after Execute returns: the process
// resumes later, in another request, carrying only the gateway token.
type Service struct {
	carts        domcart.Repository
	transactions domtransaction.Repository
	gateway      dompayment.Gateway
	buyOrders    IDGenerator
	returnBase   string
	tel          observability.Observability

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewService(
	carts domcart.Repository,
	transactions domtransaction.Repository,
	gateway dompayment.Gateway,
	buyOrders IDGenerator,
	returnBase string,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Service{
		carts:        carts,
		transactions: transactions,
		gateway:      gateway,
		buyOrders:    buyOrders,
		returnBase:   returnBase,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", checkoutService)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

type InitiateInput struct {
	UserID string
	Kind   domcart.Kind
}

type InitiateResult struct {
	Token       string
	BuyOrder    string
	Amount      int64
	RedirectURL string
}

// Execute snapshots the cart, opens the gateway session and records the
// pending transaction keyed by the returned token. The redirect URL the
// caller sends the browser to already carries the token.
func (s *Service) Execute(ctx context.Context, cmd InitiateInput) (_ *InitiateResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseInitiate))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"InitiateCheckout",
		attribute.String("use_case", useCaseInitiate),
		attribute.String("cart.kind", string(cmd.Kind)),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

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
			observability.L("use_case", useCaseInitiate),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(lat,
			observability.L("use_case", useCaseInitiate),
		)

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

	if cmd.UserID == "" {
		outcome, statusText = "error", "USER_ID_REQUIRED"
		return nil, errors.New("checkout: user id is required")
	}

	crt, err := s.carts.Get(ctx, cmd.UserID, cmd.Kind)
	if errors.Is(err, domcart.ErrNotFound) {
		outcome, statusText = "error", "CART_NOT_FOUND"
		return nil, ErrNoCart
	}
	if err != nil {
		outcome, statusText = "error", "CART_LOOKUP_FAILED"
		return nil, fmt.Errorf("checkout: load cart: %w", err)
	}
	if crt.IsEmpty() {
		outcome, statusText = "error", "CART_EMPTY"
		return nil, ErrEmptyCart
	}

	buyOrder := s.buyOrders.NewID()
	// The gateway bounds sessionId at 26 characters while user ids come
	// from an unbounded header, so an opaque generated id goes out and
	// the user stays linked through the transaction record.
	sessionID := s.buyOrders.NewID()
	amount := crt.Total()
	returnURL := s.returnURL(cmd.Kind)

	span.SetAttributes(
		attribute.String("checkout.buy_order", buyOrder),
		attribute.Int64("checkout.amount", amount),
	)

	extStart := time.Now()
	created, err := s.gateway.Create(ctx, buyOrder, sessionID, amount, returnURL)
	extOutcome := "success"
	if err != nil {
		extOutcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayCreateName),
		observability.L("outcome", extOutcome),
	)
	s.extHistogram.Observe(time.Since(extStart).Seconds(),
		observability.L("peer", gatewayPeer),
		observability.L("endpoint", gatewayCreateName),
	)
	if err != nil {
		outcome, statusText = "error", "GATEWAY_CREATE_FAILED"
		return nil, fmt.Errorf("checkout: open payment session: %w", err)
	}

	rec := domtransaction.NewRecord(created.Token, cmd.UserID, buyOrder, string(cmd.Kind))
	if err := s.transactions.Create(ctx, rec); err != nil {
		outcome, statusText = "error", "TRANSACTION_RECORD_FAILED"
		return nil, fmt.Errorf("checkout: record payment session: %w", err)
	}

	span.AddEvent("checkout.session_opened",
		trace.WithAttributes(attribute.String("checkout.buy_order", buyOrder)),
	)

	return &InitiateResult{
		Token:       created.Token,
		BuyOrder:    buyOrder,
		Amount:      amount,
		RedirectURL: created.RedirectURL + tokenRedirectSuffix + created.Token,
	}, nil
}

// returnURL carries the cart kind through the gateway round trip as the
// FLAG query parameter; it is the only state that survives the redirect
// besides the token itself.
func (s *Service) returnURL(kind domcart.Kind) string {
	return s.returnBase + returnPath + "?" + flagQueryParam + "=" + url.QueryEscape(string(kind))
}
