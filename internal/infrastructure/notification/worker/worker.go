package worker

import (
	"context"

	domcart "github.com/mgallardo/gamestore/internal/domain/cart"
	domoutbox "github.com/mgallardo/gamestore/internal/domain/outbox"
	dompurchase "github.com/mgallardo/gamestore/internal/domain/purchase"
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/mgallardo/gamestore/internal/observability/logctx"
)

// Worker turns settlement and reconciliation events into user-facing
// notifications. The delivery here is the structured log stream; a mail
// or push sender would slot in behind the same handlers.
type Worker struct {
	subscriber domoutbox.Subscriber
	log        observability.Logger
	sent       observability.Counter
}

func New(subscriber domoutbox.Subscriber, obs observability.Observability) *Worker {
	return &Worker{
		subscriber: subscriber,
		log:        obs.Logger().With(observability.F("component", "notification_worker")),
		sent:       obs.Metrics().Counter(observability.MNotifications),
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(dompurchase.SettledEvent{}.EventName(), w.handlePurchaseSettled)
	w.subscriber.Subscribe(domcart.ClampedEvent{}.EventName(), w.handleCartClamped)
}

func (w *Worker) handlePurchaseSettled(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dompurchase.SettledEvent)
	if !ok {
		return nil
	}

	logger := logctx.FromOr(ctx, w.log)
	logger.Info("purchase_receipt_notified",
		observability.F("purchase_id", evt.PurchaseID),
		observability.F("user_id", evt.UserID),
		observability.F("total", evt.Total),
	)
	w.sent.Add(1, observability.L("kind", "purchase_settled"))
	return nil
}

func (w *Worker) handleCartClamped(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domcart.ClampedEvent)
	if !ok {
		return nil
	}

	logger := logctx.FromOr(ctx, w.log)
	logger.Info("cart_quantity_adjusted_notified",
		observability.F("user_id", evt.UserID),
		observability.F("product_id", evt.ProductID),
		observability.F("from", evt.From),
		observability.F("to", evt.To),
	)
	w.sent.Add(1, observability.L("kind", "cart_clamped"))
	return nil
}
