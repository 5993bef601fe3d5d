package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	domcart "github.com/mgallardo/gamestore/internal/domain/cart"
	domcatalog "github.com/mgallardo/gamestore/internal/domain/catalog"
	domoutbox "github.com/mgallardo/gamestore/internal/domain/outbox"
	"github.com/mgallardo/gamestore/internal/observability"
	"github.com/mgallardo/gamestore/internal/observability/logctx"
)

const publishTimeout = 300 * time.Millisecond

var (
	ErrProductNotFound = domcatalog.ErrNotFound
	ErrItemNotFound    = domcart.ErrItemNotFound
)

// Service manages the two carts each user owns: the SHOP cart built up
// over browsing, and the FAST cart holding a single quick-buy item.
type Service struct {
	carts     domcart.Repository
	products  domcatalog.Repository
	publisher domoutbox.Publisher
	log       observability.Logger
}

func NewService(
	carts domcart.Repository,
	products domcatalog.Repository,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Service{
		carts:     carts,
		products:  products,
		publisher: publisher,
		log:       tel.Logger().With(observability.F("service", "cart-service")),
	}
}

func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*domcart.Cart, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	crt, err := s.carts.Get(ctx, userID, domcart.KindShop)
	if errors.Is(err, domcart.ErrNotFound) {
		crt = domcart.New(userID, domcart.KindShop)
	} else if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}

	err = crt.AddItem(domcart.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Photo:     product.Photo,
	}, product.Stock)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, crt); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return crt, nil
}

func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*domcart.Cart, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	crt, err := s.carts.Get(ctx, userID, domcart.KindShop)
	if err != nil {
		return nil, err
	}
	if err := crt.UpdateQuantity(productID, quantity, product.Stock); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, crt); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return crt, nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*domcart.Cart, error) {
	crt, err := s.carts.Get(ctx, userID, domcart.KindShop)
	if err != nil {
		return nil, err
	}
	if err := crt.RemoveItem(productID); err != nil {
		return nil, err
	}
	if err := s.carts.Save(ctx, crt); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return crt, nil
}

// SetFastItem replaces the user's quick-buy cart with a single line. The
// FAST cart never accumulates: each quick buy starts from scratch.
func (s *Service) SetFastItem(ctx context.Context, userID, productID string, quantity int) (*domcart.Cart, error) {
	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	crt := domcart.New(userID, domcart.KindFast)
	err = crt.AddItem(domcart.LineItem{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  quantity,
		Photo:     product.Photo,
	}, product.Stock)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Save(ctx, crt); err != nil {
		return nil, fmt.Errorf("cart: save: %w", err)
	}
	return crt, nil
}

// View returns the cart reconciled against live stock. Quantities above
// the current stock are clamped down and persisted before the cart is
// returned, so the user never checks out more than the shop can sell.
// Each clamp emits an event for the notification worker.
func (s *Service) View(ctx context.Context, userID string, kind domcart.Kind) (*domcart.Cart, error) {
	logger := logctx.FromOr(ctx, s.log)

	crt, err := s.carts.Get(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	if crt.IsEmpty() {
		return crt, nil
	}

	liveStock := make(map[string]int, len(crt.Items))
	for _, it := range crt.Items {
		product, err := s.products.GetByID(ctx, it.ProductID)
		if errors.Is(err, domcatalog.ErrNotFound) {
			// Product withdrawn from the catalog; treat as zero stock.
			liveStock[it.ProductID] = 0
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("cart: live stock for %s: %w", it.ProductID, err)
		}
		liveStock[it.ProductID] = product.Stock
	}

	clamped := crt.Clamp(liveStock)
	if len(clamped) == 0 {
		return crt, nil
	}

	if err := s.carts.Save(ctx, crt); err != nil {
		return nil, fmt.Errorf("cart: save clamped: %w", err)
	}
	logger.Info("cart_clamped",
		observability.F("user_id", userID),
		observability.F("kind", string(kind)),
		observability.F("lines", len(clamped)),
	)

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, line := range clamped {
		if pubErr := s.publisher.Publish(pubCtx, domcart.NewClampedEvent(userID, line)); pubErr != nil {
			logger.Warn("cart_clamp_event_publish_failed",
				observability.F("product_id", line.ProductID),
				observability.F("error", pubErr),
			)
		}
	}
	return crt, nil
}

func (s *Service) Clear(ctx context.Context, userID string, kind domcart.Kind) error {
	if err := s.carts.Delete(ctx, userID, kind); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}
