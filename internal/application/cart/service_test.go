package cart

import (
	"context"
	"sync"
	"testing"

	domcart "github.com/mgallardo/gamestore/internal/domain/cart"
	domcatalog "github.com/mgallardo/gamestore/internal/domain/catalog"
	domoutbox "github.com/mgallardo/gamestore/internal/domain/outbox"
	"github.com/mgallardo/gamestore/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *capturePublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturePublisher) published() []domoutbox.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domoutbox.Event(nil), p.events...)
}

func newService(t *testing.T) (*Service, *memory.ProductRepository, *memory.CartRepository, *capturePublisher) {
	t.Helper()
	products := memory.NewProductRepository()
	carts := memory.NewCartRepository()
	publisher := &capturePublisher{}
	return NewService(carts, products, publisher, nil), products, carts, publisher
}

func seedProduct(t *testing.T, products *memory.ProductRepository, id string, price int64, stock int) {
	t.Helper()
	p, err := domcatalog.NewProduct(id, "Game "+id, price, stock, "")
	require.NoError(t, err)
	require.NoError(t, products.Save(context.Background(), p))
}

func TestAddItem(t *testing.T) {
	svc, products, _, _ := newService(t)
	seedProduct(t, products, "p1", 1000, 5)

	crt, err := svc.AddItem(context.Background(), "user-1", "p1", 2)

	require.NoError(t, err)
	assert.Equal(t, domcart.KindShop, crt.Kind)
	require.Len(t, crt.Items, 1)
	assert.Equal(t, int64(2000), crt.Total())
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _, _, _ := newService(t)

	_, err := svc.AddItem(context.Background(), "user-1", "ghost", 1)

	assert.ErrorIs(t, err, domcatalog.ErrNotFound)
}

func TestAddItem_ExceedsStock(t *testing.T) {
	svc, products, _, _ := newService(t)
	seedProduct(t, products, "p1", 1000, 3)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", 4)

	assert.ErrorIs(t, err, domcart.ErrQuantityExceedsStock)
}

func TestSetFastItem_ReplacesPreviousQuickBuy(t *testing.T) {
	svc, products, _, _ := newService(t)
	seedProduct(t, products, "p1", 1000, 5)
	seedProduct(t, products, "p2", 2500, 5)

	_, err := svc.SetFastItem(context.Background(), "user-1", "p1", 2)
	require.NoError(t, err)

	crt, err := svc.SetFastItem(context.Background(), "user-1", "p2", 1)

	require.NoError(t, err)
	assert.Equal(t, domcart.KindFast, crt.Kind)
	require.Len(t, crt.Items, 1)
	assert.Equal(t, "p2", crt.Items[0].ProductID)
	assert.Equal(t, int64(2500), crt.Total())
}

func TestView_ClampsToLiveStockAndNotifies(t *testing.T) {
	svc, products, _, publisher := newService(t)
	seedProduct(t, products, "p1", 1000, 5)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", 5)
	require.NoError(t, err)

	// Stock shrinks after the item went into the cart.
	require.NoError(t, products.SetStock(context.Background(), "p1", 2))

	crt, err := svc.View(context.Background(), "user-1", domcart.KindShop)

	require.NoError(t, err)
	assert.Equal(t, 2, crt.Items[0].Quantity)
	assert.Equal(t, int64(2000), crt.Total())

	events := publisher.published()
	require.Len(t, events, 1)
	evt, ok := events[0].(domcart.ClampedEvent)
	require.True(t, ok)
	assert.Equal(t, "p1", evt.ProductID)
	assert.Equal(t, 5, evt.From)
	assert.Equal(t, 2, evt.To)

	// The clamp is persisted: a second view sees it without re-clamping.
	again, err := svc.View(context.Background(), "user-1", domcart.KindShop)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Items[0].Quantity)
	assert.Len(t, publisher.published(), 1)
}

func TestView_WithdrawnProductClampsToZero(t *testing.T) {
	svc, products, carts, publisher := newService(t)
	seedProduct(t, products, "p1", 1000, 5)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", 3)
	require.NoError(t, err)

	// Simulate catalog withdrawal by rebuilding the product store view:
	// the cart still references p1 but the product is gone.
	crt, err := carts.Get(context.Background(), "user-1", domcart.KindShop)
	require.NoError(t, err)
	crt.Items[0].ProductID = "withdrawn"
	require.NoError(t, carts.Save(context.Background(), crt))

	viewed, err := svc.View(context.Background(), "user-1", domcart.KindShop)

	require.NoError(t, err)
	assert.Equal(t, 0, viewed.Items[0].Quantity)
	assert.Len(t, publisher.published(), 1)
}

func TestUpdateQuantityAndRemove(t *testing.T) {
	svc, products, _, _ := newService(t)
	seedProduct(t, products, "p1", 1000, 5)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", 1)
	require.NoError(t, err)

	crt, err := svc.UpdateQuantity(context.Background(), "user-1", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, crt.Items[0].Quantity)

	_, err = svc.UpdateQuantity(context.Background(), "user-1", "p1", 9)
	assert.ErrorIs(t, err, domcart.ErrQuantityExceedsStock)

	crt, err = svc.RemoveItem(context.Background(), "user-1", "p1")
	require.NoError(t, err)
	assert.True(t, crt.IsEmpty())
}

func TestClear(t *testing.T) {
	svc, products, carts, _ := newService(t)
	seedProduct(t, products, "p1", 1000, 5)

	_, err := svc.AddItem(context.Background(), "user-1", "p1", 1)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(context.Background(), "user-1", domcart.KindShop))

	_, err = carts.Get(context.Background(), "user-1", domcart.KindShop)
	assert.ErrorIs(t, err, domcart.ErrNotFound)
}
