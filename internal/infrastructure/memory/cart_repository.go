package memory

import (
	"context"
	"sync"

	domain "github.com/mgallardo/gamestore/internal/domain/cart"
)

type cartKey struct {
	userID string
	kind   domain.Kind
}

type CartRepository struct {
	mu    sync.RWMutex
	carts map[cartKey]*domain.Cart
}

func NewCartRepository() *CartRepository {
	return &CartRepository{
		carts: make(map[cartKey]*domain.Cart),
	}
}

func (r *CartRepository) Get(ctx context.Context, userID string, kind domain.Kind) (*domain.Cart, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.carts[cartKey{userID: userID, kind: kind}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCart(c), nil
}

func (r *CartRepository) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.carts[cartKey{userID: c.UserID, kind: c.Kind}] = cloneCart(c)
	return nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string, kind domain.Kind) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.carts, cartKey{userID: userID, kind: kind})
	return nil
}

func cloneCart(c *domain.Cart) *domain.Cart {
	if c == nil {
		return nil
	}
	clone := *c
	clone.Items = append([]domain.LineItem(nil), c.Items...)
	return &clone
}
