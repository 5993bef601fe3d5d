package memory

import (
	"context"
	"sort"
	"sync"

	domain "github.com/mgallardo/gamestore/internal/domain/purchase"
)

type PurchaseRepository struct {
	mu            sync.RWMutex
	byID          map[string]*domain.Purchase
	byTransaction map[string]*domain.Purchase
}

func NewPurchaseRepository() *PurchaseRepository {
	return &PurchaseRepository{
		byID:          make(map[string]*domain.Purchase),
		byTransaction: make(map[string]*domain.Purchase),
	}
}

// CreateIfAbsent checks and inserts under one write lock, which is this
// store's equivalent of a conditional insert on the unique transaction id.
func (r *PurchaseRepository) CreateIfAbsent(ctx context.Context, p *domain.Purchase) (bool, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byTransaction[p.TransactionID]; ok {
		return false, nil
	}
	clone := clonePurchase(p)
	r.byID[p.ID] = clone
	r.byTransaction[p.TransactionID] = clone
	return true, nil
}

func (r *PurchaseRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Purchase, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byTransaction[transactionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePurchase(p), nil
}

func (r *PurchaseRepository) FindByID(ctx context.Context, id string) (*domain.Purchase, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clonePurchase(p), nil
}

func (r *PurchaseRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Purchase, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Purchase
	for _, p := range r.byID {
		if p.UserID == userID {
			out = append(out, clonePurchase(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func clonePurchase(p *domain.Purchase) *domain.Purchase {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Items = append([]domain.Item(nil), p.Items...)
	return &clone
}
