package memory

import (
	"context"
	"sync"
	"time"

	domain "github.com/mgallardo/gamestore/internal/domain/transaction"
)

type TransactionRepository struct {
	mu      sync.RWMutex
	records map[string]*domain.Record
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		records: make(map[string]*domain.Record),
	}
}

func (r *TransactionRepository) Create(ctx context.Context, rec *domain.Record) error {
	_ = ctx
	if rec == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	clone := *rec
	r.records[rec.Token] = &clone
	return nil
}

func (r *TransactionRepository) Get(ctx context.Context, token string) (*domain.Record, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[token]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (r *TransactionRepository) MarkFinalized(ctx context.Context, token string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[token]
	if !ok {
		return domain.ErrNotFound
	}
	rec.Finalized = true
	return nil
}

func (r *TransactionRepository) ListStalePending(ctx context.Context, before time.Time) ([]*domain.Record, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Record
	for _, rec := range r.records {
		if !rec.Finalized && rec.CreatedAt.Before(before) {
			clone := *rec
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, token string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, token)
	return nil
}
