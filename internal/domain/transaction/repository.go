package transaction

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Record) error
	Get(ctx context.Context, token string) (*Record, error)
	MarkFinalized(ctx context.Context, token string) error
	// ListStalePending returns records still pending that were created
	// before the cutoff; used by the out-of-band sweep, never by the core.
	ListStalePending(ctx context.Context, before time.Time) ([]*Record, error)
	Delete(ctx context.Context, token string) error
}
