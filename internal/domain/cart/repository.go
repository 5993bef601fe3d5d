package cart

import "context"

type Repository interface {
	// Get returns ErrNotFound when the user has no cart of that kind.
	Get(ctx context.Context, userID string, kind Kind) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string, kind Kind) error
}
