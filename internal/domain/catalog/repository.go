package catalog

import "context"

type Repository interface {
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]*Product, error)
	Save(ctx context.Context, p *Product) error
	SetStock(ctx context.Context, id string, stock int) error
	// DecrementStock subtracts quantity from the product's stock in a
	// single conditional write, clamping the result at zero. Concurrent
	// decrements must not lose updates or drive stock negative.
	DecrementStock(ctx context.Context, id string, quantity int) error
}
