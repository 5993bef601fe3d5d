package settlement

import (
	"context"
	"time"

	"github.com/mgallardo/gamestore/internal/domain/cart"
	"github.com/mgallardo/gamestore/internal/domain/catalog"
	"github.com/mgallardo/gamestore/internal/domain/purchase"
	"github.com/mgallardo/gamestore/internal/domain/transaction"
)

// Stores bundles the repositories the settlement critical section writes.
// Inside RunInTransaction they are bound to one storage transaction.
type Stores struct {
	Purchases    purchase.Repository
	Products     catalog.Repository
	Carts        cart.Repository
	Transactions transaction.Repository
}

// TxRunner applies fn as a single atomic unit: either every write in fn
// is visible afterwards or none is. This is what closes the
// duplicate-settlement and lost-update races between concurrent
// confirmations of the same token.
type TxRunner interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// Lock is a held mutual-exclusion lease.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes settlements per token across process instances.
// Obtain returns ErrInFlight when the key is already held.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}
