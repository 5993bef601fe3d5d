package memory

import (
	"context"
	"sync"

	dsettlement "github.com/mgallardo/gamestore/internal/domain/settlement"
)

// TxRunner serializes settlement units behind one mutex. Writes inside fn
// go straight to the shared stores, so a returned error does not undo
// them; the settlement service is written so that the only error it
// returns from inside the unit happens before any write.
type TxRunner struct {
	mu     sync.Mutex
	stores dsettlement.Stores
}

func NewTxRunner(stores dsettlement.Stores) *TxRunner {
	return &TxRunner{stores: stores}
}

func (t *TxRunner) RunInTransaction(ctx context.Context, fn func(ctx context.Context, s dsettlement.Stores) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx, t.stores)
}
