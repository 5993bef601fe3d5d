package purchase

import "context"

type Repository interface {
	// CreateIfAbsent inserts the purchase unless one already exists for
	// the same TransactionID. It reports whether the insert happened as
	// a single conditional write; a plain read-then-insert does not
	// satisfy this contract.
	CreateIfAbsent(ctx context.Context, p *Purchase) (created bool, err error)
	FindByTransactionID(ctx context.Context, transactionID string) (*Purchase, error)
	FindByID(ctx context.Context, id string) (*Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]*Purchase, error)
}
