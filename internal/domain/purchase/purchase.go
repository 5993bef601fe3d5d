package purchase

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("purchase: not found")
	ErrTotalMismatch    = errors.New("purchase: total does not match line item subtotals")
	ErrMissingOwner     = errors.New("purchase: user id is required")
	ErrMissingReference = errors.New("purchase: transaction id is required")
)

type Item struct {
	ProductID string
	Name      string
	UnitPrice int64
	Quantity  int
	Subtotal  int64
	Photo     string
}

// Purchase is the append-only record of a settled payment. At most one
// Purchase exists per TransactionID; the conditional insert in the
// repository is what enforces it.
type Purchase struct {
	ID            string
	UserID        string
	TransactionID string
	Total         int64
	Date          time.Time
	BuyOrder      string
	PaymentType   string
	Items         []Item
}

func New(id, userID, transactionID string, total int64, buyOrder, paymentType string, items []Item) (*Purchase, error) {
	if userID == "" {
		return nil, ErrMissingOwner
	}
	if transactionID == "" {
		return nil, ErrMissingReference
	}
	var sum int64
	for _, it := range items {
		sum += it.Subtotal
	}
	if sum != total {
		return nil, ErrTotalMismatch
	}
	return &Purchase{
		ID:            id,
		UserID:        userID,
		TransactionID: transactionID,
		Total:         total,
		Date:          time.Now().UTC(),
		BuyOrder:      buyOrder,
		PaymentType:   paymentType,
		Items:         items,
	}, nil
}
