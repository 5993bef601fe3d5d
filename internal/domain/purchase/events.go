package purchase

import "time"

// SettledEvent is emitted after a purchase has been persisted and stock
// decremented. Replayed confirmations of the same token do not emit it.
type SettledEvent struct {
	PurchaseID    string
	UserID        string
	TransactionID string
	Total         int64
	OccurredAt    time.Time
}

func (SettledEvent) EventName() string { return "purchase.settled" }

func NewSettledEvent(p *Purchase) SettledEvent {
	return SettledEvent{
		PurchaseID:    p.ID,
		UserID:        p.UserID,
		TransactionID: p.TransactionID,
		Total:         p.Total,
		OccurredAt:    time.Now().UTC(),
	}
}
