package cart

import "time"

// ClampedEvent is emitted when reconciliation lowered a line item's
// quantity because live stock shrank since the item was added. A
// notification worker turns it into a user-visible alert.
type ClampedEvent struct {
	UserID     string
	ProductID  string
	From       int
	To         int
	OccurredAt time.Time
}

func (ClampedEvent) EventName() string { return "cart.clamped" }

func NewClampedEvent(userID string, line ClampedLine) ClampedEvent {
	return ClampedEvent{
		UserID:     userID,
		ProductID:  line.ProductID,
		From:       line.From,
		To:         line.To,
		OccurredAt: time.Now().UTC(),
	}
}
