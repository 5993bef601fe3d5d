package transaction

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("transaction: not found")

// Record tracks one payment session end to end, keyed by the gateway
// token. It is created pending at session initiation and flipped to
// finalized exactly once by settlement. Records abandoned before the
// payer returns stay pending until an operator sweeps them.
type Record struct {
	Token     string
	UserID    string
	BuyOrder  string
	Flag      string
	Finalized bool
	CreatedAt time.Time
}

func NewRecord(token, userID, buyOrder, flag string) *Record {
	return &Record{
		Token:     token,
		UserID:    userID,
		BuyOrder:  buyOrder,
		Flag:      flag,
		Finalized: false,
		CreatedAt: time.Now().UTC(),
	}
}
