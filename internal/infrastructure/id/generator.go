package id

import (
	"crypto/rand"

	"github.com/google/uuid"
)

const (
	buyOrderLength   = 26
	buyOrderAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// BuyOrderGenerator produces merchant order identifiers: 26 characters
// drawn uniformly from the 62-symbol alphanumeric alphabet. No local
// uniqueness check is performed; the space is large enough that
// collisions are treated as negligible.
type BuyOrderGenerator struct{}

func NewBuyOrderGenerator() *BuyOrderGenerator { return &BuyOrderGenerator{} }

func (*BuyOrderGenerator) NewID() string {
	out := make([]byte, 0, buyOrderLength)
	buf := make([]byte, buyOrderLength)
	for len(out) < buyOrderLength {
		if _, err := rand.Read(buf); err != nil {
			panic(err)
		}
		for _, b := range buf {
			// Reject bytes >= 248 so the modulo stays unbiased (248 = 62*4).
			if b >= 248 {
				continue
			}
			out = append(out, buyOrderAlphabet[int(b)%len(buyOrderAlphabet)])
			if len(out) == buyOrderLength {
				break
			}
		}
	}
	return string(out)
}

// UUIDGenerator is used where identifiers only need to be unique, e.g.
// purchase ids and request ids.
type UUIDGenerator struct{}

func NewUUIDGenerator() *UUIDGenerator { return &UUIDGenerator{} }

func (*UUIDGenerator) NewID() string { return uuid.NewString() }
