package settlement

import (
	"errors"
)

// State tracks a payment session through the settlement pipeline. The
// in-memory coordinator is discarded at the browser redirect, so states
// before Settled are reconstructable from the gateway token alone.
type State string

const (
	StateInitiated       State = "INITIATED"
	StateAwaitingGateway State = "AWAITING_GATEWAY"
	StateAuthorized      State = "AUTHORIZED"
	StateSettled         State = "SETTLED"
	StateFailed          State = "FAILED"
)

var (
	// ErrMissingToken means the return redirect carried no gateway token,
	// typically because the payer aborted at the provider.
	ErrMissingToken = errors.New("settlement: missing gateway token")
	// ErrCartResolution aborts settlement before any write when no cart
	// exists for the flow discriminator.
	ErrCartResolution = errors.New("settlement: cart not found for flow")
	// ErrInFlight means another invocation holds the per-token lock.
	ErrInFlight = errors.New("settlement: another settlement in flight for token")
	// ErrInventory flags a stock decrement failure after the purchase was
	// written; the purchase is kept and the case goes to manual
	// reconciliation.
	ErrInventory = errors.New("settlement: inventory update failed after purchase write")
)
