package payment

import (
	"context"
	"errors"
)

var (
	// ErrGatewayUnavailable covers transport failures and provider-side
	// errors; the caller reports it without touching any local state.
	ErrGatewayUnavailable = errors.New("payment: gateway unavailable")
	// ErrInvalidRequest is returned when the provider rejects the
	// request parameters, e.g. a non-positive amount.
	ErrInvalidRequest = errors.New("payment: gateway rejected request")
)

// StatusAuthorized is the only gateway status that allows settlement to
// proceed. Every other status string is surfaced verbatim to the caller.
const StatusAuthorized = "AUTHORIZED"

type CreateResult struct {
	Token       string
	RedirectURL string
}

type CommitResult struct {
	Status          string
	BuyOrder        string
	SessionID       string
	PaymentTypeCode string
	Amount          int64
	ResponseCode    int
}

type StatusResult struct {
	Status   string
	BuyOrder string
	Amount   int64
}

// Gateway is the boundary to the external payment provider. Create
// suspends the flow behind a browser redirect; the process resumes later
// from a different invocation carrying only the token. Commit must be
// treated as at-least-once invoked. Status is read-only and never gates
// the settlement decision.
type Gateway interface {
	Create(ctx context.Context, buyOrder, sessionID string, amount int64, returnURL string) (*CreateResult, error)
	Commit(ctx context.Context, token string) (*CommitResult, error)
	Status(ctx context.Context, token string) (*StatusResult, error)
}
