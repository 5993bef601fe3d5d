package checkout

import (
	"context"
	"strings"
	"sync"
	"testing"

	domcart "github.com/mgallardo/gamestore/internal/domain/cart"
	dompayment "github.com/mgallardo/gamestore/internal/domain/payment"
	domtransaction "github.com/mgallardo/gamestore/internal/domain/transaction"
	"github.com/mgallardo/gamestore/internal/infrastructure/id"
	"github.com/mgallardo/gamestore/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	mu        sync.Mutex
	createErr error

	gotBuyOrder  string
	gotSessionID string
	gotAmount    int64
	gotReturnURL string
}

func (g *fakeGateway) Create(_ context.Context, buyOrder, sessionID string, amount int64, returnURL string) (*dompayment.CreateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.gotBuyOrder = buyOrder
	g.gotSessionID = sessionID
	g.gotAmount = amount
	g.gotReturnURL = returnURL
	return &dompayment.CreateResult{
		Token:       "tok-abc",
		RedirectURL: "https://gateway.test/webpay/init",
	}, nil
}

func (g *fakeGateway) Commit(context.Context, string) (*dompayment.CommitResult, error) {
	return nil, dompayment.ErrGatewayUnavailable
}

func (g *fakeGateway) Status(context.Context, string) (*dompayment.StatusResult, error) {
	return nil, dompayment.ErrGatewayUnavailable
}

func newFixture(t *testing.T) (*Service, *memory.CartRepository, *memory.TransactionRepository, *fakeGateway) {
	t.Helper()
	carts := memory.NewCartRepository()
	transactions := memory.NewTransactionRepository()
	gateway := &fakeGateway{}
	svc := NewService(carts, transactions, gateway, id.NewBuyOrderGenerator(), "https://shop.test", nil)
	return svc, carts, transactions, gateway
}

func seedCart(t *testing.T, carts *memory.CartRepository, userID string, kind domcart.Kind, total int64) {
	t.Helper()
	crt := domcart.New(userID, kind)
	require.NoError(t, crt.AddItem(domcart.LineItem{
		ProductID: "p1",
		Name:      "Game p1",
		UnitPrice: total,
		Quantity:  1,
	}, 1))
	require.NoError(t, carts.Save(context.Background(), crt))
}

func TestExecute_OpensSessionAndRecordsIt(t *testing.T) {
	svc, carts, transactions, gateway := newFixture(t)
	seedCart(t, carts, "user-1", domcart.KindShop, 4990)

	result, err := svc.Execute(context.Background(), InitiateInput{UserID: "user-1", Kind: domcart.KindShop})

	require.NoError(t, err)
	assert.Equal(t, "tok-abc", result.Token)
	assert.Equal(t, int64(4990), result.Amount)
	assert.Len(t, result.BuyOrder, 26)
	assert.Equal(t, "https://gateway.test/webpay/init?token_ws=tok-abc", result.RedirectURL)

	assert.Equal(t, result.BuyOrder, gateway.gotBuyOrder)
	assert.Len(t, gateway.gotSessionID, 26, "session id must respect the gateway length cap")
	assert.NotEqual(t, "user-1", gateway.gotSessionID, "raw user ids must not leak to the gateway")
	assert.NotEqual(t, result.BuyOrder, gateway.gotSessionID)
	assert.Equal(t, int64(4990), gateway.gotAmount)
	assert.Equal(t, "https://shop.test/api/payment/return?FLAG=SHOP", gateway.gotReturnURL)

	rec, err := transactions.Get(context.Background(), "tok-abc")
	require.NoError(t, err)
	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, result.BuyOrder, rec.BuyOrder)
	assert.Equal(t, "SHOP", rec.Flag)
	assert.False(t, rec.Finalized)
}

func TestExecute_FastFlowCarriesFlag(t *testing.T) {
	svc, carts, _, gateway := newFixture(t)
	seedCart(t, carts, "user-1", domcart.KindFast, 2990)

	_, err := svc.Execute(context.Background(), InitiateInput{UserID: "user-1", Kind: domcart.KindFast})

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(gateway.gotReturnURL, "?FLAG=FAST"))
}

func TestExecute_NoCart(t *testing.T) {
	svc, _, _, _ := newFixture(t)

	_, err := svc.Execute(context.Background(), InitiateInput{UserID: "user-1", Kind: domcart.KindShop})

	assert.ErrorIs(t, err, ErrNoCart)
}

func TestExecute_EmptyCart(t *testing.T) {
	svc, carts, _, _ := newFixture(t)
	require.NoError(t, carts.Save(context.Background(), domcart.New("user-1", domcart.KindShop)))

	_, err := svc.Execute(context.Background(), InitiateInput{UserID: "user-1", Kind: domcart.KindShop})

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestExecute_GatewayFailureRecordsNothing(t *testing.T) {
	svc, carts, transactions, gateway := newFixture(t)
	seedCart(t, carts, "user-1", domcart.KindShop, 1000)
	gateway.createErr = dompayment.ErrGatewayUnavailable

	_, err := svc.Execute(context.Background(), InitiateInput{UserID: "user-1", Kind: domcart.KindShop})

	require.ErrorIs(t, err, dompayment.ErrGatewayUnavailable)
	_, recErr := transactions.Get(context.Background(), "tok-abc")
	assert.ErrorIs(t, recErr, domtransaction.ErrNotFound)
}
