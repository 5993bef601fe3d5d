package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appCart "github.com/mgallardo/gamestore/internal/application/cart"
	appCatalog "github.com/mgallardo/gamestore/internal/application/catalog"
	appCheckout "github.com/mgallardo/gamestore/internal/application/checkout"
	appPurchase "github.com/mgallardo/gamestore/internal/application/purchase"
	appSettlement "github.com/mgallardo/gamestore/internal/application/settlement"
	domcatalog "github.com/mgallardo/gamestore/internal/domain/catalog"
	domoutbox "github.com/mgallardo/gamestore/internal/domain/outbox"
	dompayment "github.com/mgallardo/gamestore/internal/domain/payment"
	domsettlement "github.com/mgallardo/gamestore/internal/domain/settlement"
	"github.com/mgallardo/gamestore/internal/infrastructure/id"
	"github.com/mgallardo/gamestore/internal/infrastructure/lock"
	"github.com/mgallardo/gamestore/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct{}

func (fakeGateway) Create(_ context.Context, _, _ string, _ int64, _ string) (*dompayment.CreateResult, error) {
	return &dompayment.CreateResult{Token: "tok-abc", RedirectURL: "https://gateway.test/init"}, nil
}

func (fakeGateway) Commit(_ context.Context, token string) (*dompayment.CommitResult, error) {
	return &dompayment.CommitResult{
		Status:          dompayment.StatusAuthorized,
		BuyOrder:        "BO-" + token,
		PaymentTypeCode: "VD",
	}, nil
}

func (fakeGateway) Status(context.Context, string) (*dompayment.StatusResult, error) {
	return &dompayment.StatusResult{Status: "INITIALIZED"}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, domoutbox.Event) error { return nil }

func newTestServer(t *testing.T) (*httptest.Server, domsettlement.Stores) {
	t.Helper()

	stores := domsettlement.Stores{
		Purchases:    memory.NewPurchaseRepository(),
		Products:     memory.NewProductRepository(),
		Carts:        memory.NewCartRepository(),
		Transactions: memory.NewTransactionRepository(),
	}
	gateway := fakeGateway{}
	publisher := nopPublisher{}

	handler := NewHandler(
		appCatalog.NewService(stores.Products),
		appCart.NewService(stores.Carts, stores.Products, publisher, nil),
		appCheckout.NewService(stores.Carts, stores.Transactions, gateway, id.NewBuyOrderGenerator(), "https://shop.test", nil),
		appSettlement.NewService(
			gateway, memory.NewTxRunner(stores), lock.NewLocalLocker(), stores,
			publisher, id.NewUUIDGenerator(), id.NewBuyOrderGenerator(), nil,
		),
		appPurchase.NewService(stores.Purchases),
		nil,
	)

	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv, stores
}

func seedProduct(t *testing.T, stores domsettlement.Stores, id string, price int64, stock int) {
	t.Helper()
	p, err := domcatalog.NewProduct(id, "Game "+id, price, stock, "")
	require.NoError(t, err)
	require.NoError(t, stores.Products.Save(context.Background(), p))
}

func doRequest(t *testing.T, method, url, userID, body string) (*http.Response, map[string]any) {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set(headerUserID, userID)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCartEndpointsRequireUser(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/cart", "", "")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, body["error"], headerUserID)
}

func TestAddItemAndViewCart(t *testing.T) {
	srv, stores := newTestServer(t)
	seedProduct(t, stores, "p1", 1000, 5)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/cart/items", "user-1", `{"product_id":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/cart", "user-1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2000), body["total"])
	assert.Equal(t, "SHOP", body["kind"])
}

func TestAddItem_ValidationAndStockErrors(t *testing.T) {
	srv, stores := newTestServer(t)
	seedProduct(t, stores, "p1", 1000, 2)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/cart/items", "user-1", `{"product_id":"p1","quantity":0}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/cart/items", "user-1", `{"product_id":"p1","quantity":3}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/cart/items", "user-1", `{"product_id":"ghost","quantity":1}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFullPaymentRoundTrip(t *testing.T) {
	srv, stores := newTestServer(t)
	seedProduct(t, stores, "p1", 1000, 5)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/cart/items", "user-1", `{"product_id":"p1","quantity":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, created := doRequest(t, http.MethodPost, srv.URL+"/api/payment/create", "user-1", `{"kind":"SHOP"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "tok-abc", created["token"])
	assert.Equal(t, "https://gateway.test/init?token_ws=tok-abc", created["url"])

	// The gateway redirects the browser back with token_ws and FLAG.
	resp, confirmed := doRequest(t, http.MethodGet, srv.URL+"/api/payment/return?token_ws=tok-abc&FLAG=SHOP", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "AUTHORIZED", confirmed["status"])
	assert.Equal(t, false, confirmed["replayed"])
	require.NotNil(t, confirmed["purchase"])

	// A reload of the return URL replays without side effects.
	resp, replayedBody := doRequest(t, http.MethodGet, srv.URL+"/api/payment/return?token_ws=tok-abc&FLAG=SHOP", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, replayedBody["replayed"])

	p, err := stores.Products.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/purchases", "user-1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPaymentReturn_PayerAborted(t *testing.T) {
	srv, stores := newTestServer(t)
	seedProduct(t, stores, "p1", 1000, 5)

	resp, body := doRequest(t, http.MethodGet, srv.URL+"/api/payment/return?TBK_TOKEN=abandon-me", "", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ABORTED", body["status"])

	p, err := stores.Products.GetByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock, "an aborted payment must not touch inventory")
}

func TestPaymentReturn_MissingToken(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doRequest(t, http.MethodGet, srv.URL+"/api/payment/return", "", "")

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreatePayment_InvalidKind(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/payment/create", "user-1", `{"kind":"BULK"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPurchase_OtherUsersPurchaseHidden(t *testing.T) {
	srv, stores := newTestServer(t)
	seedProduct(t, stores, "p1", 1000, 5)

	resp, _ := doRequest(t, http.MethodPost, srv.URL+"/api/cart/items", "user-1", `{"product_id":"p1","quantity":1}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doRequest(t, http.MethodPost, srv.URL+"/api/payment/create", "user-1", `{"kind":"SHOP"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, confirmed := doRequest(t, http.MethodGet, srv.URL+"/api/payment/return?token_ws=tok-abc&FLAG=SHOP", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	purchaseID := confirmed["purchase"].(map[string]any)["id"].(string)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/purchases/"+purchaseID, "user-1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doRequest(t, http.MethodGet, srv.URL+"/api/purchases/"+purchaseID, "intruder", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
