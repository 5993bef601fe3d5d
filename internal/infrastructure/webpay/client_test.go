package webpay

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mgallardo/gamestore/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	var gotMethod, gotPath, gotKeyID, gotKeySecret string
	var gotBody createRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotKeyID = r.Header.Get("Tbk-Api-Key-Id")
		gotKeySecret = r.Header.Get("Tbk-Api-Key-Secret")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(createResponse{
			Token: "tok-xyz",
			URL:   "https://gateway.test/webpay/init",
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "597055555532", "secret")

	res, err := client.Create(context.Background(), "BO-1", "user-1", 4990, "https://shop.test/return?FLAG=SHOP")

	require.NoError(t, err)
	assert.Equal(t, "tok-xyz", res.Token)
	assert.Equal(t, "https://gateway.test/webpay/init", res.RedirectURL)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, transactionsPath, gotPath)
	assert.Equal(t, "597055555532", gotKeyID)
	assert.Equal(t, "secret", gotKeySecret)
	assert.Equal(t, createRequest{
		BuyOrder:  "BO-1",
		SessionID: "user-1",
		Amount:    4990,
		ReturnURL: "https://shop.test/return?FLAG=SHOP",
	}, gotBody)
}

func TestCommit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, transactionsPath+"/tok-xyz", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(commitResponse{
			Status:          "AUTHORIZED",
			BuyOrder:        "BO-1",
			SessionID:       "user-1",
			PaymentTypeCode: "VD",
			Amount:          4990,
			ResponseCode:    0,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "cc", "key")

	res, err := client.Commit(context.Background(), "tok-xyz")

	require.NoError(t, err)
	assert.Equal(t, "AUTHORIZED", res.Status)
	assert.Equal(t, "BO-1", res.BuyOrder)
	assert.Equal(t, "VD", res.PaymentTypeCode)
	assert.Equal(t, int64(4990), res.Amount)
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{Status: "INITIALIZED", BuyOrder: "BO-1", Amount: 4990})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "cc", "key")

	res, err := client.Status(context.Background(), "tok-xyz")

	require.NoError(t, err)
	assert.Equal(t, "INITIALIZED", res.Status)
}

func TestClientErrors(t *testing.T) {
	t.Run("4xx maps to invalid request", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error_message":"invalid amount"}`, http.StatusUnprocessableEntity)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "cc", "key")
		_, err := client.Create(context.Background(), "BO-1", "user-1", -1, "https://shop.test/return")

		assert.ErrorIs(t, err, payment.ErrInvalidRequest)
	})

	t.Run("5xx maps to gateway unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, "cc", "key")
		_, err := client.Commit(context.Background(), "tok")

		assert.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	})
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "cc", "key")

	for i := 0; i < 10; i++ {
		_, err := client.Commit(context.Background(), "tok")
		require.ErrorIs(t, err, payment.ErrGatewayUnavailable)
	}

	assert.Equal(t, 5, hits, "breaker must fail fast once open")
}
