package webpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mgallardo/gamestore/internal/domain/payment"
	"github.com/sony/gobreaker/v2"
)

const transactionsPath = "/rswebpaytransaction/api/webpay/v1.2/transactions"

// Integration credentials published by the provider for its sandbox
// environment. Production deployments override both via configuration.
const (
	IntegrationCommerceCode = "597055555532"
	IntegrationAPIKey       = "579B532A7440BB0C9079DED94D31EA1615BACEB56610332264630D42D0A36B1C"
)

// Client talks to the Webpay Plus REST API. All three operations go
// through a shared circuit breaker: once the provider starts timing out,
// further calls fail fast with ErrGatewayUnavailable instead of holding
// checkout requests open.
type Client struct {
	baseURL      string
	commerceCode string
	apiKey       string
	httpClient   *http.Client
	breaker      *gobreaker.CircuitBreaker[[]byte]
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL, commerceCode, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:      baseURL,
		commerceCode: commerceCode,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "webpay",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return c
}

type createRequest struct {
	BuyOrder  string `json:"buy_order"`
	SessionID string `json:"session_id"`
	Amount    int64  `json:"amount"`
	ReturnURL string `json:"return_url"`
}

type createResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

type commitResponse struct {
	VCI             string `json:"vci"`
	Amount          int64  `json:"amount"`
	Status          string `json:"status"`
	BuyOrder        string `json:"buy_order"`
	SessionID       string `json:"session_id"`
	CardDetail      any    `json:"card_detail"`
	TransactionDate string `json:"transaction_date"`
	PaymentTypeCode string `json:"payment_type_code"`
	ResponseCode    int    `json:"response_code"`
}

type statusResponse struct {
	Status   string `json:"status"`
	BuyOrder string `json:"buy_order"`
	Amount   int64  `json:"amount"`
}

func (c *Client) Create(ctx context.Context, buyOrder, sessionID string, amount int64, returnURL string) (*payment.CreateResult, error) {
	body, err := json.Marshal(createRequest{
		BuyOrder:  buyOrder,
		SessionID: sessionID,
		Amount:    amount,
		ReturnURL: returnURL,
	})
	if err != nil {
		return nil, fmt.Errorf("webpay: encode create request: %w", err)
	}

	raw, err := c.do(ctx, http.MethodPost, transactionsPath, body)
	if err != nil {
		return nil, err
	}
	var res createResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("webpay: decode create response: %w", err)
	}
	return &payment.CreateResult{Token: res.Token, RedirectURL: res.URL}, nil
}

func (c *Client) Commit(ctx context.Context, token string) (*payment.CommitResult, error) {
	raw, err := c.do(ctx, http.MethodPut, transactionsPath+"/"+token, nil)
	if err != nil {
		return nil, err
	}
	var res commitResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("webpay: decode commit response: %w", err)
	}
	return &payment.CommitResult{
		Status:          res.Status,
		BuyOrder:        res.BuyOrder,
		SessionID:       res.SessionID,
		PaymentTypeCode: res.PaymentTypeCode,
		Amount:          res.Amount,
		ResponseCode:    res.ResponseCode,
	}, nil
}

func (c *Client) Status(ctx context.Context, token string) (*payment.StatusResult, error) {
	raw, err := c.do(ctx, http.MethodGet, transactionsPath+"/"+token, nil)
	if err != nil {
		return nil, err
	}
	var res statusResponse
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("webpay: decode status response: %w", err)
	}
	return &payment.StatusResult{
		Status:   res.Status,
		BuyOrder: res.BuyOrder,
		Amount:   res.Amount,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	raw, err := c.breaker.Execute(func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("webpay: build request: %w", err)
		}
		req.Header.Set("Tbk-Api-Key-Id", c.commerceCode)
		req.Header.Set("Tbk-Api-Key-Secret", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("%w: read response: %v", payment.ErrGatewayUnavailable, err)
		}
		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return data, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, fmt.Errorf("%w: status %d: %s", payment.ErrInvalidRequest, resp.StatusCode, data)
		default:
			return nil, fmt.Errorf("%w: status %d", payment.ErrGatewayUnavailable, resp.StatusCode)
		}
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, fmt.Errorf("%w: %v", payment.ErrGatewayUnavailable, err)
	}
	return raw, err
}
