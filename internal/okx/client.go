// Package okx provides a minimal client for the OKX v5 REST and WebSocket
// APIs: request signing, the response envelope, and the handful of endpoints
// the trading harness uses.
package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	apperrors "okx-trader/internal/errors"
)

// Default endpoints.
const (
	DefaultBaseURL     = "https://www.okx.com"
	DefaultWSPublicURL = "wss://ws.okx.com:8443/ws/v5/public"
)

// Config holds OKX API credentials and endpoints. Credentials and base URLs
// are explicit constructor inputs, never process-wide state.
type Config struct {
	APIKey     string
	APISecret  string
	Passphrase string
	BaseURL    string
	WSURL      string
	Simulated  bool // demo-trading header on every request
	Timeout    time.Duration
}

// Client is an OKX v5 REST client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger zerolog.Logger
}

// NewClient creates an OKX client. Public (unauthenticated) endpoints work
// without credentials; trading and account endpoints require them.
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.WSURL == "" {
		cfg.WSURL = DefaultWSPublicURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With().Str("component", "okx").Logger(),
	}
}

// WSURL returns the configured public WebSocket endpoint.
func (c *Client) WSURL() string {
	return c.cfg.WSURL
}

// SimulatedHeader returns the value of the demo-trading header.
func (c *Client) SimulatedHeader() string {
	if c.cfg.Simulated {
		return "1"
	}
	return "0"
}

// envelope is the OKX v5 response wrapper. Code "0" is the sole success
// discriminator; any other value is a failure.
type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// isoTimestamp formats the current time the way the OKX signer expects:
// ISO-8601 with millisecond precision and a literal Z suffix.
func isoTimestamp() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// sign computes the OKX request signature: Base64(HMAC-SHA256(secret,
// timestamp + METHOD + requestPath + body)).
func sign(secret, timestamp, method, requestPath, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body any, out any) error {
	requestPath := path
	if len(params) > 0 {
		requestPath += "?" + params.Encode()
	}

	var bodyStr string
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyStr = string(raw)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+requestPath, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Simulated {
		req.Header.Set("x-simulated-trading", "1")
	}
	if c.cfg.APIKey != "" {
		ts := isoTimestamp()
		req.Header.Set("OK-ACCESS-KEY", c.cfg.APIKey)
		req.Header.Set("OK-ACCESS-SIGN", sign(c.cfg.APISecret, ts, method, requestPath, bodyStr))
		req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
		req.Header.Set("OK-ACCESS-PASSPHRASE", c.cfg.Passphrase)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: failed to decode response (http %d): %w", method, path, resp.StatusCode, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Str("code", env.Code).
		Dur("duration", time.Since(start)).
		Msg("API call completed")

	if env.Code != "0" {
		return apperrors.NewExchangeError(env.Code, env.Msg, nil)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%s %s: failed to decode data: %w", method, path, err)
		}
	}
	return nil
}

// PlaceOrder submits an order and returns the exchange-assigned order id.
func (c *Client) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (string, error) {
	var data []placeOrderData
	if err := c.do(ctx, http.MethodPost, "/api/v5/trade/order", nil, req, &data); err != nil {
		return "", err
	}
	if len(data) == 0 || data[0].OrdID == "" {
		return "", apperrors.NewOrderError("", req.InstID, "place", "no order id in response", nil)
	}
	return data[0].OrdID, nil
}

// GetOrder queries the status of an order by exchange order id.
func (c *Client) GetOrder(ctx context.Context, instID, ordID string) (*OrderDetail, error) {
	params := url.Values{}
	params.Set("instId", instID)
	params.Set("ordId", ordID)

	var data []OrderDetail
	if err := c.do(ctx, http.MethodGet, "/api/v5/trade/order", params, nil, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, apperrors.NewOrderError(ordID, instID, "status", "order not found", nil)
	}
	return &data[0], nil
}

// GetFills queries the execution records of an order.
func (c *Client) GetFills(ctx context.Context, ordID string) ([]FillDetail, error) {
	params := url.Values{}
	params.Set("ordId", ordID)

	var data []FillDetail
	if err := c.do(ctx, http.MethodGet, "/api/v5/trade/fills", params, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// GetBalance queries per-currency account balances.
func (c *Client) GetBalance(ctx context.Context) ([]BalanceDetail, error) {
	var data []balanceData
	if err := c.do(ctx, http.MethodGet, "/api/v5/account/balance", nil, nil, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data[0].Details, nil
}

// GetPositions queries open positions.
func (c *Client) GetPositions(ctx context.Context) ([]PositionDetail, error) {
	var data []PositionDetail
	if err := c.do(ctx, http.MethodGet, "/api/v5/account/positions", nil, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// GetTicker queries the latest ticker for an instrument.
func (c *Client) GetTicker(ctx context.Context, instID string) (*TickerData, error) {
	params := url.Values{}
	params.Set("instId", instID)

	var data []TickerData
	if err := c.do(ctx, http.MethodGet, "/api/v5/market/ticker", params, nil, &data); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("no ticker data for %s", instID)
	}
	return &data[0], nil
}

// GetFundingRate queries the current funding rate of a swap instrument.
func (c *Client) GetFundingRate(ctx context.Context, instID string) (float64, error) {
	params := url.Values{}
	params.Set("instId", instID)

	var data []FundingRateData
	if err := c.do(ctx, http.MethodGet, "/api/v5/public/funding-rate", params, nil, &data); err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("no funding rate data for %s", instID)
	}
	rate, err := strconv.ParseFloat(data[0].FundingRate, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse funding rate %q: %w", data[0].FundingRate, err)
	}
	return rate, nil
}

// GetInstruments lists instruments of a type, optionally filtered by quote
// currency (e.g. all USDT swaps).
func (c *Client) GetInstruments(ctx context.Context, instType, quoteCcy string) ([]InstrumentData, error) {
	params := url.Values{}
	params.Set("instType", instType)
	if quoteCcy != "" {
		params.Set("quoteCcy", quoteCcy)
	}

	var data []InstrumentData
	if err := c.do(ctx, http.MethodGet, "/api/v5/public/instruments", params, nil, &data); err != nil {
		return nil, err
	}
	return data, nil
}
