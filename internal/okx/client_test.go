package okx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	apperrors "okx-trader/internal/errors"
)

func TestSign(t *testing.T) {
	got := sign("secret", "2021-01-01T00:00:00.000Z", "GET", "/api/v5/account/balance", "")
	want := "C2xSmPmp+1M//N8UAxqTkc5yzoLlDbMGQy9X9PzeMAk="
	if got != want {
		t.Errorf("sign() = %q, want %q", got, want)
	}
}

func TestDoSetsAuthHeaders(t *testing.T) {
	var gotHeaders http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		w.Write([]byte(`{"code":"0","msg":"","data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{
		APIKey:     "key",
		APISecret:  "secret",
		Passphrase: "pass",
		BaseURL:    srv.URL,
		Simulated:  true,
	}, zerolog.Nop())

	if _, err := c.GetPositions(context.Background()); err != nil {
		t.Fatalf("GetPositions() error = %v", err)
	}

	if gotHeaders.Get("OK-ACCESS-KEY") != "key" {
		t.Error("missing OK-ACCESS-KEY header")
	}
	if gotHeaders.Get("OK-ACCESS-SIGN") == "" {
		t.Error("missing OK-ACCESS-SIGN header")
	}
	if gotHeaders.Get("OK-ACCESS-PASSPHRASE") != "pass" {
		t.Error("missing OK-ACCESS-PASSPHRASE header")
	}
	if gotHeaders.Get("x-simulated-trading") != "1" {
		t.Error("missing x-simulated-trading header")
	}
}

func TestDoNonZeroCodeIsExchangeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"51008","msg":"insufficient balance","data":[]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())

	_, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{
		InstID: "BTC-USDT", TdMode: "cash", Side: "buy", OrdType: "market", Sz: "1",
	})
	var exErr *apperrors.ExchangeError
	if !errors.As(err, &exErr) {
		t.Fatalf("expected ExchangeError, got %v", err)
	}
	if exErr.Code != "51008" {
		t.Errorf("code = %q, want 51008", exErr.Code)
	}
}

func TestPlaceOrderReturnsOrderID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		w.Write([]byte(`{"code":"0","msg":"","data":[{"ordId":"312269865356374016","sCode":"0"}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())

	ordID, err := c.PlaceOrder(context.Background(), PlaceOrderRequest{
		InstID: "BTC-USDT", TdMode: "cash", Side: "buy", OrdType: "market", Sz: "50", TgtCcy: "quote_ccy",
	})
	if err != nil {
		t.Fatalf("PlaceOrder() error = %v", err)
	}
	if ordID != "312269865356374016" {
		t.Errorf("ordID = %q", ordID)
	}
}

func TestGetBalanceParsesDetails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":"0","msg":"","data":[{"details":[{"ccy":"USDT","availBal":"1234.5"},{"ccy":"BTC","availBal":"0.2"}]}]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, zerolog.Nop())

	details, err := c.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance() error = %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("len(details) = %d, want 2", len(details))
	}
	if details[0].Ccy != "USDT" || details[0].AvailBal != "1234.5" {
		t.Errorf("unexpected first detail: %+v", details[0])
	}
}
