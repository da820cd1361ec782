package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"okx-trader/internal/models"
	"okx-trader/internal/okx"
)

// fakeExchange scripts exchange responses for the live broker state machine.
type fakeExchange struct {
	placeOrderID  string
	placeErr      error
	statuses      []okx.OrderDetail
	statusErrs    []error
	statusCalls   int
	fillResponses [][]okx.FillDetail
	fillCalls     int
	balances      []okx.BalanceDetail
	positions     []okx.PositionDetail

	lastPlaced *okx.PlaceOrderRequest
}

func (f *fakeExchange) PlaceOrder(_ context.Context, req okx.PlaceOrderRequest) (string, error) {
	f.lastPlaced = &req
	if f.placeErr != nil {
		return "", f.placeErr
	}
	return f.placeOrderID, nil
}

func (f *fakeExchange) GetOrder(_ context.Context, _, _ string) (*okx.OrderDetail, error) {
	i := f.statusCalls
	f.statusCalls++
	if i < len(f.statusErrs) && f.statusErrs[i] != nil {
		return nil, f.statusErrs[i]
	}
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1 // hold the final scripted state
	}
	d := f.statuses[i]
	return &d, nil
}

func (f *fakeExchange) GetFills(_ context.Context, _ string) ([]okx.FillDetail, error) {
	i := f.fillCalls
	f.fillCalls++
	if i >= len(f.fillResponses) {
		i = len(f.fillResponses) - 1
	}
	if i < 0 {
		return nil, nil
	}
	return f.fillResponses[i], nil
}

func (f *fakeExchange) GetBalance(_ context.Context) ([]okx.BalanceDetail, error) {
	return f.balances, nil
}

func (f *fakeExchange) GetPositions(_ context.Context) ([]okx.PositionDetail, error) {
	return f.positions, nil
}

func fastBroker(api ExchangeAPI) *OkxBroker {
	return NewOkxBroker(api, OkxBrokerConfig{
		MaxFillWait:  time.Second,
		PollInterval: time.Millisecond,
	}, zerolog.Nop())
}

func TestSubmitReconcilesFillsAcrossPolls(t *testing.T) {
	fill1 := okx.FillDetail{Side: "buy", FillPx: "100", FillSz: "0.5", Fee: "-0.05", TS: "1700000000001"}
	fill2 := okx.FillDetail{Side: "buy", FillPx: "101", FillSz: "0.5", Fee: "-0.05", TS: "1700000000002"}

	api := &fakeExchange{
		placeOrderID: "ord-1",
		statuses: []okx.OrderDetail{
			{State: okx.OrderStateLive},
			{State: okx.OrderStatePartiallyFilled},
			{State: okx.OrderStateFilled},
		},
		fillResponses: [][]okx.FillDetail{
			{fill1},
			{fill1, fill2}, // fill list repeats earlier records
		},
	}

	b := fastBroker(api)
	fills, err := b.Submit(context.Background(), &models.Order{
		InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeMarket, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(fills) != 2 {
		t.Fatalf("len(fills) = %d, want 2 deduplicated fills", len(fills))
	}
	if fills[0].TS != 1700000000001 || fills[1].TS != 1700000000002 {
		t.Errorf("unexpected fill timestamps: %d, %d", fills[0].TS, fills[1].TS)
	}
	if fills[0].Fee != 0.05 {
		t.Errorf("fee = %v, want magnitude 0.05", fills[0].Fee)
	}
	if fills[0].Meta["okx_order_id"] != "ord-1" {
		t.Errorf("missing order id provenance: %v", fills[0].Meta)
	}
}

func TestSubmitStopsPollingOnceFilled(t *testing.T) {
	api := &fakeExchange{
		placeOrderID:  "ord-2",
		statuses:      []okx.OrderDetail{{State: okx.OrderStateFilled}},
		fillResponses: [][]okx.FillDetail{{{Side: "sell", FillPx: "50", FillSz: "1", Fee: "0.01", TS: "1"}}},
	}

	b := fastBroker(api)
	fills, err := b.Submit(context.Background(), &models.Order{
		InstID: "ETH-USDT", Side: models.SideSell, Type: models.OrderTypeMarket, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(fills) != 1 {
		t.Fatalf("len(fills) = %d, want 1", len(fills))
	}
	if api.statusCalls != 1 {
		t.Errorf("statusCalls = %d, want 1 (polling must stop at filled)", api.statusCalls)
	}
}

func TestSubmitTimeoutReturnsAccumulatedFills(t *testing.T) {
	api := &fakeExchange{
		placeOrderID: "ord-3",
		statuses:     []okx.OrderDetail{{State: okx.OrderStateLive}},
	}

	b := NewOkxBroker(api, OkxBrokerConfig{
		MaxFillWait:  30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	}, zerolog.Nop())

	start := time.Now()
	fills, err := b.Submit(context.Background(), &models.Order{
		InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeMarket, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(fills) != 0 {
		t.Errorf("len(fills) = %d, want 0", len(fills))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Submit blocked %v past the wait budget", elapsed)
	}
}

func TestSubmitCanceledReturnsPartialFills(t *testing.T) {
	api := &fakeExchange{
		placeOrderID: "ord-4",
		statuses: []okx.OrderDetail{
			{State: okx.OrderStatePartiallyFilled},
			{State: okx.OrderStateCanceled},
		},
		fillResponses: [][]okx.FillDetail{
			{{Side: "buy", FillPx: "100", FillSz: "0.3", Fee: "-0.03", TS: "10"}},
		},
	}

	b := fastBroker(api)
	fills, err := b.Submit(context.Background(), &models.Order{
		InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeMarket, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(fills) != 1 {
		t.Errorf("len(fills) = %d, want the partial fill before cancellation", len(fills))
	}
}

func TestSubmitTransientStatusErrorIsRetried(t *testing.T) {
	api := &fakeExchange{
		placeOrderID:  "ord-5",
		statusErrs:    []error{errors.New("502 bad gateway")},
		statuses:      []okx.OrderDetail{{State: okx.OrderStateFilled}, {State: okx.OrderStateFilled}},
		fillResponses: [][]okx.FillDetail{{{Side: "buy", FillPx: "100", FillSz: "1", Fee: "-0.1", TS: "7"}}},
	}

	b := fastBroker(api)
	fills, err := b.Submit(context.Background(), &models.Order{
		InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeMarket, Quantity: 1,
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if len(fills) != 1 {
		t.Errorf("len(fills) = %d, want 1 after transient error retry", len(fills))
	}
}

func TestSubmitRejectedOrderHasNoFills(t *testing.T) {
	api := &fakeExchange{placeErr: errors.New("exchange error [51000]: parameter error")}

	b := fastBroker(api)
	fills, err := b.Submit(context.Background(), &models.Order{
		InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeMarket, Quantity: 1,
	})
	if err == nil {
		t.Fatal("expected submission error")
	}
	if len(fills) != 0 {
		t.Errorf("rejected order must produce no fills, got %d", len(fills))
	}
	if api.statusCalls != 0 {
		t.Errorf("rejected order must not be polled, statusCalls = %d", api.statusCalls)
	}
}

func TestConvertOrder(t *testing.T) {
	b := fastBroker(&fakeExchange{})

	tests := []struct {
		name    string
		order   models.Order
		want    okx.PlaceOrderRequest
		wantErr bool
	}{
		{
			name:  "spot quote sizing",
			order: models.Order{InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeMarket, QuoteQuantity: 50},
			want:  okx.PlaceOrderRequest{InstID: "BTC-USDT", TdMode: "cash", Side: "buy", OrdType: "market", Sz: "50", TgtCcy: "quote_ccy"},
		},
		{
			name:  "spot base sizing",
			order: models.Order{InstID: "BTC-USDT", Side: models.SideSell, Type: models.OrderTypeMarket, Quantity: 0.1},
			want:  okx.PlaceOrderRequest{InstID: "BTC-USDT", TdMode: "cash", Side: "sell", OrdType: "market", Sz: "0.1", TgtCcy: "base_ccy"},
		},
		{
			name:  "swap contract sizing uses isolated margin",
			order: models.Order{InstID: "BTC-USDT-SWAP", Side: models.SideSell, Type: models.OrderTypeMarket, Quantity: 2},
			want:  okx.PlaceOrderRequest{InstID: "BTC-USDT-SWAP", TdMode: "isolated", Side: "sell", OrdType: "market", Sz: "2"},
		},
		{
			name:  "limit order carries price",
			order: models.Order{InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeLimit, Quantity: 1, Price: 30000},
			want:  okx.PlaceOrderRequest{InstID: "BTC-USDT", TdMode: "cash", Side: "buy", OrdType: "limit", Sz: "1", Px: "30000", TgtCcy: "base_ccy"},
		},
		{
			name:    "limit order without price",
			order:   models.Order{InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeLimit, Quantity: 1},
			wantErr: true,
		},
		{
			name:    "swap order sized in quote currency",
			order:   models.Order{InstID: "BTC-USDT-SWAP", Side: models.SideBuy, Type: models.OrderTypeMarket, QuoteQuantity: 100},
			wantErr: true,
		},
		{
			name:    "spot order with no size",
			order:   models.Order{InstID: "BTC-USDT", Side: models.SideBuy, Type: models.OrderTypeMarket},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.convertOrder(&tt.order)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("convertOrder() error = %v", err)
			}
			if *got != tt.want {
				t.Errorf("convertOrder() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestGetPortfolioSumsCashAndSkipsFlatPositions(t *testing.T) {
	api := &fakeExchange{
		balances: []okx.BalanceDetail{
			{Ccy: "USDT", AvailBal: "1000.5"},
			{Ccy: "USDC", AvailBal: "99.5"},
			{Ccy: "BTC", AvailBal: "0.3"},
		},
		positions: []okx.PositionDetail{
			{InstID: "BTC-USDT-SWAP", Pos: "-2", AvgPx: "30000"},
			{InstID: "ETH-USDT-SWAP", Pos: "0", AvgPx: "2000"},
		},
	}

	b := fastBroker(api)
	state, err := b.GetPortfolio(context.Background())
	if err != nil {
		t.Fatalf("GetPortfolio() error = %v", err)
	}
	if state.Cash != 1100 {
		t.Errorf("cash = %v, want 1100 (USDT+USDC only)", state.Cash)
	}
	if len(state.Positions) != 1 {
		t.Fatalf("len(positions) = %d, want 1", len(state.Positions))
	}
	pos := state.Positions["BTC-USDT-SWAP"]
	if pos.Quantity != -2 || pos.AvgPrice != 30000 {
		t.Errorf("unexpected position: %+v", pos)
	}
}
