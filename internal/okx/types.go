package okx

// OKX v5 returns all numeric fields as strings; wire types keep them as-is
// and expose typed accessors where callers need numbers.

// PlaceOrderRequest is the body of POST /api/v5/trade/order.
type PlaceOrderRequest struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	Px      string `json:"px,omitempty"`
	TgtCcy  string `json:"tgtCcy,omitempty"`
	ClOrdID string `json:"clOrdId,omitempty"`
}

// placeOrderData is a single element of the order-creation response.
type placeOrderData struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

// Order states reported by GET /api/v5/trade/order.
const (
	OrderStateLive            = "live"
	OrderStatePartiallyFilled = "partially_filled"
	OrderStateFilled          = "filled"
	OrderStateCanceled        = "canceled"
)

// OrderDetail is the status of a single order.
type OrderDetail struct {
	InstID    string `json:"instId"`
	OrdID     string `json:"ordId"`
	State     string `json:"state"`
	AccFillSz string `json:"accFillSz"`
	AvgPx     string `json:"avgPx"`
}

// FillDetail is a single execution record from GET /api/v5/trade/fills.
// Fee is negative for taker charges and positive for maker rebates.
type FillDetail struct {
	InstID  string `json:"instId"`
	OrdID   string `json:"ordId"`
	TradeID string `json:"tradeId"`
	Side    string `json:"side"`
	FillPx  string `json:"fillPx"`
	FillSz  string `json:"fillSz"`
	Fee     string `json:"fee"`
	TS      string `json:"ts"`
}

// BalanceDetail is a per-currency entry from GET /api/v5/account/balance.
type BalanceDetail struct {
	Ccy      string `json:"ccy"`
	AvailBal string `json:"availBal"`
	CashBal  string `json:"cashBal"`
}

type balanceData struct {
	Details []BalanceDetail `json:"details"`
}

// PositionDetail is a single entry from GET /api/v5/account/positions.
type PositionDetail struct {
	InstID string `json:"instId"`
	Pos    string `json:"pos"`
	AvgPx  string `json:"avgPx"`
}

// TickerData is a single entry from GET /api/v5/market/ticker.
type TickerData struct {
	InstID string `json:"instId"`
	Last   string `json:"last"`
	BidPx  string `json:"bidPx"`
	AskPx  string `json:"askPx"`
	TS     string `json:"ts"`
}

// FundingRateData is a single entry from GET /api/v5/public/funding-rate.
type FundingRateData struct {
	InstID      string `json:"instId"`
	FundingRate string `json:"fundingRate"`
	FundingTime string `json:"fundingTime"`
}

// InstrumentData is a single entry from GET /api/v5/public/instruments.
type InstrumentData struct {
	InstID   string `json:"instId"`
	InstType string `json:"instType"`
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
	CtVal    string `json:"ctVal"`
}
