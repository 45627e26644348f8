package types

// Direction of the last price change, as reported by the quote source.
type Direction string

const (
	DirUp   Direction = "up"
	DirDown Direction = "down"
	DirFlat Direction = "unch"
)

// Quote is one snapshot of a symbol's current market data.
type Quote struct {
	Symbol    string
	Last      float64
	Change    float64
	ChangePct float64
	Volume    float64
	PrevClose float64
	DayLow    float64
	DayHigh   float64
	YearLow   float64
	YearHigh  float64
	Direction Direction
}

// Position holds the open-position fields of an instrument. The three fields
// are set and cleared together.
type Position struct {
	Qty      int
	AvgPrice float64
	StopLoss float64
}

// Fill describes an externally reconciled purchase, e.g. a holding that
// already existed at the brokerage before the engine started.
type Fill struct {
	Qty      int
	AvgPrice float64
	StopLoss float64
}

// Close records the terms a position was closed at, for settlement.
type Close struct {
	Qty    int
	Price  float64
	Profit float64
}

// Action is the outcome of one instrument evaluation.
type Action string

const (
	NoAction Action = "NONE"
	Buy      Action = "BUY"
	Sell     Action = "SELL"
)

type OrderReq struct {
	Symbol     string
	Side       string
	Qty        int
	LimitPrice float64
	Tag        string
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// PortfolioSummary carries the account figures refreshed every cycle.
type PortfolioSummary struct {
	Equity              float64
	ExtendedHoursEquity float64
	WithdrawableCash    float64
}
