package gateway

import (
	"context"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"daytrader/internal/interfaces"
	"daytrader/internal/types"
)

type Params struct {
	APIKey    string
	APISecret string
	BaseURL   string
}

// Alpaca is the live brokerage session. Orders go out as day limit orders at
// the decision price.
type Alpaca struct {
	p      Params
	client *alpaca.Client
}

var _ interfaces.Gateway = (*Alpaca)(nil)

func NewAlpaca(p Params) *Alpaca {
	return &Alpaca{
		p: p,
		client: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:    p.APIKey,
			APISecret: p.APISecret,
			BaseURL:   p.BaseURL,
		}),
	}
}

func (a *Alpaca) Authenticate(ctx context.Context) error {
	if a.p.APIKey == "" || a.p.APISecret == "" {
		return &AuthError{Reason: "missing credentials"}
	}
	acct, err := a.client.GetAccount()
	if err != nil {
		return &AuthError{Reason: "account lookup failed", Err: err}
	}
	if acct.Status != "ACTIVE" {
		return &AuthError{Reason: "account not active: " + acct.Status}
	}
	return nil
}

func (a *Alpaca) Portfolio(ctx context.Context) (types.PortfolioSummary, error) {
	acct, err := a.client.GetAccount()
	if err != nil {
		return types.PortfolioSummary{}, err
	}
	equity, _ := acct.Equity.Float64()
	lastEquity, _ := acct.LastEquity.Float64()
	cash, _ := acct.Cash.Float64()
	return types.PortfolioSummary{
		Equity:              equity,
		ExtendedHoursEquity: lastEquity,
		WithdrawableCash:    cash,
	}, nil
}

func (a *Alpaca) PlaceBuy(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return a.place(req, alpaca.Buy)
}

func (a *Alpaca) PlaceSell(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return a.place(req, alpaca.Sell)
}

func (a *Alpaca) place(req types.OrderReq, side alpaca.Side) (types.OrderResp, error) {
	qty := decimal.NewFromInt(int64(req.Qty))
	limit := decimal.NewFromFloat(req.LimitPrice)
	order, err := a.client.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          side,
		Type:          alpaca.Limit,
		LimitPrice:    &limit,
		TimeInForce:   alpaca.Day,
		ClientOrderID: uuid.NewString(),
	})
	if err != nil {
		return types.OrderResp{}, &OrderError{Symbol: req.Symbol, Side: string(side), Err: err}
	}
	return types.OrderResp{OrderID: order.ID, Status: string(order.Status)}, nil
}
