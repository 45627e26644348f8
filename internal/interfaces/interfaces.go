package interfaces

import (
	"context"

	"daytrader/internal/types"
)

// QuoteSource fetches a current market snapshot for one symbol. A failed or
// non-numeric fetch returns quote.ErrUnavailable; callers treat that as
// "skip this instrument this cycle".
type QuoteSource interface {
	Fetch(ctx context.Context, symbol string) (types.Quote, error)
}

// Gateway is the brokerage session: authentication, account figures and
// order placement. The engine calls it only at the points a decision is made.
type Gateway interface {
	Authenticate(ctx context.Context) error
	Portfolio(ctx context.Context) (types.PortfolioSummary, error)
	PlaceBuy(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
	PlaceSell(ctx context.Context, req types.OrderReq) (types.OrderResp, error)
}
