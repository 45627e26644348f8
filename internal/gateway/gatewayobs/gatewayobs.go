package gatewayobs

import (
	"context"

	"daytrader/internal/interfaces"
	"daytrader/internal/logger"
	"daytrader/internal/trace"
	"daytrader/internal/types"
)

// observableGateway wraps a Gateway with logging and tracing.
type observableGateway struct {
	gw interfaces.Gateway
}

var _ interfaces.Gateway = (*observableGateway)(nil)

// Wrap wraps a gateway with observability middleware.
func Wrap(gw interfaces.Gateway) interfaces.Gateway {
	return &observableGateway{gw: gw}
}

func (og *observableGateway) Authenticate(ctx context.Context) error {
	ctx, span := trace.StartSpan(ctx, "gateway.Authenticate")
	defer span.End()

	if err := og.gw.Authenticate(ctx); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Gateway authentication failed", err)
		return err
	}
	logger.InfoSkip(ctx, 1, "Gateway authenticated")
	return nil
}

func (og *observableGateway) Portfolio(ctx context.Context) (types.PortfolioSummary, error) {
	ctx, span := trace.StartSpan(ctx, "gateway.Portfolio")
	defer span.End()

	sum, err := og.gw.Portfolio(ctx)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch portfolio", err)
		return types.PortfolioSummary{}, err
	}
	logger.DebugSkip(ctx, 1, "Portfolio fetched",
		"equity", sum.Equity,
		"withdrawable_cash", sum.WithdrawableCash,
	)
	return sum, nil
}

func (og *observableGateway) PlaceBuy(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return og.place(ctx, "gateway.PlaceBuy", req, og.gw.PlaceBuy)
}

func (og *observableGateway) PlaceSell(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	return og.place(ctx, "gateway.PlaceSell", req, og.gw.PlaceSell)
}

func (og *observableGateway) place(ctx context.Context, op string, req types.OrderReq, fn func(context.Context, types.OrderReq) (types.OrderResp, error)) (types.OrderResp, error) {
	ctx, span := trace.StartSpan(ctx, op)
	defer span.End()

	logger.InfoSkip(ctx, 2, "Placing order",
		"symbol", req.Symbol,
		"side", req.Side,
		"qty", req.Qty,
		"limit_price", req.LimitPrice,
	)

	resp, err := fn(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 2, "Failed to place order", err,
			"symbol", req.Symbol,
			"side", req.Side,
			"qty", req.Qty,
		)
		return types.OrderResp{}, err
	}

	logger.InfoSkip(ctx, 2, "Order placed",
		"symbol", req.Symbol,
		"order_id", resp.OrderID,
		"status", resp.Status,
	)
	return resp, nil
}
