package gateway

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"daytrader/internal/interfaces"
	"daytrader/internal/types"
)

// Sim is the DRY_RUN gateway: every order fills instantly at its limit price
// and account figures are derived from the simulated fills.
type Sim struct {
	mu            sync.Mutex
	cash          float64
	holdingsValue float64
}

var _ interfaces.Gateway = (*Sim)(nil)

func NewSim(startingCash float64) *Sim {
	return &Sim{cash: startingCash}
}

func (s *Sim) Authenticate(ctx context.Context) error { return nil }

func (s *Sim) Portfolio(ctx context.Context) (types.PortfolioSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	equity := s.cash + s.holdingsValue
	return types.PortfolioSummary{
		Equity:              equity,
		ExtendedHoursEquity: equity,
		WithdrawableCash:    s.cash,
	}, nil
}

func (s *Sim) PlaceBuy(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cost := float64(req.Qty) * req.LimitPrice
	s.cash -= cost
	s.holdingsValue += cost
	return types.OrderResp{OrderID: uuid.NewString(), Status: "filled"}, nil
}

func (s *Sim) PlaceSell(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	proceeds := float64(req.Qty) * req.LimitPrice
	s.cash += proceeds
	s.holdingsValue -= proceeds
	if s.holdingsValue < 0 {
		s.holdingsValue = 0
	}
	return types.OrderResp{OrderID: uuid.NewString(), Status: "filled"}, nil
}
