package instrument

import (
	"context"
	"testing"

	"daytrader/internal/quote"
	"daytrader/internal/strategy"
	"daytrader/internal/types"
)

// scriptedSource replays a fixed price sequence; a negative price simulates
// an unavailable fetch.
type scriptedSource struct {
	prices  []float64
	dayHigh float64
	i       int
}

func (s *scriptedSource) Fetch(ctx context.Context, symbol string) (types.Quote, error) {
	if s.i >= len(s.prices) {
		return types.Quote{}, quote.ErrUnavailable
	}
	p := s.prices[s.i]
	s.i++
	if p < 0 {
		return types.Quote{}, quote.ErrUnavailable
	}
	high := s.dayHigh
	if high == 0 {
		high = p
	}
	return types.Quote{Symbol: symbol, Last: p, DayHigh: high, DayLow: p}, nil
}

const budget = 1000.0

func TestShortTermStrictDecreaseNoBuy(t *testing.T) {
	src := &scriptedSource{prices: []float64{10.00, 9.50, 9.00}}
	ins := New("AAPL", src)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if act := ins.EvaluateBuy(ctx, budget, strategy.ShortTerm, false, nil); act != types.NoAction {
			t.Fatalf("step %d: expected no action on a falling price, got %s", i, act)
		}
	}
	if ins.Position != nil {
		t.Error("Expected no position after strictly decreasing prices")
	}
}

func TestShortTermReversalBuy(t *testing.T) {
	src := &scriptedSource{prices: []float64{10.00, 9.50, 9.80, 9.90}}
	ins := New("AAPL", src)
	ctx := context.Background()

	var acts []types.Action
	for i := 0; i < 4; i++ {
		acts = append(acts, ins.EvaluateBuy(ctx, budget, strategy.ShortTerm, false, nil))
	}

	for i := 0; i < 3; i++ {
		if acts[i] != types.NoAction {
			t.Errorf("step %d: expected no action, got %s", i, acts[i])
		}
	}
	if acts[3] != types.Buy {
		t.Fatalf("Expected buy on second up-tick, got %s", acts[3])
	}
	if ins.Position == nil {
		t.Fatal("Expected open position after buy signal")
	}
	if ins.Position.Qty != 101 { // floor(1000 / 9.90)
		t.Errorf("Expected qty 101, got %d", ins.Position.Qty)
	}
	if ins.Position.AvgPrice != 9.90 {
		t.Errorf("Expected avg price 9.90, got %v", ins.Position.AvgPrice)
	}
	if ins.Position.StopLoss != 8.91 { // 9.90 - 10%, rounded to cents
		t.Errorf("Expected stop loss 8.91, got %v", ins.Position.StopLoss)
	}
}

func TestPriceSwingOutsideBandNoAction(t *testing.T) {
	// (100.5 - 100) / 100 = 0.5%, inside the 1% band: never evaluated.
	src := &scriptedSource{prices: []float64{100, 101, 102, 103, 104}, dayHigh: 100.5}
	ins := New("NVDA", src)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if act := ins.EvaluateBuy(ctx, budget, strategy.PriceSwing, false, nil); act != types.NoAction {
			t.Fatalf("step %d: expected no action outside band, got %s", i, act)
		}
	}
}

func TestPriceSwingBuyOnThirdUptick(t *testing.T) {
	src := &scriptedSource{prices: []float64{100, 101, 102, 103}, dayHigh: 120}
	ins := New("NVDA", src)
	ctx := context.Background()

	var last types.Action
	for i := 0; i < 4; i++ {
		last = ins.EvaluateBuy(ctx, budget, strategy.PriceSwing, false, nil)
		if i < 3 && last != types.NoAction {
			t.Fatalf("step %d: expected no action, got %s", i, last)
		}
	}
	if last != types.Buy {
		t.Fatalf("Expected buy on third consecutive up-tick, got %s", last)
	}
	if ins.Position.AvgPrice != 103 {
		t.Errorf("Expected entry at 103, got %v", ins.Position.AvgPrice)
	}
}

func TestPriceSwingDowntickResetsCounter(t *testing.T) {
	src := &scriptedSource{prices: []float64{100, 101, 99, 100, 101, 102}, dayHigh: 120}
	ins := New("NVDA", src)
	ctx := context.Background()

	var last types.Action
	for i := 0; i < 6; i++ {
		last = ins.EvaluateBuy(ctx, budget, strategy.PriceSwing, false, nil)
		if i < 5 && last != types.NoAction {
			t.Fatalf("step %d: expected no action, got %s", i, last)
		}
	}
	if last != types.Buy {
		t.Fatalf("Expected buy only after three up-ticks past the reset, got %s", last)
	}
}

func TestRefreshFailureNeverMutates(t *testing.T) {
	src := &scriptedSource{prices: []float64{100, -1, -1}}
	ins := New("TSLA", src)
	ctx := context.Background()

	if err := ins.Refresh(ctx, budget); err != nil {
		t.Fatalf("first refresh should succeed: %v", err)
	}
	ins.Position = &types.Position{Qty: 5, AvgPrice: 100, StopLoss: 90}
	before := *ins.Position
	quoteBefore := ins.Quote

	if act := ins.EvaluateSell(ctx, budget, true); act != types.NoAction {
		t.Errorf("Expected no action when refresh fails, got %s", act)
	}
	if act := ins.EvaluateBuy(ctx, budget, strategy.ShortTerm, true, nil); act != types.NoAction {
		t.Errorf("Expected no buy action when refresh fails, got %s", act)
	}

	if ins.Position == nil || *ins.Position != before {
		t.Error("Position mutated despite failed refresh")
	}
	if ins.Quote != quoteBefore {
		t.Error("Snapshot mutated despite failed refresh")
	}
}

func TestStopLossAlwaysSells(t *testing.T) {
	src := &scriptedSource{prices: []float64{85}}
	ins := New("TSLA", src)
	ins.Position = &types.Position{Qty: 10, AvgPrice: 100, StopLoss: 90}
	ctx := context.Background()

	if act := ins.EvaluateSell(ctx, budget, false); act != types.Sell {
		t.Fatalf("Expected sell at 85 with stop at 90, got %s", act)
	}
	if ins.Position != nil {
		t.Error("Expected position cleared after stop-loss sell")
	}
	cl := ins.LastClose()
	if cl.Qty != 10 || cl.Price != 85 {
		t.Errorf("Expected close of 10 @ 85, got %d @ %v", cl.Qty, cl.Price)
	}
	if cl.Profit != -150 { // 10 * (85 - 100)
		t.Errorf("Expected profit -150, got %v", cl.Profit)
	}
}

func TestSellReversalThreshold(t *testing.T) {
	// Entry at 100, rally to 105, then three consecutive down-ticks while
	// still profitable.
	src := &scriptedSource{prices: []float64{100, 105, 104, 103, 102}}
	ins := New("AMD", src)
	ctx := context.Background()

	if act := ins.EvaluateBuy(ctx, budget, strategy.ShortTerm, true, nil); act != types.Buy {
		t.Fatalf("forced buy failed: %s", act)
	}

	var last types.Action
	for i := 0; i < 4; i++ {
		last = ins.EvaluateSell(ctx, budget, false)
		if i < 3 && last != types.NoAction {
			t.Fatalf("step %d: expected no action, got %s", i, last)
		}
	}
	if last != types.Sell {
		t.Fatalf("Expected sell after three down-ticks, got %s", last)
	}
	if ins.Position != nil {
		t.Error("Expected position cleared after reversal sell")
	}
	cl := ins.LastClose()
	if cl.Price != 102 {
		t.Errorf("Expected close at 102, got %v", cl.Price)
	}
	if cl.Profit != float64(cl.Qty)*2 {
		t.Errorf("Expected profit of 2 per share, got %v for qty %d", cl.Profit, cl.Qty)
	}
}

func TestNoSellCountingBelowEntry(t *testing.T) {
	src := &scriptedSource{prices: []float64{99, 98, 97, 96}}
	ins := New("AMD", src)
	ins.Position = &types.Position{Qty: 10, AvgPrice: 100, StopLoss: 90}
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if act := ins.EvaluateSell(ctx, budget, false); act != types.NoAction {
			t.Fatalf("step %d: expected no action below entry price, got %s", i, act)
		}
	}
	if ins.Position == nil {
		t.Error("Position should remain open while above stop and below entry")
	}
}

func TestForcedSellWheneverRefreshSucceeds(t *testing.T) {
	src := &scriptedSource{prices: []float64{101}}
	ins := New("MSFT", src)
	ins.Position = &types.Position{Qty: 3, AvgPrice: 100, StopLoss: 90}

	if act := ins.EvaluateSell(context.Background(), budget, true); act != types.Sell {
		t.Fatalf("Expected forced sell to fire, got %s", act)
	}
	if ins.LastClose().Profit != 3 {
		t.Errorf("Expected profit 3, got %v", ins.LastClose().Profit)
	}
}

func TestExternalFillMarksNonTradeable(t *testing.T) {
	src := &scriptedSource{prices: []float64{50}}
	ins := New("INTC", src)
	fill := &types.Fill{Qty: 7, AvgPrice: 48.5, StopLoss: 43.65}

	if act := ins.EvaluateBuy(context.Background(), budget, strategy.ShortTerm, true, fill); act != types.Buy {
		t.Fatalf("Expected forced buy with external fill, got %s", act)
	}
	if ins.Tradeable {
		t.Error("Expected externally filled instrument to be non-tradeable")
	}
	if ins.Position.Qty != 7 || ins.Position.AvgPrice != 48.5 || ins.Position.StopLoss != 43.65 {
		t.Errorf("External fill not applied verbatim: %+v", ins.Position)
	}
}

func TestRevertCloseRestoresPosition(t *testing.T) {
	src := &scriptedSource{prices: []float64{50, 51}}
	ins := New("INTC", src)
	if act := ins.EvaluateBuy(context.Background(), budget, strategy.ShortTerm, true, nil); act != types.Buy {
		t.Fatalf("forced buy failed: %s", act)
	}
	before := *ins.Position

	if act := ins.EvaluateSell(context.Background(), budget, true); act != types.Sell {
		t.Fatalf("forced sell failed: %s", act)
	}
	ins.RevertClose()

	if ins.Position == nil || *ins.Position != before {
		t.Errorf("Position not restored after reverted close: %+v", ins.Position)
	}
}

func TestRevertOpen(t *testing.T) {
	src := &scriptedSource{prices: []float64{50}}
	ins := New("INTC", src)
	if act := ins.EvaluateBuy(context.Background(), budget, strategy.ShortTerm, true, nil); act != types.Buy {
		t.Fatalf("forced buy failed: %s", act)
	}

	ins.RevertOpen()
	if ins.Position != nil {
		t.Error("Expected position cleared after revert")
	}
	if !ins.Tradeable {
		t.Error("Expected instrument tradeable after revert")
	}
}
