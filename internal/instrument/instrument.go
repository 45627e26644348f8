package instrument

import (
	"context"
	"math"

	"daytrader/internal/interfaces"
	"daytrader/internal/logger"
	"daytrader/internal/strategy"
	"daytrader/internal/types"
)

// stopLossPct is how far below the entry price the stop-loss is anchored.
const stopLossPct = 0.10

// Reversal thresholds: consecutive qualifying moves before a signal fires.
const (
	shortTermBuyReversals  = 2
	priceSwingBuyReversals = 3
	sellReversals          = 3
)

// swingBand is the minimum (dayHigh-price)/price distance for PriceSwing to
// evaluate at all.
const swingBand = 0.01

// Instrument owns one symbol's market snapshot, position state and reversal
// counters, and turns a stream of refreshes into buy/sell signals.
//
// Not safe for concurrent use; the scheduler evaluates each instrument from
// at most one goroutine per cycle.
type Instrument struct {
	Symbol      string
	Quote       types.Quote
	ProposedQty int
	Position    *types.Position

	// Tradeable is false for positions opened outside the engine's own buy
	// path; the engine will not autonomously sell those.
	Tradeable bool

	buyReversals  int
	sellReversals int
	refPrice      float64
	lastClose     types.Close
	prevPosition  *types.Position

	src interfaces.QuoteSource
}

func New(symbol string, src interfaces.QuoteSource) *Instrument {
	return &Instrument{
		Symbol:    symbol,
		Tradeable: true,
		src:       src,
	}
}

// Refresh pulls a fresh snapshot and recomputes the proposed buy quantity
// for the given per-trade budget. On failure the prior snapshot is left
// untouched; callers skip this instrument for the cycle.
func (ins *Instrument) Refresh(ctx context.Context, budget float64) error {
	q, err := ins.src.Fetch(ctx, ins.Symbol)
	if err != nil {
		return err
	}

	ins.Quote = q
	ins.ProposedQty = int(budget / q.Last)

	// First successful refresh anchors the reversal reference.
	if ins.refPrice == 0 {
		ins.refPrice = q.Last
	}
	return nil
}

// EvaluateSell decides whether to close the open position. Forced sells and
// stop-loss breaches close immediately; otherwise a sell fires after three
// consecutive down-ticks off the rolling reference while the price is still
// above the entry. Any sell signal clears the position state.
func (ins *Instrument) EvaluateSell(ctx context.Context, budget float64, forced bool) types.Action {
	if err := ins.Refresh(ctx, budget); err != nil {
		logger.Debug(ctx, "Fetch empty, skipping sell evaluation", "symbol", ins.Symbol, "error", err)
		return types.NoAction
	}
	if ins.Position == nil {
		return types.NoAction
	}

	price := ins.Quote.Last

	if forced || price <= ins.Position.StopLoss {
		ins.closePosition(price)
		logger.Info(ctx, "Sell signal", "symbol", ins.Symbol, "price", price, "forced", forced)
		return types.Sell
	}

	// Reversal counting only runs while the trade is profitable.
	if price > ins.Position.AvgPrice {
		if price < ins.refPrice {
			ins.sellReversals++
		} else if price > ins.refPrice {
			ins.refPrice = price
			ins.sellReversals = 0
		}
	}

	if ins.sellReversals == sellReversals {
		ins.closePosition(price)
		logger.Info(ctx, "Sell signal", "symbol", ins.Symbol, "price", price, "reason", "reversal")
		return types.Sell
	}
	return types.NoAction
}

// EvaluateBuy decides whether to open a position under the given strategy.
// A forced buy opens immediately; with an external fill the instrument is
// marked non-tradeable so the engine never autonomously sells it.
func (ins *Instrument) EvaluateBuy(ctx context.Context, budget float64, strat strategy.Strategy, forced bool, ext *types.Fill) types.Action {
	if err := ins.Refresh(ctx, budget); err != nil {
		logger.Debug(ctx, "Fetch empty, skipping buy evaluation", "symbol", ins.Symbol, "error", err)
		return types.NoAction
	}
	if ins.Position != nil {
		return types.NoAction
	}

	price := ins.Quote.Last

	if forced {
		ins.openPosition(ext)
		logger.Info(ctx, "Buy signal", "symbol", ins.Symbol, "price", price, "forced", true)
		return types.Buy
	}

	switch strat {
	case strategy.ShortTerm:
		// Ride the price down, then buy on the second tick back up.
		if price < ins.refPrice {
			ins.refPrice = price
			ins.buyReversals = 0
		} else if price > ins.refPrice {
			ins.buyReversals++
		}
		if ins.buyReversals == shortTermBuyReversals {
			ins.openPosition(nil)
			logger.Info(ctx, "Buy signal", "symbol", ins.Symbol, "price", price, "strategy", strat)
			return types.Buy
		}

	case strategy.PriceSwing:
		// Only evaluated while price sits more than 1% under the day high.
		// Unlike ShortTerm, an up-tick moves the reference AND counts.
		if (ins.Quote.DayHigh-price)/price > swingBand {
			if price < ins.refPrice {
				ins.refPrice = price
				ins.buyReversals = 0
			} else if price > ins.refPrice {
				ins.refPrice = price
				ins.buyReversals++
			}
			if ins.buyReversals == priceSwingBuyReversals {
				ins.openPosition(nil)
				logger.Info(ctx, "Buy signal", "symbol", ins.Symbol, "price", price, "strategy", strat)
				return types.Buy
			}
		}
	}
	return types.NoAction
}

// LastClose returns the terms of the most recent position close, for
// settlement.
func (ins *Instrument) LastClose() types.Close {
	return ins.lastClose
}

// RevertOpen rolls back a buy whose settlement was rejected, so the ledger
// and actual brokerage state cannot diverge silently.
func (ins *Instrument) RevertOpen() {
	ins.Position = nil
	ins.Tradeable = true
}

// RevertClose restores the position after a sell settlement was rejected.
func (ins *Instrument) RevertClose() {
	if ins.prevPosition != nil {
		ins.Position = ins.prevPosition
		ins.prevPosition = nil
	}
}

func (ins *Instrument) openPosition(ext *types.Fill) {
	ins.buyReversals = 0
	price := ins.Quote.Last

	if ext != nil {
		ins.Position = &types.Position{Qty: ext.Qty, AvgPrice: ext.AvgPrice, StopLoss: ext.StopLoss}
		ins.Tradeable = false
		return
	}

	ins.Position = &types.Position{
		Qty:      ins.ProposedQty,
		AvgPrice: price,
		StopLoss: roundCents(price * (1 - stopLossPct)),
	}
	// Re-anchor so sell reversal counting starts from the entry.
	ins.refPrice = price
}

func (ins *Instrument) closePosition(price float64) {
	pos := *ins.Position
	ins.lastClose = types.Close{
		Qty:    pos.Qty,
		Price:  price,
		Profit: float64(pos.Qty) * (price - pos.AvgPrice),
	}
	ins.prevPosition = &pos
	ins.Position = nil
	ins.sellReversals = 0
}

func roundCents(x float64) float64 {
	return math.Round(x*100) / 100
}
