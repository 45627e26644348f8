package ledger

import (
	"context"
	"errors"
	"sync"

	"daytrader/internal/instrument"
	"daytrader/internal/interfaces"
	"daytrader/internal/logger"
	"daytrader/internal/tradelog"
	"daytrader/internal/types"
)

var (
	// ErrNotQueued rejects a buy settlement for an instrument that is not in
	// the watch set; settling the same decision twice hits this.
	ErrNotQueued = errors.New("instrument not in watch set")
	// ErrNotHeld rejects a sell settlement for an instrument that is not held.
	ErrNotHeld = errors.New("instrument not in hold set")
	// ErrDuplicate rejects adding a symbol that is already watched or held.
	ErrDuplicate = errors.New("symbol already tracked")
	// ErrInsufficientFunds rejects a buy that would push available cash below
	// the margin minimum.
	ErrInsufficientFunds = errors.New("buy would breach margin minimum")
)

// MarginState classifies available cash against the safety-net thresholds.
type MarginState int

const (
	MarginOK MarginState = iota
	MarginNear
	MarginBelow
)

func (m MarginState) String() string {
	switch m {
	case MarginNear:
		return "NEAR_THRESHOLD"
	case MarginBelow:
		return "BELOW_THRESHOLD"
	}
	return "OK"
}

// Ledger owns the only mutable shared state of the engine: available cash,
// realized profit and the ordered watch/hold sets. All mutation goes through
// settlement under a single mutex; readers get copies.
type Ledger struct {
	mu sync.Mutex

	availableCash  float64
	realizedProfit float64
	watch          []*instrument.Instrument
	hold           []*instrument.Instrument

	minCash float64
	buffer  float64

	gw interfaces.Gateway
}

func New(cash, minCash, buffer float64, gw interfaces.Gateway) *Ledger {
	return &Ledger{
		availableCash: cash,
		minCash:       minCash,
		buffer:        buffer,
		gw:            gw,
	}
}

// AddWatch queues an instrument. Duplicates across both sets are rejected.
func (l *Ledger) AddWatch(ins *instrument.Instrument) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.findLocked(l.watch, ins.Symbol) != nil || l.findLocked(l.hold, ins.Symbol) != nil {
		return ErrDuplicate
	}
	l.watch = append(l.watch, ins)
	return nil
}

// RemoveWatch drops a queued instrument. Held instruments cannot be removed.
func (l *Ledger) RemoveWatch(symbol string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, ins := range l.watch {
		if ins.Symbol == symbol {
			l.watch = append(l.watch[:i], l.watch[i+1:]...)
			return nil
		}
	}
	return ErrNotQueued
}

// SettleBuy converts a buy decision into ledger state: the order is placed,
// the instrument moves from watch to hold, and cash is debited. Rejected
// with no mutation if the instrument is not queued, the buy would breach the
// margin minimum, or the gateway refuses the order.
func (l *Ledger) SettleBuy(ctx context.Context, ins *instrument.Instrument) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.findLocked(l.watch, ins.Symbol) == nil {
		return ErrNotQueued
	}
	pos := ins.Position
	if pos == nil {
		return ErrNotQueued
	}

	cost := float64(pos.Qty) * pos.AvgPrice
	if l.availableCash-cost < l.minCash {
		logger.Warn(ctx, "Buy rejected by pre-trade budget check",
			"symbol", ins.Symbol,
			"cost", cost,
			"available_cash", l.availableCash,
			"minimum", l.minCash,
		)
		return ErrInsufficientFunds
	}

	resp, err := l.gw.PlaceBuy(ctx, types.OrderReq{
		Symbol:     ins.Symbol,
		Side:       "BUY",
		Qty:        pos.Qty,
		LimitPrice: pos.AvgPrice,
		Tag:        "ENGINE",
	})
	if err != nil {
		return err
	}

	l.availableCash -= cost
	l.moveLocked(&l.watch, &l.hold, ins.Symbol)

	logger.Trade(ctx, ins.Symbol, "BUY", pos.Qty, pos.AvgPrice, resp.OrderID, "stop_loss", pos.StopLoss)
	_ = tradelog.Append(tradelog.Entry{
		Symbol:  ins.Symbol,
		Side:    "BUY",
		Qty:     pos.Qty,
		Price:   pos.AvgPrice,
		OrderID: resp.OrderID,
		Reason:  "engine buy",
	})
	return nil
}

// SettleSell converts a sell decision into ledger state: proceeds are
// credited, realized profit accumulates, and the instrument leaves the hold
// set, re-entering the watch set only under the rebuy policy. Rejected with
// no mutation if the instrument is not held or the gateway refuses the order.
func (l *Ledger) SettleSell(ctx context.Context, ins *instrument.Instrument, cl types.Close, rebuy bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.findLocked(l.hold, ins.Symbol) == nil {
		return ErrNotHeld
	}

	resp, err := l.gw.PlaceSell(ctx, types.OrderReq{
		Symbol:     ins.Symbol,
		Side:       "SELL",
		Qty:        cl.Qty,
		LimitPrice: cl.Price,
		Tag:        "ENGINE",
	})
	if err != nil {
		return err
	}

	l.availableCash += float64(cl.Qty) * cl.Price
	l.realizedProfit += cl.Profit
	l.removeLocked(&l.hold, ins.Symbol)
	if rebuy {
		l.watch = append(l.watch, ins)
	}

	logger.Trade(ctx, ins.Symbol, "SELL", cl.Qty, cl.Price, resp.OrderID, "profit", cl.Profit)
	_ = tradelog.Append(tradelog.Entry{
		Symbol:  ins.Symbol,
		Side:    "SELL",
		Qty:     cl.Qty,
		Price:   cl.Price,
		OrderID: resp.OrderID,
		Reason:  "engine sell",
	})
	return nil
}

// SetCash replaces available cash with a freshly fetched account figure.
func (l *Ledger) SetCash(cash float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.availableCash = cash
}

func (l *Ledger) AvailableCash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.availableCash
}

func (l *Ledger) RealizedProfit() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realizedProfit
}

// CheckMargin classifies available cash against the configured minimum. Cash
// at or below the minimum is a BELOW signal; inside the buffer band above it,
// NEAR.
func (l *Ledger) CheckMargin() MarginState {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.availableCash <= l.minCash:
		return MarginBelow
	case l.availableCash < l.minCash+l.buffer:
		return MarginNear
	}
	return MarginOK
}

// SettleExternal records a reconciled brokerage fill: the instrument moves
// from watch to hold, but no order is placed and no cash is debited because
// the account already owns the shares. The margin floor still gates admission.
func (l *Ledger) SettleExternal(ctx context.Context, ins *instrument.Instrument) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.findLocked(l.watch, ins.Symbol) == nil {
		return ErrNotQueued
	}
	pos := ins.Position
	if pos == nil {
		return ErrNotQueued
	}
	if l.availableCash < l.minCash {
		return ErrInsufficientFunds
	}

	l.moveLocked(&l.watch, &l.hold, ins.Symbol)

	logger.Info(ctx, "External fill recorded",
		"symbol", ins.Symbol,
		"quantity", pos.Qty,
		"avg_price", pos.AvgPrice,
		"stop_loss", pos.StopLoss,
	)
	_ = tradelog.Append(tradelog.Entry{
		Symbol: ins.Symbol,
		Side:   "BUY",
		Qty:    pos.Qty,
		Price:  pos.AvgPrice,
		Reason: "external fill",
	})
	return nil
}

// HoldingView is a copied presentation snapshot of one held position, safe to
// read outside the evaluation path.
type HoldingView struct {
	Symbol    string
	Qty       int
	AvgPrice  float64
	StopLoss  float64
	Last      float64
	Tradeable bool
}

// HoldingViews returns value copies of the hold set for presentation. Callers
// must not overlap cycle evaluation; the engine serializes this behind its
// cycle lock.
func (l *Ledger) HoldingViews() []HoldingView {
	l.mu.Lock()
	defer l.mu.Unlock()
	views := make([]HoldingView, 0, len(l.hold))
	for _, ins := range l.hold {
		if ins.Position == nil {
			continue
		}
		views = append(views, HoldingView{
			Symbol:    ins.Symbol,
			Qty:       ins.Position.Qty,
			AvgPrice:  ins.Position.AvgPrice,
			StopLoss:  ins.Position.StopLoss,
			Last:      ins.Quote.Last,
			Tradeable: ins.Tradeable,
		})
	}
	return views
}

// Instruments returns copies of the watch and hold sets for one cycle's
// evaluation batch.
func (l *Ledger) Instruments() (watch, hold []*instrument.Instrument) {
	l.mu.Lock()
	defer l.mu.Unlock()
	watch = append(watch, l.watch...)
	hold = append(hold, l.hold...)
	return watch, hold
}

// FindWatch looks a queued instrument up by symbol.
func (l *Ledger) FindWatch(symbol string) *instrument.Instrument {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.findLocked(l.watch, symbol)
}

// FindHold looks a held instrument up by symbol.
func (l *Ledger) FindHold(symbol string) *instrument.Instrument {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.findLocked(l.hold, symbol)
}

// WatchSymbols returns the queued symbols in order, for persistence.
func (l *Ledger) WatchSymbols() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	syms := make([]string, 0, len(l.watch))
	for _, ins := range l.watch {
		syms = append(syms, ins.Symbol)
	}
	return syms
}

func (l *Ledger) findLocked(set []*instrument.Instrument, symbol string) *instrument.Instrument {
	for _, ins := range set {
		if ins.Symbol == symbol {
			return ins
		}
	}
	return nil
}

func (l *Ledger) removeLocked(set *[]*instrument.Instrument, symbol string) {
	for i, ins := range *set {
		if ins.Symbol == symbol {
			*set = append((*set)[:i], (*set)[i+1:]...)
			return
		}
	}
}

func (l *Ledger) moveLocked(from, to *[]*instrument.Instrument, symbol string) {
	ins := l.findLocked(*from, symbol)
	if ins == nil {
		return
	}
	l.removeLocked(from, symbol)
	*to = append(*to, ins)
}
