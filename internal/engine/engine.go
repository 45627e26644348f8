package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"daytrader/internal/instrument"
	"daytrader/internal/interfaces"
	"daytrader/internal/ledger"
	"daytrader/internal/logger"
	"daytrader/internal/store"
	"daytrader/internal/strategy"
	"daytrader/internal/types"
)

var (
	// ErrUnknownSymbol rejects operator commands naming an untracked symbol.
	ErrUnknownSymbol = errors.New("symbol not tracked")
	// ErrMarginHalt rejects new symbols while cash sits below the margin minimum.
	ErrMarginHalt = errors.New("margin below minimum")
	// ErrNoQuote rejects a forced action whose quote refresh failed.
	ErrNoQuote = errors.New("no quote available")
)

// outcome is one instrument's decision for the settlement consumer.
type outcome struct {
	ins *instrument.Instrument
	act types.Action
	cl  types.Close
}

// Engine drives the polling cycle: it refreshes account figures, fans the
// watch/hold evaluation batch out to a bounded worker pool, and funnels the
// resulting decisions through a single settlement consumer.
type Engine struct {
	cfg  *store.Config
	src  interfaces.QuoteSource
	gw   interfaces.Gateway
	book *ledger.Ledger

	trading atomic.Bool
	busy    atomic.Bool

	// opMu serializes cycle evaluation with forced actions and snapshot
	// reads; instrument structs are only mutated while it is held.
	opMu sync.Mutex

	now func() time.Time
}

func New(cfg *store.Config, src interfaces.QuoteSource, gw interfaces.Gateway, book *ledger.Ledger) *Engine {
	return &Engine{cfg: cfg, src: src, gw: gw, book: book, now: time.Now}
}

// Run ticks the polling cycle until the context is cancelled. A tick that
// fires while the previous cycle is still settling is skipped, never run
// concurrently.
func (e *Engine) Run(ctx context.Context) {
	tick := time.NewTicker(time.Duration(e.cfg.PollSeconds) * time.Second)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if !e.busy.CompareAndSwap(false, true) {
				logger.Debug(ctx, "Previous cycle still running, skipping tick")
				continue
			}
			go func() {
				defer e.busy.Store(false)
				e.Cycle(ctx)
			}()
		}
	}
}

// Cycle runs one evaluation pass over the watch and hold sets.
func (e *Engine) Cycle(ctx context.Context) {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	defer logger.OperationTimer(ctx, "cycle")()

	now := e.now()

	if sum, err := e.gw.Portfolio(ctx); err != nil {
		logger.Warn(ctx, "Portfolio refresh failed, keeping last cash figure", "error", err)
	} else {
		e.book.SetCash(sum.WithdrawableCash)
	}

	switch st := e.book.CheckMargin(); st {
	case ledger.MarginBelow:
		if e.trading.CompareAndSwap(true, false) {
			logger.Margin(ctx, st.String(), e.book.AvailableCash(), e.cfg.Margin.Minimum, "action", "trading paused")
		} else {
			logger.Margin(ctx, st.String(), e.book.AvailableCash(), e.cfg.Margin.Minimum)
		}
	case ledger.MarginNear:
		logger.Margin(ctx, st.String(), e.book.AvailableCash(), e.cfg.Margin.Minimum)
	}

	if strategy.AfterHours(now) && e.trading.CompareAndSwap(true, false) {
		logger.Info(ctx, "Market closed, trading paused")
	}

	strat := strategy.ForTime(now)
	liquidate := false
	if h, m, err := e.cfg.LiquidateHourMinute(); err == nil {
		liquidate = e.trading.Load() && strategy.PastCutoff(now, h, m)
	}
	active := e.trading.Load()

	watch, hold := e.book.Instruments()
	budget := e.cfg.BudgetPerTrade

	results := make(chan outcome, len(watch)+len(hold))
	sem := make(chan struct{}, e.cfg.MaxWorkers)
	var wg sync.WaitGroup

	eval := func(fn func()) {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fn()
		}()
	}

	for _, ins := range watch {
		ins := ins
		if active && !liquidate {
			eval(func() {
				if act := ins.EvaluateBuy(ctx, budget, strat, false, nil); act == types.Buy {
					results <- outcome{ins: ins, act: act}
				}
			})
		} else {
			eval(func() { e.refreshOnly(ctx, ins, budget) })
		}
	}

	for _, ins := range hold {
		ins := ins
		switch {
		case liquidate && ins.Tradeable:
			eval(func() {
				if act := ins.EvaluateSell(ctx, budget, true); act == types.Sell {
					results <- outcome{ins: ins, act: act, cl: ins.LastClose()}
				}
			})
		case !active && ins.Tradeable:
			eval(func() {
				if act := ins.EvaluateSell(ctx, budget, false); act == types.Sell {
					results <- outcome{ins: ins, act: act, cl: ins.LastClose()}
				}
			})
		default:
			eval(func() { e.refreshOnly(ctx, ins, budget) })
		}
	}

	// Single consumer serializes all ledger mutations for the cycle.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for out := range results {
			e.settle(ctx, out)
		}
	}()
	wg.Wait()
	close(results)
	<-done
}

func (e *Engine) refreshOnly(ctx context.Context, ins *instrument.Instrument, budget float64) {
	if err := ins.Refresh(ctx, budget); err != nil {
		logger.Debug(ctx, "Quote refresh failed", "symbol", ins.Symbol, "error", err)
	}
}

func (e *Engine) settle(ctx context.Context, out outcome) {
	switch out.act {
	case types.Buy:
		if err := e.book.SettleBuy(ctx, out.ins); err != nil {
			out.ins.RevertOpen()
			logger.Warn(ctx, "Buy settlement rejected", "symbol", out.ins.Symbol, "error", err)
		}
	case types.Sell:
		if err := e.book.SettleSell(ctx, out.ins, out.cl, e.cfg.Rebuy); err != nil {
			out.ins.RevertClose()
			logger.Warn(ctx, "Sell settlement rejected", "symbol", out.ins.Symbol, "error", err)
		}
	}
}

// SetTrading flips the start/pause toggle.
func (e *Engine) SetTrading(ctx context.Context, on bool) {
	e.trading.Store(on)
	if on {
		logger.Info(ctx, "Trading started")
	} else {
		logger.Info(ctx, "Trading paused")
	}
}

func (e *Engine) Trading() bool { return e.trading.Load() }

// AddSymbol queues a new symbol and persists the watchlist. Admission is
// refused while cash sits below the margin minimum.
func (e *Engine) AddSymbol(ctx context.Context, symbol string) error {
	if e.book.CheckMargin() == ledger.MarginBelow {
		return ErrMarginHalt
	}
	if err := e.book.AddWatch(instrument.New(symbol, e.src)); err != nil {
		return err
	}
	logger.Info(ctx, "Symbol added to watchlist", "symbol", symbol)
	e.SaveState(ctx)
	return nil
}

// RemoveSymbol drops a queued symbol and persists the watchlist.
func (e *Engine) RemoveSymbol(ctx context.Context, symbol string) error {
	if err := e.book.RemoveWatch(symbol); err != nil {
		return err
	}
	logger.Info(ctx, "Symbol removed from watchlist", "symbol", symbol)
	e.SaveState(ctx)
	return nil
}

// ForceBuy opens a position immediately, bypassing strategy evaluation but
// not settlement or the pre-trade budget check. With an external fill the
// position is applied verbatim, recorded without an order or cash debit
// (the account already owns the shares), and excluded from autonomous selling.
func (e *Engine) ForceBuy(ctx context.Context, symbol string, ext *types.Fill) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	ins := e.book.FindWatch(symbol)
	if ins == nil {
		return ErrUnknownSymbol
	}
	strat := strategy.ForTime(e.now())
	if act := ins.EvaluateBuy(ctx, e.cfg.BudgetPerTrade, strat, true, ext); act != types.Buy {
		return ErrNoQuote
	}

	settle := e.book.SettleBuy
	if ext != nil {
		settle = e.book.SettleExternal
	}
	if err := settle(ctx, ins); err != nil {
		ins.RevertOpen()
		return err
	}
	return nil
}

// ForceSell closes a held position immediately regardless of counters.
func (e *Engine) ForceSell(ctx context.Context, symbol string) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	ins := e.book.FindHold(symbol)
	if ins == nil {
		return ErrUnknownSymbol
	}
	if act := ins.EvaluateSell(ctx, e.cfg.BudgetPerTrade, true); act != types.Sell {
		return ErrNoQuote
	}
	if err := e.book.SettleSell(ctx, ins, ins.LastClose(), e.cfg.Rebuy); err != nil {
		ins.RevertClose()
		return err
	}
	return nil
}

// Status is a copied presentation snapshot of the engine and ledger state.
type Status struct {
	Trading        bool
	AvailableCash  float64
	RealizedProfit float64
	MarginState    ledger.MarginState
	Watchlist      []string
	Holdings       []ledger.HoldingView
}

// Snapshot copies the current state for presentation. It never exposes live
// instrument structs and never overlaps cycle evaluation.
func (e *Engine) Snapshot() Status {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return Status{
		Trading:        e.trading.Load(),
		AvailableCash:  e.book.AvailableCash(),
		RealizedProfit: e.book.RealizedProfit(),
		MarginState:    e.book.CheckMargin(),
		Watchlist:      e.book.WatchSymbols(),
		Holdings:       e.book.HoldingViews(),
	}
}

// SaveState writes the current watchlist to the configured state path.
func (e *Engine) SaveState(ctx context.Context) {
	st := &store.State{Watchlist: e.book.WatchSymbols()}
	if err := store.SaveState(e.cfg.StatePath, st); err != nil {
		logger.Warn(ctx, "Failed to persist watchlist", "path", e.cfg.StatePath, "error", err)
	}
}
