package quote

import (
	"context"
	"hash/fnv"
	"math/rand"
	"sync"

	"daytrader/internal/interfaces"
	"daytrader/internal/types"
)

// StaticSource simulates a quote feed for DRY_RUN: each symbol starts from a
// hash-derived base price and random-walks on every fetch, with day and year
// ranges tracked alongside.
type StaticSource struct {
	mu    sync.Mutex
	rng   *rand.Rand
	state map[string]*simQuote
}

type simQuote struct {
	last      float64
	prevClose float64
	dayLow    float64
	dayHigh   float64
	volume    float64
}

var _ interfaces.QuoteSource = (*StaticSource)(nil)

func NewStaticSource(seed int64) *StaticSource {
	return &StaticSource{
		rng:   rand.New(rand.NewSource(seed)),
		state: make(map[string]*simQuote),
	}
}

func (s *StaticSource) Fetch(ctx context.Context, symbol string) (types.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sq := s.state[symbol]
	if sq == nil {
		base := basePrice(symbol)
		sq = &simQuote{last: base, prevClose: base, dayLow: base, dayHigh: base}
		s.state[symbol] = sq
	}

	// Random walk of up to +/-0.5% per fetch.
	move := (s.rng.Float64() - 0.5) * 0.01 * sq.last
	sq.last += move
	if sq.last < 1 {
		sq.last = 1
	}
	if sq.last > sq.dayHigh {
		sq.dayHigh = sq.last
	}
	if sq.last < sq.dayLow {
		sq.dayLow = sq.last
	}
	sq.volume += float64(s.rng.Intn(5000))

	dir := types.DirFlat
	if move > 0 {
		dir = types.DirUp
	} else if move < 0 {
		dir = types.DirDown
	}

	change := sq.last - sq.prevClose
	return types.Quote{
		Symbol:    symbol,
		Last:      sq.last,
		Change:    change,
		ChangePct: change / sq.prevClose * 100,
		Volume:    sq.volume,
		PrevClose: sq.prevClose,
		DayLow:    sq.dayLow,
		DayHigh:   sq.dayHigh,
		YearLow:   sq.dayLow * 0.7,
		YearHigh:  sq.dayHigh * 1.4,
		Direction: dir,
	}, nil
}

func basePrice(symbol string) float64 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(symbol))
	return 20 + float64(h.Sum32()%2000)/10
}
