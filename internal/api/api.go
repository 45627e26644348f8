package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"daytrader/internal/engine"
	"daytrader/internal/ledger"
	"daytrader/internal/logger"
	"daytrader/internal/types"
)

// Server is the operator control surface: start/pause trading, edit the
// watchlist, issue forced buys and sells, and inspect engine state. It binds
// to a local address; there is no authentication layer.
type Server struct {
	eng *engine.Engine
	srv *http.Server
}

func New(addr string, eng *engine.Engine) *Server {
	s := &Server{eng: eng}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /trading/start", s.handleStart)
	mux.HandleFunc("POST /trading/pause", s.handlePause)
	mux.HandleFunc("POST /watchlist/add", s.handleAdd)
	mux.HandleFunc("POST /watchlist/remove", s.handleRemove)
	mux.HandleFunc("POST /orders/buy", s.handleBuy)
	mux.HandleFunc("POST /orders/sell", s.handleSell)
	mux.HandleFunc("GET /status", s.handleStatus)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves until Shutdown; it returns once the listener closes.
func (s *Server) Start(ctx context.Context) error {
	logger.Info(ctx, "Control server listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

type symbolRequest struct {
	Symbol string `json:"symbol"`

	// Optional reconciled brokerage fill for forced buys.
	Fill *struct {
		Qty      int     `json:"qty"`
		AvgPrice float64 `json:"avg_price"`
		StopLoss float64 `json:"stop_loss"`
	} `json:"fill,omitempty"`
}

type positionView struct {
	Symbol    string  `json:"symbol"`
	Qty       int     `json:"qty"`
	AvgPrice  float64 `json:"avg_price"`
	StopLoss  float64 `json:"stop_loss"`
	Last      float64 `json:"last"`
	Tradeable bool    `json:"tradeable"`
}

type statusResponse struct {
	Trading        bool           `json:"trading"`
	AvailableCash  float64        `json:"available_cash"`
	RealizedProfit float64        `json:"realized_profit"`
	MarginState    string         `json:"margin_state"`
	Watchlist      []string       `json:"watchlist"`
	Holdings       []positionView `json:"holdings"`
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.eng.SetTrading(r.Context(), true)
	writeJSON(w, http.StatusOK, map[string]bool{"trading": true})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.eng.SetTrading(r.Context(), false)
	writeJSON(w, http.StatusOK, map[string]bool{"trading": false})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSymbol(w, r)
	if !ok {
		return
	}
	if err := s.eng.AddSymbol(r.Context(), req.Symbol); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"added": req.Symbol})
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSymbol(w, r)
	if !ok {
		return
	}
	if err := s.eng.RemoveSymbol(r.Context(), req.Symbol); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"removed": req.Symbol})
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSymbol(w, r)
	if !ok {
		return
	}
	var fill *types.Fill
	if req.Fill != nil {
		fill = &types.Fill{Qty: req.Fill.Qty, AvgPrice: req.Fill.AvgPrice, StopLoss: req.Fill.StopLoss}
	}
	if err := s.eng.ForceBuy(r.Context(), req.Symbol, fill); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"bought": req.Symbol})
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeSymbol(w, r)
	if !ok {
		return
	}
	if err := s.eng.ForceSell(r.Context(), req.Symbol); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sold": req.Symbol})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	// The engine's snapshot is value copies only; nothing here can touch a
	// live instrument while a cycle is evaluating it.
	st := s.eng.Snapshot()
	holdings := make([]positionView, 0, len(st.Holdings))
	for _, h := range st.Holdings {
		holdings = append(holdings, positionView{
			Symbol:    h.Symbol,
			Qty:       h.Qty,
			AvgPrice:  h.AvgPrice,
			StopLoss:  h.StopLoss,
			Last:      h.Last,
			Tradeable: h.Tradeable,
		})
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Trading:        st.Trading,
		AvailableCash:  st.AvailableCash,
		RealizedProfit: st.RealizedProfit,
		MarginState:    st.MarginState.String(),
		Watchlist:      st.Watchlist,
		Holdings:       holdings,
	})
}

func decodeSymbol(w http.ResponseWriter, r *http.Request) (symbolRequest, bool) {
	var req symbolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Symbol == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "symbol is required"})
		return req, false
	}
	return req, true
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, engine.ErrUnknownSymbol), errors.Is(err, ledger.ErrNotQueued), errors.Is(err, ledger.ErrNotHeld):
		code = http.StatusNotFound
	case errors.Is(err, ledger.ErrDuplicate):
		code = http.StatusConflict
	case errors.Is(err, engine.ErrMarginHalt), errors.Is(err, ledger.ErrInsufficientFunds):
		code = http.StatusForbidden
	case errors.Is(err, engine.ErrNoQuote):
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
