// Package api exposes the engine's derived analytics and the textual
// book dump over HTTP, plus a websocket stream of per-packet tops.
// Everything here is a pure read of the mirror; nothing mutates engine
// state.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/book"
	"github.com/danhju/mirrorbook/pkg/feed"
	"github.com/danhju/mirrorbook/pkg/metrics"
	"github.com/danhju/mirrorbook/pkg/recon"
)

const defaultSignalDepth = 30

type Server struct {
	state  *recon.State
	met    *metrics.Metrics
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

func NewServer(state *recon.State, met *metrics.Metrics, log *zap.SugaredLogger) *Server {
	s := &Server{
		state:  state,
		met:    met,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/books", s.handleListBooks).Methods("GET")
	api.HandleFunc("/books/{symbol}", s.handleGetBook).Methods("GET")
	api.HandleFunc("/books/{symbol}/dump", s.handleDumpBook).Methods("GET")
	api.HandleFunc("/account", s.handleGetAccount).Methods("GET")

	s.router.HandleFunc("/ws", s.hub.handle)
	s.router.Handle("/metrics", s.met.Handler())
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start blocks serving HTTP on addr.
func (s *Server) Start(addr string) error {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	s.log.Infow("api server starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.state.Symbols())
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	levels := 0
	if v := r.URL.Query().Get("levels"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			levels = n
		}
	}

	b := s.state.Book(symbol)
	snap := BookSnapshot{
		Symbol:    symbol,
		Bids:      b.Levels(book.Buy, levels),
		Asks:      b.Levels(book.Sell, levels),
		Mid:       b.Mid(s.state.LastTradePrice()),
		Spread:    b.Spread(),
		Signal:    b.ImbalanceSignal(defaultSignalDepth),
		Timestamp: time.Now().UnixMilli(),
	}
	if bid, ok := b.Best(book.Buy); ok {
		snap.BestBid = &bid
	}
	if ask, ok := b.Best(book.Sell); ok {
		snap.BestAsk = &ask
	}
	respondJSON(w, snap)
}

// handleDumpBook serves the plain-text snapshot: offers descending,
// bids ascending, own orders marked, EOF sentinel.
func (s *Server) handleDumpBook(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.state.Book(symbol).Dump(w, s.state.IsMine); err != nil {
		s.log.Warnw("book dump failed", "symbol", symbol, "err", err)
	}
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, AccountSummary{
		TraderID:     s.state.TraderID(),
		Cash:         s.state.Cash(),
		Positions:    s.state.Positions(),
		VolumeTraded: s.state.VolumeTraded(),
		PnL:          s.state.PnL(),
		OpenOrders:   s.state.OpenOrders(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// StreamHandler plugs the hub into the event stream: at every packet
// end it pushes fresh tops for each live book. Registered after the
// reconciliation state so it observes the packet's full effect.
type StreamHandler struct {
	feed.NopHandler
	state *recon.State
	hub   *Hub
}

func (s *Server) StreamHandler() *StreamHandler {
	return &StreamHandler{state: s.state, hub: s.hub}
}

var _ feed.Handler = (*StreamHandler)(nil)

func (h *StreamHandler) OnPacketEnd() error {
	pnl := h.state.PnL()
	for _, symbol := range h.state.Symbols() {
		b := h.state.Book(symbol)
		top := BookTop{
			Symbol: symbol,
			Mid:    b.Mid(h.state.LastTradePrice()),
			Signal: b.ImbalanceSignal(defaultSignalDepth),
			PnL:    pnl,
		}
		if bid, ok := b.Best(book.Buy); ok {
			top.BestBid = &bid
		}
		if ask, ok := b.Best(book.Sell); ok {
			top.BestAsk = &ask
		}
		h.hub.Broadcast(top)
	}
	return nil
}
