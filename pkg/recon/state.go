// Package recon is the trade-reconciliation state machine: it turns
// the raw event stream into per-instrument book mirrors plus the
// owning trader's position, cash, and open-order state.
package recon

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/book"
	"github.com/danhju/mirrorbook/pkg/feed"
	"github.com/danhju/mirrorbook/pkg/metrics"
)

// State holds everything the trader knows. Books reflect the whole
// market; submitted/openOrders are the trader-scoped view into the
// subset it owns, kept consistent by reacting to the same event stream
// in the same order.
//
// All mutation happens on the event-processing goroutine. The lock
// lets the API goroutine run analytics queries between events.
type State struct {
	mu sync.RWMutex

	traderID uint64
	books    map[string]*book.OrderBook

	submitted  map[uint64]struct{}
	openOrders map[uint64]book.Order

	cash           float64
	positions      map[string]int64
	volumeTraded   int64
	lastTradePrice float64

	log *zap.SugaredLogger
	met *metrics.Metrics
}

func New(traderID uint64, log *zap.SugaredLogger, met *metrics.Metrics) *State {
	return &State{
		traderID:       traderID,
		books:          make(map[string]*book.OrderBook),
		submitted:      make(map[uint64]struct{}),
		openOrders:     make(map[uint64]book.Order),
		positions:      make(map[string]int64),
		lastTradePrice: 100.0,
		log:            log,
		met:            met,
	}
}

func (s *State) TraderID() uint64 { return s.traderID }

// Book returns the instrument's mirror, creating an empty one on first
// reference.
func (s *State) Book(symbol string) *book.OrderBook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookLocked(symbol)
}

func (s *State) bookLocked(symbol string) *book.OrderBook {
	b, ok := s.books[symbol]
	if !ok {
		b = book.New(symbol)
		s.books[symbol] = b
	}
	return b
}

var _ feed.Handler = (*State)(nil)

func (s *State) OnPacketStart() error { return nil }

// OnPacketEnd refreshes the exported PnL gauge; the books themselves
// are already current after every event.
func (s *State) OnPacketEnd() error {
	s.met.PnL.Set(s.PnL())
	return nil
}

// OnOrderUpdate mirrors a newly resting order. When it is one of ours,
// the open-order snapshot is upserted too. A duplicate id is an
// upstream invariant breach and propagates as a fatal error.
func (s *State) OnOrderUpdate(u feed.OrderUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := book.Order{
		Symbol:   u.Symbol,
		Price:    u.Price,
		Qty:      u.Qty,
		Side:     u.Side,
		ID:       u.OrderID,
		TraderID: s.traderID,
	}

	if err := s.bookLocked(u.Symbol).Insert(order); err != nil {
		return fmt.Errorf("mirror corrupt: %w", err)
	}

	if _, mine := s.submitted[u.OrderID]; mine {
		s.openOrders[u.OrderID] = order
	}
	return nil
}

// OnTradeUpdate always removes the traded liquidity from the book and
// records the trade price, then classifies the fill:
//
//   - resting side ours, aggressor not: attributed fill against the
//     inverse of the reported (aggressor) side
//   - aggressor ours, resting not: attributed fill with the reported
//     side as-is
//   - both ours: self-trade; book-only, the ledger must not move
//   - neither: pure market information
func (s *State) OnTradeUpdate(u feed.TradeUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastTradePrice = u.Price

	if rem := s.bookLocked(u.Symbol).DecreaseQty(u.RestingID, u.Qty); rem < 0 {
		s.met.StaleDecreases.Inc()
		s.log.Debugw("trade for unknown resting order",
			"symbol", u.Symbol, "resting_id", u.RestingID)
	}

	_, restingMine := s.submitted[u.RestingID]
	_, aggressingMine := s.submitted[u.AggressingID]

	switch {
	case restingMine:
		if !aggressingMine {
			// Resting fills execute opposite the reported trade
			// side: the side records the aggressor's direction.
			signed := u.Qty
			if u.Side == book.Buy {
				signed = -signed
			}
			s.applyFill(u.Symbol, u.Price, signed, u.Qty)
		} else {
			s.met.SelfTrades.Inc()
			s.log.Debugw("self trade",
				"symbol", u.Symbol, "resting_id", u.RestingID, "aggressing_id", u.AggressingID)
		}

		if open, ok := s.openOrders[u.RestingID]; ok {
			open.Qty -= u.Qty
			if open.Qty <= 0 {
				delete(s.openOrders, u.RestingID)
			} else {
				s.openOrders[u.RestingID] = open
			}
		}

	case aggressingMine:
		signed := u.Qty
		if u.Side == book.Sell {
			signed = -signed
		}
		s.applyFill(u.Symbol, u.Price, signed, u.Qty)
	}

	return nil
}

// applyFill books an attributed fill: signedQty is positive when the
// fill increases our net long exposure.
func (s *State) applyFill(symbol string, price float64, signedQty, qty int64) {
	s.cash -= price * float64(signedQty)
	s.positions[symbol] += signedQty
	s.volumeTraded += qty
	s.met.TradesAttributed.Inc()
}

// OnCancelUpdate removes the order from its book mirror. An unknown id
// is a legitimate race (the order fully filled first) and is counted,
// not errored. The id's relevance to the trader ends here regardless
// of whether it was ever tracked as open.
func (s *State) OnCancelUpdate(u feed.CancelUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.bookLocked(u.Symbol).Cancel(u.OrderID) {
		s.met.UnknownCancels.Inc()
		s.log.Infow("cancel for unknown order",
			"symbol", u.Symbol, "order_id", u.OrderID)
	}

	delete(s.openOrders, u.OrderID)
	delete(s.submitted, u.OrderID)
	return nil
}

// OnRejectOrder surfaces the reject; engine state is untouched.
func (s *State) OnRejectOrder(u feed.RejectOrderUpdate) error {
	s.met.RejectsSurfaced.Inc()
	s.log.Warnw("order rejected",
		"symbol", u.Symbol, "order_id", u.OrderID, "reason", u.Reason.String(), "msg", u.Msg)
	return nil
}

// OnRejectCancel suppresses the invalid-order-id reason: the target
// already left the book, which is exactly what the cancel wanted.
func (s *State) OnRejectCancel(u feed.RejectCancelUpdate) error {
	if u.Reason == feed.ReasonInvalidOrderID {
		s.met.BenignRejects.Inc()
		s.log.Debugw("cancel reject for already-gone order",
			"symbol", u.Symbol, "order_id", u.OrderID)
		return nil
	}
	s.met.RejectsSurfaced.Inc()
	s.log.Warnw("cancel rejected",
		"symbol", u.Symbol, "order_id", u.OrderID, "reason", u.Reason.String(), "msg", u.Msg)
	return nil
}

// OnSubmit records an order id as ours the moment the request is sent,
// before any feed event referencing it can arrive.
func (s *State) OnSubmit(o book.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted[o.ID] = struct{}{}
}

// IsMine reports whether the id was self-submitted and not yet
// terminated by a cancel.
func (s *State) IsMine(id uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.submitted[id]
	return ok
}

func (s *State) Cash() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cash
}

func (s *State) Position(symbol string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.positions[symbol]
}

func (s *State) Positions() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.positions))
	for sym, q := range s.positions {
		out[sym] = q
	}
	return out
}

func (s *State) VolumeTraded() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.volumeTraded
}

func (s *State) LastTradePrice() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastTradePrice
}

// OpenOrders returns snapshots of our still-resting orders.
func (s *State) OpenOrders() []book.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]book.Order, 0, len(s.openOrders))
	for _, o := range s.openOrders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// OpenOrderLevels groups our open orders by price.
func (s *State) OpenOrderLevels() map[float64][]book.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	levels := make(map[float64][]book.Order)
	for _, o := range s.openOrders {
		levels[o.Price] = append(levels[o.Price], o)
	}
	return levels
}

// Symbols lists instruments with a live mirror, sorted for stable
// output.
func (s *State) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.books))
	for sym := range s.books {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// PnL marks every position to mid, falling back to the last observed
// trade price for one-sided books: cash + sum(position * mid).
func (s *State) PnL() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pnl := s.cash
	for sym, qty := range s.positions {
		if b, ok := s.books[sym]; ok {
			pnl += float64(qty) * b.Mid(s.lastTradePrice)
		} else {
			pnl += float64(qty) * s.lastTradePrice
		}
	}
	return pnl
}
