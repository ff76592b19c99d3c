package recon

import (
	"time"

	"github.com/danhju/mirrorbook/pkg/book"
)

// Ledger is the durable slice of the reconciliation state: everything
// that cannot be rebuilt from a fresh feed. Book mirrors are excluded
// on purpose - they are re-derived from the event stream.
type Ledger struct {
	TraderID       uint64           `json:"trader_id"`
	Cash           float64          `json:"cash"`
	Positions      map[string]int64 `json:"positions"`
	VolumeTraded   int64            `json:"volume_traded"`
	LastTradePrice float64          `json:"last_trade_price"`
	Submitted      []uint64         `json:"submitted"`
	OpenOrders     []book.Order     `json:"open_orders"`
	SavedAtMilli   int64            `json:"saved_at_ms"`
}

// SnapshotLedger captures the current ledger.
func (s *State) SnapshotLedger() Ledger {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l := Ledger{
		TraderID:       s.traderID,
		Cash:           s.cash,
		Positions:      make(map[string]int64, len(s.positions)),
		VolumeTraded:   s.volumeTraded,
		LastTradePrice: s.lastTradePrice,
		Submitted:      make([]uint64, 0, len(s.submitted)),
		OpenOrders:     make([]book.Order, 0, len(s.openOrders)),
		SavedAtMilli:   time.Now().UnixMilli(),
	}
	for sym, q := range s.positions {
		l.Positions[sym] = q
	}
	for id := range s.submitted {
		l.Submitted = append(l.Submitted, id)
	}
	for _, o := range s.openOrders {
		l.OpenOrders = append(l.OpenOrders, o)
	}
	return l
}

// RestoreLedger reloads a saved ledger, typically before the first
// event of a new session.
func (s *State) RestoreLedger(l Ledger) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cash = l.Cash
	s.volumeTraded = l.VolumeTraded
	if l.LastTradePrice > 0 {
		s.lastTradePrice = l.LastTradePrice
	}
	s.positions = make(map[string]int64, len(l.Positions))
	for sym, q := range l.Positions {
		s.positions[sym] = q
	}
	s.submitted = make(map[uint64]struct{}, len(l.Submitted))
	for _, id := range l.Submitted {
		s.submitted[id] = struct{}{}
	}
	s.openOrders = make(map[uint64]book.Order, len(l.OpenOrders))
	for _, o := range l.OpenOrders {
		s.openOrders[o.ID] = o
	}
}
