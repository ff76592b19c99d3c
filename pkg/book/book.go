package book

import (
	"errors"
	"fmt"
	"io"
	"math"
	"sync"
)

// ErrDuplicateOrderID means the feed re-introduced a live order id.
// The mirror's integrity cannot be trusted past this point, so callers
// must treat it as non-recoverable.
var ErrDuplicateOrderID = errors.New("duplicate order id")

// OrderBook mirrors one instrument's venue book: two ordered sides plus
// a strictly monotonic sequence for price-time tie-breaks. The book
// performs no matching; it reflects whatever the venue reports, so a
// locked or crossed market is a legal transient state.
//
// Mutation happens on the single event-processing goroutine; the lock
// exists so analytics queries from the API goroutine see a consistent
// book.
type OrderBook struct {
	mu     sync.RWMutex
	symbol string
	bids   *bookSide
	asks   *bookSide
	seq    uint64
}

func New(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids:   newBookSide(Buy),
		asks:   newBookSide(Sell),
	}
}

func (b *OrderBook) Symbol() string { return b.symbol }

func (b *OrderBook) side(s Side) *bookSide {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// Insert rests an order on its side. A duplicate id anywhere in the
// book is an invariant violation: the entry is never overwritten and
// ErrDuplicateOrderID is returned.
func (b *OrderBook) Insert(o Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.bids.contains(o.ID) || b.asks.contains(o.ID) {
		return fmt.Errorf("%w: id=%d symbol=%s", ErrDuplicateOrderID, o.ID, b.symbol)
	}
	b.seq++
	b.side(o.Side).insert(o, b.seq)
	return nil
}

// Cancel removes the order if resident. Unknown ids are a legitimate
// race (the order filled moments earlier); the book is left untouched
// and false is returned so the caller can record the anomaly.
func (b *OrderBook) Cancel(id uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bids.remove(id) || b.asks.remove(id)
}

// DecreaseQty shrinks the resident qty by amt: the only way quantity
// ever changes. Returns the remaining qty, 0 when the fill exhausts
// the order (which removes it), or -1 when the id is unknown.
func (b *OrderBook) DecreaseQty(id uint64, amt int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rem := b.bids.decrease(id, amt); rem >= 0 {
		return rem
	}
	return b.asks.decrease(id, amt)
}

// Best returns the most aggressive resident price on a side, or
// (0, false) when the side is empty.
func (b *OrderBook) Best(s Side) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestLocked(s)
}

func (b *OrderBook) bestLocked(s Side) (float64, bool) {
	lvl := b.side(s).best()
	if lvl == nil {
		return 0, false
	}
	return lvl.price, true
}

// SecondBest returns the price one level behind the best, or
// (0, false) when fewer than two levels rest on the side.
func (b *OrderBook) SecondBest(s Side) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	price, ok := 0.0, false
	n := 0
	b.side(s).walkLevels(func(lvl *priceLevel) bool {
		n++
		if n == 2 {
			price, ok = lvl.price, true
			return false
		}
		return true
	})
	return price, ok
}

// DepthAtBest sums resident qty across every entry tied at the best
// price. Zero when the side is empty.
func (b *OrderBook) DepthAtBest(s Side) int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	lvl := b.side(s).best()
	if lvl == nil {
		return 0
	}
	return lvl.totalQty
}

// Mid returns the midpoint of the BBO, or fallback (typically the last
// trade price) when either side is empty, so valuation never fails
// outright on a one-sided book.
func (b *OrderBook) Mid(fallback float64) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, okB := b.bestLocked(Buy)
	ask, okA := b.bestLocked(Sell)
	if !okB || !okA {
		return fallback
	}
	return 0.5 * (bid + ask)
}

// Spread returns best ask minus best bid, or 0 when either side is
// empty. A zero spread is therefore ambiguous with "no market";
// callers that care must check Best on each side.
func (b *OrderBook) Spread() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bid, okB := b.bestLocked(Buy)
	ask, okA := b.bestLocked(Sell)
	if !okB || !okA {
		return 0
	}
	return ask - bid
}

// ImbalanceSignal measures order-flow pressure over up to depthN
// resting entries per side. Each entry contributes its qty scaled by a
// linear proximity weight, 1 at the side's best price and decaying as
// the entry's price recedes proportionally. The result is
// (bid - ask) / (bid + ask) in [-1, 1]; positive means bid pressure.
// With an empty side, or a zero denominator, there is no market to
// have an opinion on and the signal is neutral 0.
func (b *OrderBook) ImbalanceSignal(depthN int) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()

	bestBid, okB := b.bestLocked(Buy)
	bestAsk, okA := b.bestLocked(Sell)
	if !okB || !okA {
		return 0
	}

	bidVol := b.bids.weightedVolume(bestBid, depthN)
	askVol := b.asks.weightedVolume(bestAsk, depthN)

	denom := bidVol + askVol
	if denom == 0 {
		return 0
	}
	return (bidVol - askVol) / denom
}

func (s *bookSide) weightedVolume(best float64, depthN int) float64 {
	var vol float64
	visited := 0
	s.walk(func(o *restingOrder) bool {
		if visited >= depthN {
			return false
		}
		visited++
		w := 1 - math.Abs(o.price-best)/best
		vol += w * float64(o.qty)
		return true
	})
	return vol
}

// Levels returns up to max aggregated levels from the best price
// inward (all levels when max <= 0).
func (b *OrderBook) Levels(s Side, max int) []Level {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Level
	b.side(s).walkLevels(func(lvl *priceLevel) bool {
		out = append(out, Level{Price: lvl.price, Qty: lvl.totalQty, Orders: lvl.count})
		return max <= 0 || len(out) < max
	})
	return out
}

// Len reports the number of resident entries across both sides.
func (b *OrderBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bids.len() + b.asks.len()
}

// Dump writes the textual book snapshot: offers in descending price
// order, then bids in ascending order, one "price qty" line per entry
// with a marker on entries the mine predicate claims, terminated by an
// EOF sentinel line.
func (b *OrderBook) Dump(w io.Writer, mine func(id uint64) bool) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var err error
	line := func(o *restingOrder) bool {
		if mine != nil && mine(o.id) {
			_, err = fmt.Fprintf(w, "%v %d (mine)\n", o.price, o.qty)
		} else {
			_, err = fmt.Fprintf(w, "%v %d\n", o.price, o.qty)
		}
		return err == nil
	}

	if _, err = fmt.Fprintln(w, "offers"); err != nil {
		return err
	}
	b.asks.levels.Descending(func(lvl *priceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			if !line(o) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	if _, err = fmt.Fprintln(w, "\nbids"); err != nil {
		return err
	}
	b.bids.levels.Ascending(func(lvl *priceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			if !line(o) {
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(w, "EOF")
	return err
}
