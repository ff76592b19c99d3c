package policy

import (
	"context"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/book"
	"github.com/danhju/mirrorbook/pkg/feed"
	"github.com/danhju/mirrorbook/pkg/metrics"
	"github.com/danhju/mirrorbook/pkg/recon"
	"github.com/danhju/mirrorbook/pkg/util"
)

// fakeSubmitter accepts every request and hands out sequential ids.
type fakeSubmitter struct {
	nextID    uint64
	submitted []book.Order
	cancelled []uint64
}

func (f *fakeSubmitter) Submit(ctx context.Context, o book.Order) (uint64, error) {
	f.nextID++
	o.ID = f.nextID
	f.submitted = append(f.submitted, o)
	return f.nextID, nil
}

func (f *fakeSubmitter) Cancel(ctx context.Context, symbol string, id uint64) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type quoterFixture struct {
	state  *recon.State
	sub    *fakeSubmitter
	clock  *util.ManualClock
	quoter *Quoter
}

func newQuoterFixture(t *testing.T, cfg Config) *quoterFixture {
	t.Helper()
	state := recon.New(7, zap.NewNop().Sugar(), metrics.New())
	sub := &fakeSubmitter{nextID: 1000}
	clock := &util.ManualClock{T: time.Unix(1700000000, 0)}
	q := NewQuoter(context.Background(), cfg, state, sub, clock, zap.NewNop().Sugar())
	return &quoterFixture{state: state, sub: sub, clock: clock, quoter: q}
}

func (f *quoterFixture) feedOrder(t *testing.T, u feed.OrderUpdate) {
	t.Helper()
	if err := f.state.OnOrderUpdate(u); err != nil {
		t.Fatalf("state OnOrderUpdate failed: %v", err)
	}
	if err := f.quoter.OnOrderUpdate(u); err != nil {
		t.Fatalf("quoter OnOrderUpdate failed: %v", err)
	}
}

var testCfg = Config{
	Symbol:      "ABC",
	QuoteSize:   40,
	SkewFactor:  0.25,
	SignalDepth: 30,
	MinInterval: 10 * time.Millisecond,
}

func TestQuoter_PlacesTwoSidedQuotes(t *testing.T) {
	f := newQuoterFixture(t, testCfg)

	// Bid-heavy book: signal (30-10)/40 = 0.5, spread 1.
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 100, Qty: 30, Side: book.Buy, OrderID: 1})
	f.clock.Advance(20 * time.Millisecond)
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 101, Qty: 10, Side: book.Sell, OrderID: 2})

	if len(f.sub.submitted) != 2 {
		t.Fatalf("submitted %d orders, want 2", len(f.sub.submitted))
	}

	// Ask goes out first, then the bid, both shifted by signal*spread.
	ask, bid := f.sub.submitted[0], f.sub.submitted[1]
	if ask.Side != book.Sell || math.Abs(ask.Price-101.5) > 1e-12 || ask.Qty != 40 {
		t.Errorf("ask = %+v, want sell 40 @ 101.5", ask)
	}
	if bid.Side != book.Buy || math.Abs(bid.Price-100.5) > 1e-12 || bid.Qty != 40 {
		t.Errorf("bid = %+v, want buy 40 @ 100.5", bid)
	}

	// Both submissions were claimed as ours.
	for _, o := range f.sub.submitted {
		if !f.state.IsMine(o.ID) {
			t.Errorf("IsMine(%d) = false after submit", o.ID)
		}
	}
}

func TestQuoter_NeutralSignalHoldsQuotes(t *testing.T) {
	f := newQuoterFixture(t, testCfg)

	// Balanced book: signal 0, nothing to do.
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 100, Qty: 10, Side: book.Buy, OrderID: 1})
	f.clock.Advance(20 * time.Millisecond)
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 101, Qty: 10, Side: book.Sell, OrderID: 2})

	if len(f.sub.submitted) != 0 {
		t.Errorf("submitted %d orders on neutral signal, want 0", len(f.sub.submitted))
	}
}

func TestQuoter_IgnoresOtherSymbols(t *testing.T) {
	f := newQuoterFixture(t, testCfg)

	f.feedOrder(t, feed.OrderUpdate{Symbol: "XYZ", Price: 100, Qty: 30, Side: book.Buy, OrderID: 1})
	f.feedOrder(t, feed.OrderUpdate{Symbol: "XYZ", Price: 101, Qty: 10, Side: book.Sell, OrderID: 2})

	if len(f.sub.submitted) != 0 {
		t.Errorf("submitted %d orders for foreign symbol, want 0", len(f.sub.submitted))
	}
}

func TestQuoter_RateLimit(t *testing.T) {
	f := newQuoterFixture(t, testCfg)

	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 100, Qty: 30, Side: book.Buy, OrderID: 1})
	f.clock.Advance(20 * time.Millisecond)
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 101, Qty: 10, Side: book.Sell, OrderID: 2})
	if len(f.sub.submitted) != 2 {
		t.Fatalf("submitted %d orders, want 2", len(f.sub.submitted))
	}

	// Within the interval: no requote.
	f.clock.Advance(5 * time.Millisecond)
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 99, Qty: 30, Side: book.Buy, OrderID: 3})
	if len(f.sub.submitted) != 2 {
		t.Fatalf("submitted %d orders within interval, want still 2", len(f.sub.submitted))
	}

	// Past the interval: requote fires again.
	f.clock.Advance(10 * time.Millisecond)
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 98, Qty: 30, Side: book.Buy, OrderID: 4})
	if len(f.sub.submitted) != 4 {
		t.Fatalf("submitted %d orders after interval, want 4", len(f.sub.submitted))
	}
}

func TestQuoter_CancelsOwnRestingQuotes(t *testing.T) {
	f := newQuoterFixture(t, testCfg)

	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 100, Qty: 30, Side: book.Buy, OrderID: 1})
	f.clock.Advance(20 * time.Millisecond)
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 101, Qty: 10, Side: book.Sell, OrderID: 2})
	if len(f.sub.submitted) != 2 {
		t.Fatalf("submitted %d orders, want 2", len(f.sub.submitted))
	}

	// The venue acknowledges our quotes by resting them, which puts
	// them in the open-order set. Feeding the acks also triggers a
	// requote, which must cancel them first.
	f.clock.Advance(20 * time.Millisecond)
	ask := f.sub.submitted[0]
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: ask.Price, Qty: ask.Qty, Side: ask.Side, OrderID: ask.ID})

	if len(f.sub.cancelled) == 0 {
		t.Fatal("no cancels issued for resting own quotes")
	}
	if f.sub.cancelled[0] != ask.ID {
		t.Errorf("cancelled id = %d, want %d", f.sub.cancelled[0], ask.ID)
	}
}

func TestQuoter_InventorySkew(t *testing.T) {
	f := newQuoterFixture(t, testCfg)

	// Build a long position of 8 via a resting fill.
	f.state.OnSubmit(book.Order{Symbol: "ABC", ID: 50})
	if err := f.state.OnOrderUpdate(feed.OrderUpdate{Symbol: "ABC", Price: 100, Qty: 8, Side: book.Buy, OrderID: 50}); err != nil {
		t.Fatalf("OnOrderUpdate failed: %v", err)
	}
	if err := f.state.OnTradeUpdate(feed.TradeUpdate{
		Symbol: "ABC", Price: 100, Qty: 8, RestingID: 50, AggressingID: 99, Side: book.Sell,
	}); err != nil {
		t.Fatalf("OnTradeUpdate failed: %v", err)
	}
	if got := f.state.Position("ABC"); got != 8 {
		t.Fatalf("Position = %d, want 8", got)
	}

	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 100, Qty: 30, Side: book.Buy, OrderID: 60})
	f.clock.Advance(20 * time.Millisecond)
	f.feedOrder(t, feed.OrderUpdate{Symbol: "ABC", Price: 101, Qty: 10, Side: book.Sell, OrderID: 61})

	if len(f.sub.submitted) != 2 {
		t.Fatalf("submitted %d orders, want 2", len(f.sub.submitted))
	}
	ask, bid := f.sub.submitted[0], f.sub.submitted[1]

	// Long 8 with skew 0.25: the ask grows by 2 to work the position
	// off, the bid stays at base size.
	if ask.Qty != 42 {
		t.Errorf("ask qty = %d, want 42", ask.Qty)
	}
	if bid.Qty != 40 {
		t.Errorf("bid qty = %d, want 40", bid.Qty)
	}
}

func TestQuoter_PacketFlag(t *testing.T) {
	f := newQuoterFixture(t, testCfg)

	f.state.OnSubmit(book.Order{Symbol: "ABC", ID: 50})

	if err := f.quoter.OnPacketStart(); err != nil {
		t.Fatalf("OnPacketStart failed: %v", err)
	}
	if err := f.quoter.OnTradeUpdate(feed.TradeUpdate{
		Symbol: "ABC", Price: 100, Qty: 1, RestingID: 50, AggressingID: 99, Side: book.Sell,
	}); err != nil {
		t.Fatalf("OnTradeUpdate failed: %v", err)
	}
	if !f.quoter.tradedWithMe {
		t.Error("tradedWithMe = false after own fill")
	}

	if err := f.quoter.OnPacketEnd(); err != nil {
		t.Fatalf("OnPacketEnd failed: %v", err)
	}
	if err := f.quoter.OnPacketStart(); err != nil {
		t.Fatalf("OnPacketStart failed: %v", err)
	}
	if f.quoter.tradedWithMe {
		t.Error("tradedWithMe not reset at packet start")
	}
}
