// Package policy consumes the engine's analytics and decides quotes.
// It owns every strategy-local accumulator (rate-limit stamp, packet
// flag, session start) so the reconciliation core stays policy-free.
package policy

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/book"
	"github.com/danhju/mirrorbook/pkg/feed"
	"github.com/danhju/mirrorbook/pkg/recon"
	"github.com/danhju/mirrorbook/pkg/util"
)

// Config is the quoter's immutable parameter set. The numbers are
// strategy knobs; nothing in the engine depends on them.
type Config struct {
	Symbol      string
	QuoteSize   int64
	SkewFactor  float64
	SignalDepth int
	MinInterval time.Duration
}

// Quoter is a simple two-sided maker: on each order update it reads
// the book's signal and spread, skews its sizes against inventory, and
// replaces its quotes. It reacts to the same event stream as the
// reconciliation state, registered behind it so queries always observe
// the freshly applied event.
type Quoter struct {
	feed.NopHandler

	cfg   Config
	state *recon.State
	sub   feed.Submitter
	clock util.Clock
	log   *zap.SugaredLogger
	ctx   context.Context

	last         time.Time
	start        time.Time
	tradedWithMe bool
}

func NewQuoter(ctx context.Context, cfg Config, state *recon.State, sub feed.Submitter, clock util.Clock, log *zap.SugaredLogger) *Quoter {
	return &Quoter{
		cfg:   cfg,
		state: state,
		sub:   sub,
		clock: clock,
		log:   log,
		ctx:   ctx,
		start: clock.Now(),
	}
}

var _ feed.Handler = (*Quoter)(nil)

func (q *Quoter) OnPacketStart() error {
	q.tradedWithMe = false
	return nil
}

// OnPacketEnd reports session economics whenever the packet contained
// one of our fills.
func (q *Quoter) OnPacketEnd() error {
	if !q.tradedWithMe {
		return nil
	}
	pnl := q.state.PnL()
	volume := q.state.VolumeTraded()
	elapsed := q.clock.Now().Sub(q.start).Seconds()

	pnlPerVolume := 0.0
	if volume > 0 {
		pnlPerVolume = pnl / float64(volume)
	}
	pnlPerSec := 0.0
	if elapsed > 0 {
		pnlPerSec = pnl / elapsed
	}

	q.log.Infow("traded this packet",
		"pnl", pnl,
		"position", q.state.Position(q.cfg.Symbol),
		"pnl_per_sec", pnlPerSec,
		"pnl_per_volume", pnlPerVolume,
	)
	return nil
}

func (q *Quoter) OnTradeUpdate(u feed.TradeUpdate) error {
	if q.state.IsMine(u.RestingID) || q.state.IsMine(u.AggressingID) {
		q.tradedWithMe = true
	}
	return nil
}

func (q *Quoter) OnOrderUpdate(u feed.OrderUpdate) error {
	if u.Symbol != q.cfg.Symbol {
		return nil
	}
	q.requote()
	return nil
}

// requote replaces both quotes, shifted in the signal's direction and
// sized against current inventory. Submission failures are strategy
// noise, not engine errors; they are logged and the next update tries
// again.
func (q *Quoter) requote() {
	now := q.clock.Now()
	if now.Sub(q.last) < q.cfg.MinInterval {
		return
	}
	q.last = now

	b := q.state.Book(q.cfg.Symbol)

	signal := b.ImbalanceSignal(q.cfg.SignalDepth)
	if signal == 0 {
		// Neutral or no market: leave existing quotes alone.
		return
	}

	bestBid, okB := b.Best(book.Buy)
	bestAsk, okA := b.Best(book.Sell)
	if !okB || !okA {
		return
	}
	spread := b.Spread()

	position := q.state.Position(q.cfg.Symbol)
	bidSize, askSize := q.cfg.QuoteSize, q.cfg.QuoteSize
	if position > 0 {
		askSize += int64(q.cfg.SkewFactor * float64(position))
	} else if position < 0 {
		bidSize += int64(q.cfg.SkewFactor * float64(-position))
	}

	bidPrice := bestBid + signal*spread
	askPrice := bestAsk + signal*spread

	for _, open := range q.state.OpenOrders() {
		if err := q.sub.Cancel(q.ctx, open.Symbol, open.ID); err != nil {
			q.log.Warnw("cancel request failed", "order_id", open.ID, "err", err)
		}
	}

	q.place(book.Sell, askPrice, askSize)
	q.place(book.Buy, bidPrice, bidSize)
}

func (q *Quoter) place(side book.Side, price float64, qty int64) {
	order := book.Order{
		Symbol:   q.cfg.Symbol,
		Price:    price,
		Qty:      qty,
		Side:     side,
		TraderID: q.state.TraderID(),
	}
	id, err := q.sub.Submit(q.ctx, order)
	if err != nil {
		q.log.Warnw("submit failed", "side", side.String(), "price", price, "err", err)
		return
	}
	order.ID = id
	q.state.OnSubmit(order)
}
