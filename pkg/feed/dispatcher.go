package feed

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/metrics"
)

// Handler consumes feed events. Every method runs on the dispatcher
// goroutine, strictly in delivery order, and must return before the
// next event is delivered. A non-nil error is non-recoverable and
// halts dispatch; recoverable anomalies are the handler's to absorb.
type Handler interface {
	OnPacketStart() error
	OnPacketEnd() error
	OnOrderUpdate(OrderUpdate) error
	OnTradeUpdate(TradeUpdate) error
	OnCancelUpdate(CancelUpdate) error
	OnRejectOrder(RejectOrderUpdate) error
	OnRejectCancel(RejectCancelUpdate) error
}

// Source yields events one at a time. Next returns io.EOF when the
// feed is exhausted.
type Source interface {
	Next(ctx context.Context) (Event, error)
	Close() error
}

// Dispatcher drives a Source, delivering each event to every handler
// in registration order before pulling the next one. Packet markers
// exist only to let handlers batch derived work; they carry no
// atomicity guarantee beyond "no two packets interleave", which a
// single goroutine gives for free.
type Dispatcher struct {
	src      Source
	handlers []Handler
	log      *zap.SugaredLogger
	met      *metrics.Metrics
}

func NewDispatcher(src Source, log *zap.SugaredLogger, met *metrics.Metrics, handlers ...Handler) *Dispatcher {
	return &Dispatcher{src: src, handlers: handlers, log: log, met: met}
}

// Run processes events until the source is exhausted, the context is
// cancelled, or a handler reports a non-recoverable error.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		ev, err := d.src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				d.log.Infow("feed exhausted")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("feed source: %w", err)
		}

		if err := d.apply(ev); err != nil {
			d.log.Errorw("event handling failed", "type", ev.Type, "err", err)
			return err
		}
	}
}

func (d *Dispatcher) apply(ev Event) error {
	d.met.EventsApplied.WithLabelValues(ev.Type).Inc()

	for _, h := range d.handlers {
		var err error
		switch ev.Type {
		case TypePacketStart:
			err = h.OnPacketStart()
		case TypePacketEnd:
			err = h.OnPacketEnd()
		case TypeOrder:
			if ev.Order == nil {
				return fmt.Errorf("order event without payload")
			}
			err = h.OnOrderUpdate(*ev.Order)
		case TypeTrade:
			if ev.Trade == nil {
				return fmt.Errorf("trade event without payload")
			}
			err = h.OnTradeUpdate(*ev.Trade)
		case TypeCancel:
			if ev.Cancel == nil {
				return fmt.Errorf("cancel event without payload")
			}
			err = h.OnCancelUpdate(*ev.Cancel)
		case TypeRejectOrder:
			if ev.RejectOrder == nil {
				return fmt.Errorf("reject_order event without payload")
			}
			err = h.OnRejectOrder(*ev.RejectOrder)
		case TypeRejectCancel:
			if ev.RejectCancel == nil {
				return fmt.Errorf("reject_cancel event without payload")
			}
			err = h.OnRejectCancel(*ev.RejectCancel)
		default:
			d.log.Warnw("unknown event type skipped", "type", ev.Type)
			return nil
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// NopHandler implements Handler with no-ops; embed it when a consumer
// cares about a subset of events.
type NopHandler struct{}

func (NopHandler) OnPacketStart() error                  { return nil }
func (NopHandler) OnPacketEnd() error                    { return nil }
func (NopHandler) OnOrderUpdate(OrderUpdate) error       { return nil }
func (NopHandler) OnTradeUpdate(TradeUpdate) error       { return nil }
func (NopHandler) OnCancelUpdate(CancelUpdate) error     { return nil }
func (NopHandler) OnRejectOrder(RejectOrderUpdate) error { return nil }
func (NopHandler) OnRejectCancel(RejectCancelUpdate) error {
	return nil
}
