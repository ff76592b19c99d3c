package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/book"
)

const (
	frameSubmit    = "submit"
	frameSubmitAck = "submit_ack"
	frameCancelReq = "cancel_request"
)

// wsFrame is the session superset of Event: feed events plus the
// submission request/ack exchange multiplexed on the same connection.
type wsFrame struct {
	Event
	Req     uint64      `json:"req,omitempty"`
	Submit  *book.Order `json:"submit,omitempty"`
	Symbol  string      `json:"symbol,omitempty"`
	OrderID uint64      `json:"order_id,omitempty"`
}

// WSSession is one venue connection: the event Source for the
// dispatcher and the Submitter for the policy layer. Reads happen on a
// single pump goroutine; feed events are queued for Next while submit
// acks are routed back to the waiting caller by request id.
type WSSession struct {
	conn *websocket.Conn
	log  *zap.SugaredLogger

	events chan Event
	reqSeq atomic.Uint64

	mu      sync.Mutex // guards pending and writes
	pending map[uint64]chan uint64

	closeOnce sync.Once
	done      chan struct{}
	readErr   error
}

// DialWS connects to the venue session endpoint and starts the read
// pump.
func DialWS(ctx context.Context, url string, log *zap.SugaredLogger) (*WSSession, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial venue ws %s: %w", url, err)
	}

	s := &WSSession{
		conn:    conn,
		log:     log,
		events:  make(chan Event, 256),
		pending: make(map[uint64]chan uint64),
		done:    make(chan struct{}),
	}
	go s.readPump()

	log.Infow("venue session established", "url", url)
	return s, nil
}

func (s *WSSession) readPump() {
	defer close(s.done)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.readErr = io.EOF
			} else {
				s.readErr = fmt.Errorf("venue session read: %w", err)
			}
			close(s.events)
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.log.Warnw("malformed session frame skipped", "err", err)
			continue
		}

		if frame.Type == frameSubmitAck {
			s.mu.Lock()
			ch, ok := s.pending[frame.Req]
			delete(s.pending, frame.Req)
			s.mu.Unlock()
			if ok {
				ch <- frame.OrderID
			} else {
				s.log.Warnw("submit ack without waiter", "req", frame.Req)
			}
			continue
		}

		s.events <- frame.Event
	}
}

// Next delivers the next feed event. Returns io.EOF after a clean
// close of the venue session.
func (s *WSSession) Next(ctx context.Context) (Event, error) {
	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case ev, ok := <-s.events:
		if !ok {
			return Event{}, s.readErr
		}
		return ev, nil
	}
}

// Submit sends the order request and waits for the venue-assigned id.
func (s *WSSession) Submit(ctx context.Context, o book.Order) (uint64, error) {
	req := s.reqSeq.Add(1)
	ack := make(chan uint64, 1)

	s.mu.Lock()
	s.pending[req] = ack
	err := s.conn.WriteJSON(wsFrame{
		Event:  Event{Type: frameSubmit},
		Req:    req,
		Submit: &o,
	})
	if err != nil {
		delete(s.pending, req)
	}
	s.mu.Unlock()
	if err != nil {
		return 0, fmt.Errorf("submit write: %w", err)
	}

	select {
	case <-ctx.Done():
		s.mu.Lock()
		delete(s.pending, req)
		s.mu.Unlock()
		return 0, ctx.Err()
	case <-s.done:
		return 0, fmt.Errorf("venue session closed before submit ack")
	case id := <-ack:
		return id, nil
	}
}

// Cancel is fire-and-forget; the outcome arrives later on the feed.
func (s *WSSession) Cancel(ctx context.Context, symbol string, id uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(wsFrame{
		Event:   Event{Type: frameCancelReq},
		Symbol:  symbol,
		OrderID: id,
	}); err != nil {
		return fmt.Errorf("cancel write: %w", err)
	}
	return nil
}

func (s *WSSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.conn.Close()
	})
	return err
}

var (
	_ Source    = (*WSSession)(nil)
	_ Submitter = (*WSSession)(nil)
)
