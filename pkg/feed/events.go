package feed

import (
	"encoding/json"
	"fmt"

	"github.com/danhju/mirrorbook/pkg/book"
)

// Event kinds carried by the venue feed.
const (
	TypeOrder        = "order"
	TypeTrade        = "trade"
	TypeCancel       = "cancel"
	TypeRejectOrder  = "reject_order"
	TypeRejectCancel = "reject_cancel"
	TypePacketStart  = "packet_start"
	TypePacketEnd    = "packet_end"
)

// OrderUpdate reports an order resting on the venue book - ours or
// anyone else's; the mirror needs both.
type OrderUpdate struct {
	Symbol  string    `json:"symbol"`
	Price   float64   `json:"price"`
	Qty     int64     `json:"qty"`
	Side    book.Side `json:"side"`
	OrderID uint64    `json:"order_id"`
}

// TradeUpdate reports a fill. Side is the aggressor's direction; the
// resting order's fill direction is its inverse.
type TradeUpdate struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Qty          int64     `json:"qty"`
	RestingID    uint64    `json:"resting_id"`
	AggressingID uint64    `json:"aggressing_id"`
	Side         book.Side `json:"side"`
}

// CancelUpdate reports an order leaving the venue book.
type CancelUpdate struct {
	Symbol  string `json:"symbol"`
	OrderID uint64 `json:"order_id"`
}

// RejectReason codes reported by the venue.
type RejectReason int

const (
	ReasonUnspecified RejectReason = iota
	// ReasonInvalidOrderID on a cancel reject is benign: the target
	// already left the book before the cancel arrived.
	ReasonInvalidOrderID
	ReasonInvalidPrice
	ReasonInvalidQty
	ReasonRateLimited
)

func (r RejectReason) String() string {
	switch r {
	case ReasonInvalidOrderID:
		return "invalid_order_id"
	case ReasonInvalidPrice:
		return "invalid_price"
	case ReasonInvalidQty:
		return "invalid_qty"
	case ReasonRateLimited:
		return "rate_limited"
	default:
		return "unspecified"
	}
}

type RejectOrderUpdate struct {
	Symbol  string       `json:"symbol"`
	OrderID uint64       `json:"order_id"`
	Reason  RejectReason `json:"reason"`
	Msg     string       `json:"msg,omitempty"`
}

type RejectCancelUpdate struct {
	Symbol  string       `json:"symbol"`
	OrderID uint64       `json:"order_id"`
	Reason  RejectReason `json:"reason"`
	Msg     string       `json:"msg,omitempty"`
}

// Event is the wire envelope: a type tag plus exactly one populated
// payload. Packet markers carry no payload.
type Event struct {
	Type         string              `json:"type"`
	Order        *OrderUpdate        `json:"order,omitempty"`
	Trade        *TradeUpdate        `json:"trade,omitempty"`
	Cancel       *CancelUpdate       `json:"cancel,omitempty"`
	RejectOrder  *RejectOrderUpdate  `json:"reject_order,omitempty"`
	RejectCancel *RejectCancelUpdate `json:"reject_cancel,omitempty"`
}

// Decode parses one wire frame.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("decode event: missing type")
	}
	return ev, nil
}

// Encode marshals one wire frame.
func Encode(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return data, nil
}
