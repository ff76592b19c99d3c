package api

import "github.com/danhju/mirrorbook/pkg/book"

// BookSnapshot is the REST view of one instrument's mirror.
type BookSnapshot struct {
	Symbol    string       `json:"symbol"`
	Bids      []book.Level `json:"bids"` // best (highest) first
	Asks      []book.Level `json:"asks"` // best (lowest) first
	BestBid   *float64     `json:"best_bid,omitempty"`
	BestAsk   *float64     `json:"best_ask,omitempty"`
	Mid       float64      `json:"mid"`
	Spread    float64      `json:"spread"`
	Signal    float64      `json:"signal"`
	Timestamp int64        `json:"timestamp"`
}

// AccountSummary is the trader-scoped ledger view.
type AccountSummary struct {
	TraderID     uint64           `json:"trader_id"`
	Cash         float64          `json:"cash"`
	Positions    map[string]int64 `json:"positions"`
	VolumeTraded int64            `json:"volume_traded"`
	PnL          float64          `json:"pnl"`
	OpenOrders   []book.Order     `json:"open_orders"`
}

// BookTop is the per-packet stream payload.
type BookTop struct {
	Symbol  string   `json:"symbol"`
	BestBid *float64 `json:"best_bid,omitempty"`
	BestAsk *float64 `json:"best_ask,omitempty"`
	Mid     float64  `json:"mid"`
	Signal  float64  `json:"signal"`
	PnL     float64  `json:"pnl"`
}
