package book

// Side of the book an order rests on.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Order is the shape shared by feed events and submission requests.
// Once observed, every field is immutable except Qty, which only ever
// decreases as fills are reported.
type Order struct {
	Symbol   string  `json:"symbol"`
	Price    float64 `json:"price"`
	Qty      int64   `json:"qty"`
	Side     Side    `json:"side"`
	ID       uint64  `json:"id"`
	TraderID uint64  `json:"trader_id"`
	IOC      bool    `json:"ioc,omitempty"`
}

// restingOrder is an entry resident in one bookSide. Identity
// (price, side, id, seq) is fixed for the entry's lifetime; qty is the
// only mutable field and is excluded from the priority key. The entry
// doubles as its own list node, so the pointer held by the id index
// stays valid across any mutation of the surrounding structure.
type restingOrder struct {
	price    float64
	qty      int64
	id       uint64
	seq      uint64
	side     Side
	traderID uint64

	level      *priceLevel
	next, prev *restingOrder
}

// Level is an aggregated view of one price level, used by depth queries
// and the diagnostics API.
type Level struct {
	Price  float64 `json:"price"`
	Qty    int64   `json:"qty"`
	Orders int     `json:"orders"`
}
