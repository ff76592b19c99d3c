package feed

import (
	"context"

	"github.com/danhju/mirrorbook/pkg/book"
)

// Submitter is the outbound boundary toward the venue. Submit returns
// the venue-assigned order id - any id on the request is advisory and
// is overwritten. Cancel is fire-and-forget: its outcome arrives later
// as a CancelUpdate or a RejectCancelUpdate on the feed.
type Submitter interface {
	Submit(ctx context.Context, o book.Order) (uint64, error)
	Cancel(ctx context.Context, symbol string, id uint64) error
}
