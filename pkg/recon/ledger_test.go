package recon

import (
	"testing"

	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/book"
	"github.com/danhju/mirrorbook/pkg/feed"
	"github.com/danhju/mirrorbook/pkg/metrics"
)

func TestLedger_SnapshotRestoreRoundTrip(t *testing.T) {
	s := newTestState(t)
	submit(t, s, book.Order{Symbol: "ABC", Price: 101, Qty: 10, Side: book.Buy, ID: 2})
	if err := s.OnTradeUpdate(feed.TradeUpdate{
		Symbol: "ABC", Price: 101, Qty: 4, RestingID: 2, AggressingID: 9, Side: book.Sell,
	}); err != nil {
		t.Fatalf("OnTradeUpdate failed: %v", err)
	}

	l := s.SnapshotLedger()
	if l.TraderID != 7 {
		t.Errorf("TraderID = %d, want 7", l.TraderID)
	}
	if l.Cash != -404 {
		t.Errorf("Cash = %v, want -404", l.Cash)
	}

	restored := New(7, zap.NewNop().Sugar(), metrics.New())
	restored.RestoreLedger(l)

	if got := restored.Cash(); got != s.Cash() {
		t.Errorf("restored Cash = %v, want %v", got, s.Cash())
	}
	if got := restored.Position("ABC"); got != 4 {
		t.Errorf("restored Position = %d, want 4", got)
	}
	if got := restored.VolumeTraded(); got != 4 {
		t.Errorf("restored VolumeTraded = %d, want 4", got)
	}
	if got := restored.LastTradePrice(); got != 101 {
		t.Errorf("restored LastTradePrice = %v, want 101", got)
	}
	if !restored.IsMine(2) {
		t.Error("restored IsMine(2) = false, want true")
	}
	open := restored.OpenOrders()
	if len(open) != 1 || open[0].ID != 2 || open[0].Qty != 6 {
		t.Errorf("restored OpenOrders = %+v, want id 2 qty 6", open)
	}
}

func TestLedger_RestoreKeepsDefaultTradePrice(t *testing.T) {
	s := newTestState(t)
	s.RestoreLedger(Ledger{TraderID: 7})
	if got := s.LastTradePrice(); got != 100.0 {
		t.Errorf("LastTradePrice after empty restore = %v, want 100", got)
	}
}
