package storage

import (
	"path/filepath"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/book"
	"github.com/danhju/mirrorbook/pkg/metrics"
	"github.com/danhju/mirrorbook/pkg/recon"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)

	in := recon.Ledger{
		TraderID:       7,
		Cash:           -404.5,
		Positions:      map[string]int64{"ABC": 4, "XYZ": -2},
		VolumeTraded:   6,
		LastTradePrice: 101,
		Submitted:      []uint64{2, 5},
		OpenOrders: []book.Order{
			{Symbol: "ABC", Price: 101, Qty: 6, Side: book.Buy, ID: 2, TraderID: 7},
		},
		SavedAtMilli: 1700000000000,
	}
	if err := s.SaveLedger(in); err != nil {
		t.Fatalf("SaveLedger failed: %v", err)
	}

	out, err := s.LoadLedger(7)
	if err != nil {
		t.Fatalf("LoadLedger failed: %v", err)
	}
	if out == nil {
		t.Fatal("LoadLedger = nil, want ledger")
	}
	if !reflect.DeepEqual(*out, in) {
		t.Errorf("loaded ledger = %+v\nwant %+v", *out, in)
	}
}

func TestStore_LoadMissingLedger(t *testing.T) {
	s := openTestStore(t)

	out, err := s.LoadLedger(99)
	if err != nil {
		t.Fatalf("LoadLedger(missing) err = %v, want nil", err)
	}
	if out != nil {
		t.Errorf("LoadLedger(missing) = %+v, want nil", out)
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveLedger(recon.Ledger{TraderID: 7, Cash: 1}); err != nil {
		t.Fatalf("SaveLedger failed: %v", err)
	}
	if err := s.SaveLedger(recon.Ledger{TraderID: 7, Cash: 2}); err != nil {
		t.Fatalf("second SaveLedger failed: %v", err)
	}

	out, err := s.LoadLedger(7)
	if err != nil {
		t.Fatalf("LoadLedger failed: %v", err)
	}
	if out.Cash != 2 {
		t.Errorf("Cash = %v, want latest save 2", out.Cash)
	}
}

func TestStore_LedgersAreTraderScoped(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveLedger(recon.Ledger{TraderID: 1, Cash: 10}); err != nil {
		t.Fatalf("SaveLedger failed: %v", err)
	}
	if err := s.SaveLedger(recon.Ledger{TraderID: 2, Cash: 20}); err != nil {
		t.Fatalf("SaveLedger failed: %v", err)
	}

	a, err := s.LoadLedger(1)
	if err != nil || a == nil || a.Cash != 10 {
		t.Errorf("LoadLedger(1) = %+v, %v; want cash 10", a, err)
	}
	b, err := s.LoadLedger(2)
	if err != nil || b == nil || b.Cash != 20 {
		t.Errorf("LoadLedger(2) = %+v, %v; want cash 20", b, err)
	}
}

func TestCheckpointer_SavesOnCadence(t *testing.T) {
	s := openTestStore(t)
	state := recon.New(7, zap.NewNop().Sugar(), metrics.New())
	state.OnSubmit(book.Order{Symbol: "ABC", ID: 1})

	c := NewCheckpointer(s, state, 3, zap.NewNop().Sugar())

	for i := 0; i < 2; i++ {
		if err := c.OnPacketEnd(); err != nil {
			t.Fatalf("OnPacketEnd failed: %v", err)
		}
	}
	if l, err := s.LoadLedger(7); err != nil || l != nil {
		t.Fatalf("ledger before cadence = %+v, %v; want none", l, err)
	}

	if err := c.OnPacketEnd(); err != nil {
		t.Fatalf("OnPacketEnd failed: %v", err)
	}
	l, err := s.LoadLedger(7)
	if err != nil {
		t.Fatalf("LoadLedger failed: %v", err)
	}
	if l == nil || len(l.Submitted) != 1 || l.Submitted[0] != 1 {
		t.Errorf("checkpointed ledger = %+v, want submitted [1]", l)
	}
}
