// Package storage persists the reconciliation ledger across sessions.
// Book mirrors are deliberately not stored; they are rebuilt from the
// feed.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/danhju/mirrorbook/pkg/recon"
)

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// keys: l:<8-byte-trader-id>
func ledgerKey(traderID uint64) []byte {
	k := make([]byte, 2, 10)
	copy(k, "l:")
	var id [8]byte
	binary.BigEndian.PutUint64(id[:], traderID)
	return append(k, id[:]...)
}

// SaveLedger writes the ledger synchronously; called at packet
// boundaries and on shutdown, so durability beats write latency here.
func (s *Store) SaveLedger(l recon.Ledger) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := s.db.Set(ledgerKey(l.TraderID), data, pebble.Sync); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// LoadLedger returns the saved ledger or nil when none exists.
func (s *Store) LoadLedger(traderID uint64) (*recon.Ledger, error) {
	data, closer, err := s.db.Get(ledgerKey(traderID))
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	defer closer.Close()

	var l recon.Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("unmarshal ledger: %w", err)
	}
	return &l, nil
}
