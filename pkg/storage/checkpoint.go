package storage

import (
	"go.uber.org/zap"

	"github.com/danhju/mirrorbook/pkg/feed"
	"github.com/danhju/mirrorbook/pkg/recon"
)

// Checkpointer persists the ledger every N packet ends, so a crash
// costs at most N packets of attribution history. A failed write is
// logged and retried at the next boundary; it never halts dispatch.
type Checkpointer struct {
	feed.NopHandler

	store *Store
	state *recon.State
	every int
	seen  int
	log   *zap.SugaredLogger
}

func NewCheckpointer(store *Store, state *recon.State, every int, log *zap.SugaredLogger) *Checkpointer {
	if every < 1 {
		every = 1
	}
	return &Checkpointer{store: store, state: state, every: every, log: log}
}

var _ feed.Handler = (*Checkpointer)(nil)

func (c *Checkpointer) OnPacketEnd() error {
	c.seen++
	if c.seen%c.every != 0 {
		return nil
	}
	if err := c.store.SaveLedger(c.state.SnapshotLedger()); err != nil {
		c.log.Warnw("ledger checkpoint failed", "err", err)
	}
	return nil
}
