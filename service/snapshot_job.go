package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"hermes/domain/market"
	"hermes/snapshot"
)

// Capture takes a consistent image of every market and wallet.
func (e *Engine) Capture() *snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	all := e.registry.All()
	markets := make([]market.State, 0, len(all))
	for _, m := range all {
		markets = append(markets, *m.State())
	}

	return &snapshot.Snapshot{
		Seq:     e.lastSeq,
		Markets: markets,
		Wallets: e.wallets.State(),
	}
}

// StartSnapshotJob periodically snapshots the engine, then trims the WAL
// segments and acked outbox records the snapshot made redundant.
func (e *Engine) StartSnapshotJob(ctx context.Context, dir string, interval time.Duration) {
	w := &snapshot.Writer{Dir: dir}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s := e.Capture()
				if err := w.Write(s); err != nil {
					e.log.Error("snapshot write failed", zap.Error(err))
					continue
				}
				if err := e.wal.TruncateBefore(s.Seq); err != nil {
					e.log.Warn("wal truncate failed", zap.Error(err))
				}
				if err := e.outbox.DeleteAckedUpTo(s.Seq); err != nil {
					e.log.Warn("outbox gc failed", zap.Error(err))
				}
				e.log.Info("snapshot written", zap.Uint64("seq", s.Seq))
			}
		}
	}()
}
