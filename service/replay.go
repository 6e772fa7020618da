package service

import (
	"errors"

	"go.uber.org/zap"

	"hermes/domain/market"
	"hermes/domain/wallet"
	"hermes/infra/wal"
	"hermes/snapshot"
)

// RestoreSnapshot loads a captured image into the engine. Must run before
// ReplayWAL and before accepting traffic.
func (e *Engine) RestoreSnapshot(s *snapshot.Snapshot) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	registry := NewRegistry()
	for i := range s.Markets {
		m, err := market.FromState(&s.Markets[i])
		if err != nil {
			return err
		}
		registry.put(m)
	}

	e.registry = registry
	e.wallets = wallet.RestoreManager(s.Wallets)
	e.lastSeq = s.Seq
	return nil
}

// ReplayWAL re-applies every logged command past the snapshot point. The log
// also contains commands the engine rejected; they reject identically here,
// so rejections are skipped rather than treated as corruption.
func (e *Engine) ReplayWAL(dir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snapSeq := e.lastSeq
	replayed := 0

	lastSeq, err := wal.Replay(dir, func(rec *wal.Record) error {
		if rec.Seq <= snapSeq {
			return nil
		}

		cmd, err := decodeCommand(rec.Data)
		if err != nil {
			return err
		}

		if _, err := e.apply(cmd); err != nil {
			if !isRejection(err) {
				return err
			}
		}
		replayed++
		return nil
	})
	if err != nil {
		return err
	}

	if lastSeq > e.lastSeq {
		e.lastSeq = lastSeq
	}
	e.metrics.RestingOrders.Set(float64(e.restingCount()))
	e.log.Info("wal replay complete",
		zap.Uint64("snapshot_seq", snapSeq),
		zap.Uint64("last_seq", e.lastSeq),
		zap.Int("commands", replayed))
	return nil
}

// isRejection reports whether an apply error is a deterministic business
// rejection rather than corruption.
func isRejection(err error) bool {
	var merr *market.Error
	if errors.As(err, &merr) {
		return true
	}
	switch {
	case errors.Is(err, ErrMarketExists),
		errors.Is(err, ErrUnknownMarket),
		errors.Is(err, wallet.ErrWalletExists),
		errors.Is(err, wallet.ErrUnknownWallet),
		errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrInvalidAmount):
		return true
	}
	return false
}
