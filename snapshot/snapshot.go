// Package snapshot persists a point-in-time image of every market and
// wallet, together with the last applied command sequence. On startup the
// image is restored first, then the WAL suffix past Seq is replayed.
package snapshot

import (
	"time"

	"hermes/domain/market"
	"hermes/domain/wallet"
)

type Snapshot struct {
	Seq     uint64
	Created time.Time
	Markets []market.State
	Wallets []wallet.WalletState
}
