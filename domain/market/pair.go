package market

import "fmt"

// CoinPair identifies a market. Amounts are denominated in Coin, prices in
// Base per coin.
type CoinPair struct {
	Coin int32
	Base int32
}

func (p CoinPair) String() string {
	return fmt.Sprintf("%d-%d", p.Coin, p.Base)
}

// Config carries the per-market knobs.
type Config struct {
	// FeeDivisor is the divisor form of the trading fee; see ToFeeDivisor.
	FeeDivisor int64
	// MaxOpenLimitOrders caps the limit orders a user may have resting.
	MaxOpenLimitOrders int32
	// MaxOpenStopOrders caps the stop-limit orders a user may have resting.
	MaxOpenStopOrders int32
}
