package market_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hermes/domain/market"
	"hermes/domain/wallet"
)

const (
	unit = int64(market.Scale)

	coinAsset = int32(1)
	baseAsset = int32(2)
)

func newTestMarket(t *testing.T) (*market.Market, *wallet.Manager, market.MarketWallets) {
	t.Helper()
	m, err := market.New(
		market.CoinPair{Coin: coinAsset, Base: baseAsset},
		market.Config{FeeDivisor: 1000, MaxOpenLimitOrders: 100, MaxOpenStopOrders: 100},
	)
	require.NoError(t, err)
	mgr := wallet.NewManager()
	return m, mgr, mgr.Pair(m.Pair())
}

func fundCoin(t *testing.T, mgr *wallet.Manager, userID, amount int64) {
	t.Helper()
	require.NoError(t, mgr.Deposit(coinAsset, userID, amount))
}

func fundBase(t *testing.T, mgr *wallet.Manager, userID, amount int64) {
	t.Helper()
	require.NoError(t, mgr.Deposit(baseAsset, userID, amount))
}

func place(t *testing.T, m *market.Market, w market.MarketWallets, side market.Side, typ market.OrderType, userID, amount, price, trigger int64) []market.Event {
	t.Helper()
	events, err := m.Process(side, market.Order{
		UserID:  userID,
		Amount:  amount,
		Type:    typ,
		Price:   price,
		Trigger: trigger,
	}, w)
	require.NoError(t, err)
	return events
}

func restingIDs(m *market.Market, side market.Side, typ market.OrderType) []int64 {
	entries := m.RestingOrders(side, typ)
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Order.ID)
	}
	return ids
}

func TestSellLimitOrdersSortedByPriceThenTime(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 1000*unit)

	prices := []float64{0.5, 0.2, 0.4, 0.3, 0.1, 0.6, 0.2}
	for _, p := range prices {
		place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 10*unit, market.ToInternal(p), 0)
	}

	require.Equal(t, []int64{5, 2, 7, 4, 3, 1, 6}, restingIDs(m, market.Sell, market.OrderTypeLimit))
}

func TestBuyLimitOrdersSortedByPriceThenTime(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundBase(t, mgr, 1, 1000*unit)

	prices := []float64{0.5, 0.2, 0.4, 0.3, 0.1, 0.6, 0.2}
	for _, p := range prices {
		place(t, m, w, market.Buy, market.OrderTypeLimit, 1, 10*unit, market.ToInternal(p), 0)
	}

	require.Equal(t, []int64{6, 1, 3, 4, 2, 7, 5}, restingIDs(m, market.Buy, market.OrderTypeLimit))
}

func TestBuyStopOrdersSortedByTrigger(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 1000*unit)
	fundBase(t, mgr, 2, 1000*unit)

	prices := []float64{0.5, 0.2, 0.4, 0.3, 0.1, 0.6, 0.2}
	for _, p := range prices {
		place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 10*unit, market.ToInternal(p), 0)
	}
	for _, trig := range []float64{0.85, 0.75, 0.95} {
		place(t, m, w, market.Buy, market.OrderTypeStopLimit, 2, unit, market.ToInternal(0.7), market.ToInternal(trig))
	}

	require.Equal(t, []int64{9, 8, 10}, restingIDs(m, market.Buy, market.OrderTypeStopLimit))
}

func TestSellStopOrdersSortedByTrigger(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundBase(t, mgr, 1, 1000*unit)
	fundCoin(t, mgr, 2, 1000*unit)

	prices := []float64{0.5, 0.2, 0.4, 0.3, 0.1, 0.6, 0.2}
	for _, p := range prices {
		place(t, m, w, market.Buy, market.OrderTypeLimit, 1, 10*unit, market.ToInternal(p), 0)
	}
	for _, trig := range []float64{0.35, 0.25, 0.45} {
		place(t, m, w, market.Sell, market.OrderTypeStopLimit, 2, unit, market.ToInternal(0.7), market.ToInternal(trig))
	}

	require.Equal(t, []int64{10, 8, 9}, restingIDs(m, market.Sell, market.OrderTypeStopLimit))
}

func TestPriceTimePriorityTakesBestPriceFirst(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 100*unit)
	fundCoin(t, mgr, 2, 100*unit)
	fundCoin(t, mgr, 3, 100*unit)
	fundBase(t, mgr, 4, 100*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 10*unit, market.ToInternal(0.4), 0) // id 1
	place(t, m, w, market.Sell, market.OrderTypeLimit, 2, 10*unit, market.ToInternal(0.3), 0) // id 2
	place(t, m, w, market.Sell, market.OrderTypeLimit, 3, 10*unit, market.ToInternal(0.5), 0) // id 3

	events := place(t, m, w, market.Buy, market.OrderTypeLimit, 4, 20*unit, market.ToInternal(0.4), 0)

	var trades []market.Event
	for _, e := range events {
		if e.Type == market.EventNewTrade {
			trades = append(trades, e)
		}
	}
	require.Len(t, trades, 2)
	require.Equal(t, int64(2), trades[0].SellOrderID)
	require.Equal(t, market.ToInternal(0.3), trades[0].Price)
	require.Equal(t, int64(1), trades[1].SellOrderID)
	require.Equal(t, market.ToInternal(0.4), trades[1].Price)

	require.Equal(t, []int64{3}, restingIDs(m, market.Sell, market.OrderTypeLimit))
	require.Empty(t, restingIDs(m, market.Buy, market.OrderTypeLimit))
}

func TestFullFillSettlesBothWallets(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundBase(t, mgr, 2, 10*unit)
	fundCoin(t, mgr, 1, 5*unit)

	place(t, m, w, market.Buy, market.OrderTypeLimit, 2, 2*unit, market.ToInternal(0.5), 0) // id 1
	events := place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 2*unit, market.ToInternal(0.5), 0)

	require.Len(t, events, 3)
	require.Equal(t, market.EventNewTrade, events[0].Type)
	require.Equal(t, int64(1), events[0].TradeID)
	require.Equal(t, int64(1), events[0].BuyOrderID)
	require.Equal(t, int64(2), events[0].SellOrderID)
	require.Equal(t, market.EventOrderFilled, events[1].Type)
	require.Equal(t, int64(1), events[1].OrderID)
	require.Equal(t, market.EventOrderFilled, events[2].Type)
	require.Equal(t, int64(2), events[2].OrderID)

	// 0.1% fee on a 2.0 coin trade at price 0.5.
	buyFee := 2 * unit / 1000
	sellFee := market.ScaleDown(2*unit*market.ToInternal(0.5)) / 1000
	require.Equal(t, buyFee, events[0].Fees.Buy)
	require.Equal(t, sellFee, events[0].Fees.Sell)

	cost := market.ScaleDown(2 * unit * market.ToInternal(0.5))

	buyerCoin, _ := mgr.GetOrCreate(coinAsset).Balance(2)
	require.Equal(t, 2*unit-buyFee, buyerCoin)
	buyerBase, buyerBaseInOrder := mgr.GetOrCreate(baseAsset).Balance(2)
	require.Equal(t, 10*unit-cost, buyerBase)
	require.Equal(t, 2*unit-cost, buyerBaseInOrder)

	sellerBase, _ := mgr.GetOrCreate(baseAsset).Balance(1)
	require.Equal(t, 2*unit-sellFee, sellerBase)
	sellerCoin, sellerCoinInOrder := mgr.GetOrCreate(coinAsset).Balance(1)
	require.Equal(t, 3*unit, sellerCoin)
	require.Equal(t, int64(0), sellerCoinInOrder)
}

func TestLargeTradeSettlesExactly(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 2000*unit)
	fundBase(t, mgr, 2, 2000*unit)

	// The raw amount*price product here is past int64; the cost must still
	// come out exact.
	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 2000*unit, unit, 0) // id 1
	events := place(t, m, w, market.Buy, market.OrderTypeLimit, 2, 2000*unit, unit, 0)

	require.Equal(t, market.EventNewTrade, events[0].Type)
	require.Equal(t, 2*unit, events[0].Fees.Buy)
	require.Equal(t, 2*unit, events[0].Fees.Sell)

	buyerCoin, _ := mgr.GetOrCreate(coinAsset).Balance(2)
	require.Equal(t, 1998*unit, buyerCoin)
	buyerBase, buyerBaseInOrder := mgr.GetOrCreate(baseAsset).Balance(2)
	require.Zero(t, buyerBase)
	require.Zero(t, buyerBaseInOrder)

	sellerBase, _ := mgr.GetOrCreate(baseAsset).Balance(1)
	require.Equal(t, 1998*unit, sellerBase)
	sellerCoin, sellerCoinInOrder := mgr.GetOrCreate(coinAsset).Balance(1)
	require.Zero(t, sellerCoin)
	require.Zero(t, sellerCoinInOrder)
}

func TestPartialFillKeepsMakerWithFill(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 2*unit, market.ToInternal(0.5), 0) // id 1
	events := place(t, m, w, market.Buy, market.OrderTypeLimit, 2, unit, market.ToInternal(0.5), 0)

	require.Len(t, events, 3)
	require.Equal(t, market.EventNewTrade, events[0].Type)
	require.Equal(t, market.EventPartialFill, events[1].Type)
	require.Equal(t, int64(1), events[1].OrderID)
	require.Equal(t, unit, events[1].Amount)
	require.Equal(t, market.EventNewFilledOrder, events[2].Type)
	require.Equal(t, int64(2), events[2].OrderID)

	entries := m.RestingOrders(market.Sell, market.OrderTypeLimit)
	require.Len(t, entries, 1)
	require.Equal(t, int64(1), entries[0].Order.ID)
	require.Equal(t, unit, entries[0].Order.Filled)
	require.Equal(t, unit, entries[0].Order.Remaining())
}

func TestFeeTruncatesToZeroBelowDivisor(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 999, unit, 0)
	events := place(t, m, w, market.Buy, market.OrderTypeLimit, 2, 999, unit, 0)

	require.Equal(t, market.EventNewTrade, events[0].Type)
	require.Equal(t, int64(0), events[0].Fees.Buy)
	require.Equal(t, int64(0), events[0].Fees.Sell)
}

func TestMarketBuyAgainstOwnOrderRejected(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 1, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, unit, market.ToInternal(0.5), 0)

	_, err := m.Process(market.Buy, market.Order{UserID: 1, Amount: unit, Type: market.OrderTypeMarket}, w)
	require.True(t, market.IsKind(err, market.KindTradeSameUser))
}

func TestRejectionMidMatchLeavesNothingBehind(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundBase(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)
	fundCoin(t, mgr, 2, 10*unit)

	place(t, m, w, market.Buy, market.OrderTypeLimit, 1, unit, market.ToInternal(0.5), 0) // id 1
	place(t, m, w, market.Buy, market.OrderTypeLimit, 2, unit, market.ToInternal(0.4), 0) // id 2

	before := m.State()
	walletsBefore := mgr.State()

	// Consumes user 1's order, then runs into user 2's own resting buy.
	_, err := m.Process(market.Sell, market.Order{
		UserID: 2,
		Amount: 2 * unit,
		Type:   market.OrderTypeLimit,
		Price:  market.ToInternal(0.4),
	}, w)
	require.True(t, market.IsKind(err, market.KindTradeSameUser))

	require.Equal(t, before, m.State())
	require.Equal(t, walletsBefore, mgr.State())
}

func TestMarketOrderUnfilledRejected(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, unit, market.ToInternal(0.3), 0)

	before := m.State()
	_, err := m.Process(market.Buy, market.Order{UserID: 2, Amount: 2 * unit, Type: market.OrderTypeMarket}, w)
	require.True(t, market.IsKind(err, market.KindMarketOrderUnfilled))
	require.Equal(t, before, m.State())
}

func TestMarketBuyFundsCheckedAgainstBook(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, unit, market.ToInternal(0.5), 0)

	cost := market.ScaleDown(unit * market.ToInternal(0.5))
	fundBase(t, mgr, 2, cost-1)
	_, err := m.Process(market.Buy, market.Order{UserID: 2, Amount: unit, Type: market.OrderTypeMarket}, w)
	require.True(t, market.IsKind(err, market.KindInsufficientFunds))

	fundBase(t, mgr, 2, 1)
	place(t, m, w, market.Buy, market.OrderTypeMarket, 2, unit, 0, 0)
	require.Empty(t, restingIDs(m, market.Sell, market.OrderTypeLimit))
}

func TestInsufficientFundsRejected(t *testing.T) {
	m, mgr, w := newTestMarket(t)

	_, err := m.Process(market.Sell, market.Order{UserID: 1, Amount: unit, Type: market.OrderTypeLimit, Price: unit}, w)
	require.True(t, market.IsKind(err, market.KindInsufficientFunds))

	fundBase(t, mgr, 2, market.ScaleDown(unit*market.ToInternal(0.5))-1)
	_, err = m.Process(market.Buy, market.Order{UserID: 2, Amount: unit, Type: market.OrderTypeLimit, Price: market.ToInternal(0.5)}, w)
	require.True(t, market.IsKind(err, market.KindInsufficientFunds))
}

func TestStopLimitNeedsRestingOppositeOrders(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundBase(t, mgr, 1, 10*unit)

	_, err := m.Process(market.Buy, market.Order{
		UserID:  1,
		Amount:  unit,
		Type:    market.OrderTypeStopLimit,
		Price:   market.ToInternal(0.5),
		Trigger: market.ToInternal(0.6),
	}, w)
	require.True(t, market.IsKind(err, market.KindNoOrdersForStopLimit))
}

func TestStopLimitTriggerInsideTopOfBookRejected(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, unit, market.ToInternal(0.5), 0)

	_, err := m.Process(market.Buy, market.Order{
		UserID:  2,
		Amount:  unit,
		Type:    market.OrderTypeStopLimit,
		Price:   market.ToInternal(0.4),
		Trigger: market.ToInternal(0.4),
	}, w)
	require.True(t, market.IsKind(err, market.KindStopPriceOutOfRange))
}

func TestStopCascadeTriggersOnlyReachedLevels(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 5, 10*unit)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)
	fundBase(t, mgr, 3, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 5, unit, market.ToInternal(0.1), 0) // id 1
	for _, trig := range []float64{0.75, 0.85, 0.95} {
		place(t, m, w, market.Buy, market.OrderTypeStopLimit, 3, 2*unit, market.ToInternal(0.7), market.ToInternal(trig)) // ids 2..4
	}
	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 5*unit, market.ToInternal(0.8), 0) // id 5

	events := place(t, m, w, market.Buy, market.OrderTypeLimit, 2, 2*unit, market.ToInternal(0.8), 0) // id 6

	var triggered []int64
	for _, e := range events {
		if e.Type == market.EventStopLimitTriggered {
			triggered = append(triggered, e.OrderID)
		}
	}
	require.Equal(t, []int64{2}, triggered)

	// The 0.75 stop converted at its limit price and rests; the others stay.
	require.Equal(t, []int64{3, 4}, restingIDs(m, market.Buy, market.OrderTypeStopLimit))
	require.Equal(t, []int64{2}, restingIDs(m, market.Buy, market.OrderTypeLimit))
}

func TestSelfTradeRiskBetweenLimitAndOwnStop(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 7, 10*unit)
	fundCoin(t, mgr, 7, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, unit, market.ToInternal(0.1), 0)
	place(t, m, w, market.Buy, market.OrderTypeStopLimit, 7, unit, market.ToInternal(0.4), market.ToInternal(0.5))

	// A sell at or below the user's own buy-stop trigger could fire it.
	_, err := m.Process(market.Sell, market.Order{UserID: 7, Amount: unit, Type: market.OrderTypeLimit, Price: market.ToInternal(0.5)}, w)
	require.True(t, market.IsKind(err, market.KindIncompatibleOrders))

	place(t, m, w, market.Sell, market.OrderTypeLimit, 7, unit, market.ToInternal(0.6), 0)
}

func TestOpenOrderCapEnforced(t *testing.T) {
	m, err := market.New(
		market.CoinPair{Coin: coinAsset, Base: baseAsset},
		market.Config{FeeDivisor: 1000, MaxOpenLimitOrders: 2, MaxOpenStopOrders: 100},
	)
	require.NoError(t, err)
	mgr := wallet.NewManager()
	w := mgr.Pair(m.Pair())
	fundBase(t, mgr, 1, 100*unit)

	place(t, m, w, market.Buy, market.OrderTypeLimit, 1, unit, market.ToInternal(0.1), 0)
	place(t, m, w, market.Buy, market.OrderTypeLimit, 1, unit, market.ToInternal(0.2), 0)

	_, err = m.Process(market.Buy, market.Order{UserID: 1, Amount: unit, Type: market.OrderTypeLimit, Price: market.ToInternal(0.3)}, w)
	require.True(t, market.IsKind(err, market.KindTooManyOpenOrders))
}

func TestCancelReleasesReserve(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundBase(t, mgr, 6, 100*unit)

	place(t, m, w, market.Buy, market.OrderTypeLimit, 6, 100*unit, market.ToInternal(0.3), 0) // id 1

	total, inOrder := mgr.GetOrCreate(baseAsset).Balance(6)
	require.Equal(t, 100*unit, total)
	require.Equal(t, 100*unit, inOrder)

	require.NoError(t, m.Cancel(market.Buy, market.OrderTypeLimit, 1, market.ToInternal(0.3), w))

	total, inOrder = mgr.GetOrCreate(baseAsset).Balance(6)
	require.Equal(t, 100*unit, total)
	require.Equal(t, int64(0), inOrder)
	require.Empty(t, restingIDs(m, market.Buy, market.OrderTypeLimit))

	limits, stops := m.OpenOrderCounts(6)
	require.Zero(t, limits)
	require.Zero(t, stops)
}

func TestCancelUnknownOrderRejected(t *testing.T) {
	m, _, w := newTestMarket(t)

	err := m.Cancel(market.Buy, market.OrderTypeLimit, 42, market.ToInternal(0.3), w)
	require.True(t, market.IsKind(err, market.KindInvalidIDPrice))

	err = m.Cancel(market.Buy, market.OrderTypeMarket, 42, market.ToInternal(0.3), w)
	require.True(t, market.IsKind(err, market.KindInvalidIDPrice))
}

func TestCancelAllUserClearsEveryBook(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 100*unit)
	fundBase(t, mgr, 1, 100*unit)
	fundCoin(t, mgr, 2, 100*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 2, unit, market.ToInternal(0.1), 0)                             // id 1
	place(t, m, w, market.Buy, market.OrderTypeLimit, 1, unit, market.ToInternal(0.05), 0)                             // id 2
	place(t, m, w, market.Buy, market.OrderTypeStopLimit, 1, unit, market.ToInternal(0.3), market.ToInternal(0.4))     // id 3
	place(t, m, w, market.Sell, market.OrderTypeStopLimit, 1, unit, market.ToInternal(0.02), market.ToInternal(0.03)) // id 4

	ids, err := m.CancelAllUser(1, w)
	require.NoError(t, err)
	require.Equal(t, []int64{2, 3, 4}, ids)

	require.Equal(t, []int64{1}, restingIDs(m, market.Sell, market.OrderTypeLimit))
	require.Empty(t, restingIDs(m, market.Buy, market.OrderTypeLimit))
	require.Empty(t, restingIDs(m, market.Buy, market.OrderTypeStopLimit))
	require.Empty(t, restingIDs(m, market.Sell, market.OrderTypeStopLimit))

	_, coinInOrder := mgr.GetOrCreate(coinAsset).Balance(1)
	_, baseInOrder := mgr.GetOrCreate(baseAsset).Balance(1)
	require.Zero(t, coinInOrder)
	require.Zero(t, baseInOrder)

	ids, err = m.CancelAllUser(1, w)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestConsumedMakerLeavesUserIndex(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, unit, market.ToInternal(0.5), 0)
	place(t, m, w, market.Buy, market.OrderTypeLimit, 2, unit, market.ToInternal(0.5), 0)

	limits, stops := m.OpenOrderCounts(1)
	require.Zero(t, limits)
	require.Zero(t, stops)

	ids, err := m.CancelAllUser(1, w)
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestCommitTrimsUserIndexByConsumedCount(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 10*unit)
	fundBase(t, mgr, 2, 10*unit)
	fundBase(t, mgr, 3, 10*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, unit, market.ToInternal(0.5), 0)   // id 1
	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 2*unit, market.ToInternal(0.5), 0) // id 2
	for i := 0; i < 2; i++ {                                                                 // ids 3, 4
		place(t, m, w, market.Buy, market.OrderTypeStopLimit, 2, 3*unit/10, market.ToInternal(0.55), market.ToInternal(0.5))
	}

	// One maker is fully consumed while two stops trigger in the same
	// command: the fully-consumed count, not the triggered count, bounds
	// the trim of the opposite book and the user index.
	place(t, m, w, market.Buy, market.OrderTypeLimit, 3, 3*unit/2, market.ToInternal(0.5), 0)

	entries := m.RestingOrders(market.Sell, market.OrderTypeLimit)
	require.Len(t, entries, 1)
	require.Equal(t, int64(2), entries[0].Order.ID)
	require.Equal(t, 11*unit/10, entries[0].Order.Filled)
	require.Empty(t, restingIDs(m, market.Buy, market.OrderTypeStopLimit))

	ids, err := m.CancelAllUser(1, w)
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids)
}

func TestSameAssetPairRejected(t *testing.T) {
	_, err := market.New(market.CoinPair{Coin: 1, Base: 1}, market.Config{FeeDivisor: 1000})
	require.True(t, market.IsKind(err, market.KindSameAssetPair))
}

func TestStateRoundTrip(t *testing.T) {
	m, mgr, w := newTestMarket(t)
	fundCoin(t, mgr, 1, 100*unit)
	fundBase(t, mgr, 2, 100*unit)

	place(t, m, w, market.Sell, market.OrderTypeLimit, 1, 2*unit, market.ToInternal(0.5), 0)
	place(t, m, w, market.Buy, market.OrderTypeLimit, 2, unit, market.ToInternal(0.5), 0)
	place(t, m, w, market.Buy, market.OrderTypeLimit, 2, unit, market.ToInternal(0.2), 0)
	place(t, m, w, market.Buy, market.OrderTypeStopLimit, 2, unit, market.ToInternal(0.6), market.ToInternal(0.7))

	restored, err := market.FromState(m.State())
	require.NoError(t, err)
	require.Equal(t, m.State(), restored.State())
	require.Equal(t, m.NextOrderID(), restored.NextOrderID())
	require.Equal(t, m.NextTradeID(), restored.NextTradeID())

	limits, stops := restored.OpenOrderCounts(2)
	require.Equal(t, 1, limits)
	require.Equal(t, 1, stops)
}
