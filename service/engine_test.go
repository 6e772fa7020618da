package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hermes/domain/market"
	"hermes/domain/wallet"
	"hermes/infra/metrics"
	"hermes/infra/outbox"
	"hermes/infra/wal"
	"hermes/service"
	"hermes/snapshot"
)

const unit = int64(market.Scale)

var (
	testPair = market.CoinPair{Coin: 1, Base: 2}
	testCfg  = market.Config{FeeDivisor: 1000, MaxOpenLimitOrders: 100, MaxOpenStopOrders: 100}
)

func newTestEngine(t *testing.T, walDir string) *service.Engine {
	t.Helper()

	w, err := wal.Open(wal.Config{Dir: walDir})
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	ob, err := outbox.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = ob.Close() })

	return service.NewEngine(
		service.NewRegistry(),
		wallet.NewManager(),
		w,
		ob,
		nil,
		metrics.New(),
		zap.NewNop(),
	)
}

func runSession(t *testing.T, e *service.Engine) {
	t.Helper()
	ctx := context.Background()

	_, err := e.CreateMarket(ctx, testPair, testCfg)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, 1, 10, 100*unit)
	require.NoError(t, err)
	_, err = e.Deposit(ctx, 2, 20, 100*unit)
	require.NoError(t, err)

	res, err := e.PlaceOrder(ctx, testPair, market.Sell, market.OrderTypeLimit, 10, 10*unit, market.ToInternal(0.5), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.OrderID)

	res, err = e.PlaceOrder(ctx, testPair, market.Buy, market.OrderTypeLimit, 20, 4*unit, market.ToInternal(0.5), 0)
	require.NoError(t, err)
	require.NotEmpty(t, res.Events)

	// Rejections are logged too; replay must handle them.
	_, err = e.PlaceOrder(ctx, testPair, market.Buy, market.OrderTypeLimit, 30, unit, market.ToInternal(0.5), 0)
	require.True(t, market.IsKind(err, market.KindInsufficientFunds))

	res, err = e.PlaceOrder(ctx, testPair, market.Buy, market.OrderTypeLimit, 20, unit, market.ToInternal(0.2), 0)
	require.NoError(t, err)

	_, err = e.CancelOrder(ctx, testPair, market.Buy, market.OrderTypeLimit, res.OrderID, market.ToInternal(0.2))
	require.NoError(t, err)

	_, err = e.Withdraw(ctx, 2, 20, unit)
	require.NoError(t, err)
}

func TestReplayRebuildsIdenticalState(t *testing.T) {
	walDir := t.TempDir()

	e1 := newTestEngine(t, walDir)
	runSession(t, e1)
	want := e1.Capture()

	e2 := newTestEngine(t, walDir)
	require.NoError(t, e2.ReplayWAL(walDir))
	got := e2.Capture()

	require.Equal(t, want.Seq, got.Seq)
	require.Equal(t, want.Markets, got.Markets)
	require.Equal(t, want.Wallets, got.Wallets)
}

func TestSnapshotRestoreSkipsCoveredRecords(t *testing.T) {
	walDir := t.TempDir()

	e1 := newTestEngine(t, walDir)
	runSession(t, e1)
	snap := e1.Capture()

	snapDir := t.TempDir()
	require.NoError(t, (&snapshot.Writer{Dir: snapDir}).Write(snap))

	loaded, err := snapshot.Load(snapDir)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	require.Equal(t, snap.Seq, loaded.Seq)

	e2 := newTestEngine(t, walDir)
	require.NoError(t, e2.RestoreSnapshot(loaded))
	require.NoError(t, e2.ReplayWAL(walDir))

	got := e2.Capture()
	require.Equal(t, snap.Seq, got.Seq)
	require.Equal(t, snap.Markets, got.Markets)
	require.Equal(t, snap.Wallets, got.Wallets)
}

func TestSnapshotLoadMissingFile(t *testing.T) {
	s, err := snapshot.Load(t.TempDir())
	require.NoError(t, err)
	require.Nil(t, s)
}

func TestEngineQueries(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	runSession(t, e)

	require.Equal(t, []market.CoinPair{testPair}, e.Markets())

	book, err := e.Book(testPair, market.Sell, market.OrderTypeLimit)
	require.NoError(t, err)
	require.Len(t, book, 1)
	require.Equal(t, int64(1), book[0].Order.ID)
	require.Equal(t, 4*unit, book[0].Order.Filled)

	total, inOrder, err := e.Balance(1, 10)
	require.NoError(t, err)
	require.Equal(t, 100*unit-4*unit, total)
	require.Equal(t, 6*unit, inOrder)

	_, err = e.Book(market.CoinPair{Coin: 5, Base: 6}, market.Buy, market.OrderTypeLimit)
	require.ErrorIs(t, err, service.ErrUnknownMarket)

	_, _, err = e.Balance(9, 10)
	require.ErrorIs(t, err, wallet.ErrUnknownWallet)
}

func TestCancelAllUserEverywhere(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	ctx := context.Background()

	secondPair := market.CoinPair{Coin: 3, Base: 2}
	_, err := e.CreateMarket(ctx, testPair, testCfg)
	require.NoError(t, err)
	_, err = e.CreateMarket(ctx, secondPair, testCfg)
	require.NoError(t, err)

	_, err = e.Deposit(ctx, 2, 20, 100*unit)
	require.NoError(t, err)

	for _, pair := range []market.CoinPair{testPair, secondPair} {
		_, err = e.PlaceOrder(ctx, pair, market.Buy, market.OrderTypeLimit, 20, unit, market.ToInternal(0.2), 0)
		require.NoError(t, err)
	}

	res, err := e.CancelAllUserEverywhere(ctx, 20)
	require.NoError(t, err)
	require.Len(t, res.IDs, 2)
	require.Equal(t, []int64{1}, res.ByMarket[testPair.String()])
	require.Equal(t, []int64{1}, res.ByMarket[secondPair.String()])

	_, inOrder, err := e.Balance(2, 20)
	require.NoError(t, err)
	require.Zero(t, inOrder)

	for _, pair := range []market.CoinPair{testPair, secondPair} {
		book, err := e.Book(pair, market.Buy, market.OrderTypeLimit)
		require.NoError(t, err)
		require.Empty(t, book)
	}
}

func TestCommandsRejectedOnUnknownMarket(t *testing.T) {
	e := newTestEngine(t, t.TempDir())
	ctx := context.Background()

	_, err := e.PlaceOrder(ctx, testPair, market.Buy, market.OrderTypeLimit, 1, unit, unit, 0)
	require.ErrorIs(t, err, service.ErrUnknownMarket)

	_, err = e.CreateMarket(ctx, testPair, testCfg)
	require.NoError(t, err)
	_, err = e.CreateMarket(ctx, testPair, testCfg)
	require.ErrorIs(t, err, service.ErrMarketExists)
}
