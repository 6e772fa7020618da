package wallet

import (
	"testing"

	"github.com/stretchr/testify/require"

	"hermes/domain/market"
)

func TestDepositAndWithdraw(t *testing.T) {
	w := New(1)

	require.NoError(t, w.Deposit(7, 100))
	total, inOrder := w.Balance(7)
	require.Equal(t, int64(100), total)
	require.Equal(t, int64(0), inOrder)

	require.NoError(t, w.Withdraw(7, 40))
	total, _ = w.Balance(7)
	require.Equal(t, int64(60), total)

	require.ErrorIs(t, w.Withdraw(7, 61), ErrInsufficientFunds)
	require.ErrorIs(t, w.Withdraw(8, 1), ErrInsufficientFunds)
	require.ErrorIs(t, w.Deposit(7, 0), ErrInvalidAmount)
	require.ErrorIs(t, w.Withdraw(7, -1), ErrInvalidAmount)
}

func TestWithdrawLeavesInOrderAlone(t *testing.T) {
	w := New(1)
	require.NoError(t, w.Deposit(7, 100))
	w.Account(7).AddToInOrder(70)

	require.ErrorIs(t, w.Withdraw(7, 31), ErrInsufficientFunds)
	require.NoError(t, w.Withdraw(7, 30))

	total, inOrder := w.Balance(7)
	require.Equal(t, int64(70), total)
	require.Equal(t, int64(70), inOrder)
}

func TestBalanceDoesNotCreateAccounts(t *testing.T) {
	w := New(1)
	total, inOrder := w.Balance(42)
	require.Zero(t, total)
	require.Zero(t, inOrder)
	require.Empty(t, w.State())
}

func TestManagerPairAndDuplicates(t *testing.T) {
	m := NewManager()

	_, err := m.Add(1)
	require.NoError(t, err)
	_, err = m.Add(1)
	require.ErrorIs(t, err, ErrWalletExists)

	_, err = m.Get(2)
	require.ErrorIs(t, err, ErrUnknownWallet)

	pair := m.Pair(market.CoinPair{Coin: 1, Base: 2})
	require.NotNil(t, pair.Coin)
	require.NotNil(t, pair.Base)

	_, err = m.Get(2)
	require.NoError(t, err)
}

func TestManagerStateRoundTrip(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.Deposit(2, 7, 100))
	require.NoError(t, m.Deposit(1, 9, 50))
	w, err := m.Get(2)
	require.NoError(t, err)
	w.Account(7).AddToInOrder(25)

	state := m.State()
	require.Len(t, state, 2)
	require.Equal(t, int32(1), state[0].AssetID)
	require.Equal(t, int32(2), state[1].AssetID)

	restored := RestoreManager(state)
	require.Equal(t, state, restored.State())

	rw, err := restored.Get(2)
	require.NoError(t, err)
	total, inOrder := rw.Balance(7)
	require.Equal(t, int64(100), total)
	require.Equal(t, int64(25), inOrder)
}
