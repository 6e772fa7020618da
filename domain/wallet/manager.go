package wallet

import (
	"sort"

	"hermes/domain/market"
)

// Manager owns one wallet per asset and hands markets the (coin, base) pair
// they settle against.
type Manager struct {
	wallets map[int32]*Wallet
}

func NewManager() *Manager {
	return &Manager{wallets: make(map[int32]*Wallet)}
}

// Add creates the wallet for an asset.
func (m *Manager) Add(assetID int32) (*Wallet, error) {
	if _, ok := m.wallets[assetID]; ok {
		return nil, ErrWalletExists
	}
	w := New(assetID)
	m.wallets[assetID] = w
	return w, nil
}

// Get returns the wallet for an asset.
func (m *Manager) Get(assetID int32) (*Wallet, error) {
	w, ok := m.wallets[assetID]
	if !ok {
		return nil, ErrUnknownWallet
	}
	return w, nil
}

// GetOrCreate returns the wallet for an asset, creating it on first touch.
func (m *Manager) GetOrCreate(assetID int32) *Wallet {
	if w, ok := m.wallets[assetID]; ok {
		return w
	}
	w := New(assetID)
	m.wallets[assetID] = w
	return w
}

// Pair returns the wallets a market settles against.
func (m *Manager) Pair(p market.CoinPair) market.MarketWallets {
	return market.MarketWallets{
		Coin: m.GetOrCreate(p.Coin),
		Base: m.GetOrCreate(p.Base),
	}
}

// Deposit credits a user in one asset, creating the wallet if needed.
func (m *Manager) Deposit(assetID int32, userID, amount int64) error {
	return m.GetOrCreate(assetID).Deposit(userID, amount)
}

// Withdraw debits a user's available balance in one asset.
func (m *Manager) Withdraw(assetID int32, userID, amount int64) error {
	w, err := m.Get(assetID)
	if err != nil {
		return err
	}
	return w.Withdraw(userID, amount)
}

// WalletState is the serialisable image of one asset's wallet.
type WalletState struct {
	AssetID  int32
	Accounts []AccountState
}

// State returns every wallet sorted by asset id.
func (m *Manager) State() []WalletState {
	ids := make([]int32, 0, len(m.wallets))
	for id := range m.wallets {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	states := make([]WalletState, 0, len(ids))
	for _, id := range ids {
		states = append(states, WalletState{AssetID: id, Accounts: m.wallets[id].State()})
	}
	return states
}

// RestoreManager rebuilds a manager from a captured image.
func RestoreManager(states []WalletState) *Manager {
	m := NewManager()
	for _, ws := range states {
		w := New(ws.AssetID)
		w.restore(ws.Accounts)
		m.wallets[ws.AssetID] = w
	}
	return m
}
