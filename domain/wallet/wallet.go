// Package wallet is the balance ledger the matching engine settles against:
// one Wallet per asset, one Account per user within it. The engine only sees
// the small interfaces in domain/market; deposits and withdrawals live here.
package wallet

import (
	"errors"
	"sort"

	"hermes/domain/market"
)

var (
	ErrWalletExists      = errors.New("wallet already exists for this asset")
	ErrUnknownWallet     = errors.New("no wallet for this asset")
	ErrInsufficientFunds = errors.New("not enough available balance")
	ErrInvalidAmount     = errors.New("amount must be positive")
)

// Account is one user's holding of a single asset. InOrder is the slice of
// the total reserved for resting orders.
type Account struct {
	userID  int64
	total   int64
	inOrder int64
}

func (a *Account) UserID() int64  { return a.userID }
func (a *Account) Total() int64   { return a.total }
func (a *Account) InOrder() int64 { return a.inOrder }

// Available is what the user can still spend or withdraw.
func (a *Account) Available() int64 { return a.total - a.inOrder }

func (a *Account) AddToTotal(v int64)        { a.total += v }
func (a *Account) RemoveFromTotal(v int64)   { a.total -= v }
func (a *Account) AddToInOrder(v int64)      { a.inOrder += v }
func (a *Account) RemoveFromInOrder(v int64) { a.inOrder -= v }

// Wallet holds every user's account for one asset.
type Wallet struct {
	assetID  int32
	accounts map[int64]*Account
}

func New(assetID int32) *Wallet {
	return &Wallet{assetID: assetID, accounts: make(map[int64]*Account)}
}

func (w *Wallet) AssetID() int32 { return w.assetID }

func (w *Wallet) account(userID int64) *Account {
	a, ok := w.accounts[userID]
	if !ok {
		a = &Account{userID: userID}
		w.accounts[userID] = a
	}
	return a
}

// Account hands the engine a user's account, creating an empty one on first
// touch.
func (w *Wallet) Account(userID int64) market.Account {
	return w.account(userID)
}

// Balance returns the user's (total, inOrder) without creating an account.
func (w *Wallet) Balance(userID int64) (total, inOrder int64) {
	if a, ok := w.accounts[userID]; ok {
		return a.total, a.inOrder
	}
	return 0, 0
}

// Deposit credits the user's total balance.
func (w *Wallet) Deposit(userID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	w.account(userID).AddToTotal(amount)
	return nil
}

// Withdraw debits the user's total balance; only the available part can
// leave.
func (w *Wallet) Withdraw(userID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	a, ok := w.accounts[userID]
	if !ok || a.Available() < amount {
		return ErrInsufficientFunds
	}
	a.RemoveFromTotal(amount)
	return nil
}

// AccountState is the serialisable image of one account.
type AccountState struct {
	UserID  int64
	Total   int64
	InOrder int64
}

// State returns every account sorted by user id, so snapshots are stable.
func (w *Wallet) State() []AccountState {
	states := make([]AccountState, 0, len(w.accounts))
	for _, a := range w.accounts {
		states = append(states, AccountState{UserID: a.userID, Total: a.total, InOrder: a.inOrder})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].UserID < states[j].UserID })
	return states
}

func (w *Wallet) restore(states []AccountState) {
	for _, s := range states {
		w.accounts[s.UserID] = &Account{userID: s.UserID, total: s.Total, inOrder: s.InOrder}
	}
}
