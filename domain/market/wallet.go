package market

// Account is one user's balance in a single asset. Available is the total
// minus whatever is reserved for resting orders.
type Account interface {
	Available() int64
	AddToTotal(v int64)
	RemoveFromTotal(v int64)
	AddToInOrder(v int64)
	RemoveFromInOrder(v int64)
}

// Wallet hands out per-user accounts for one asset.
type Wallet interface {
	Account(userID int64) Account
}

// MarketWallets pairs the two wallets a market settles against: sells spend
// from Coin, buys spend from Base.
type MarketWallets struct {
	Coin Wallet
	Base Wallet
}
