package market

// State is the serialisable image of a market: the four books in priority
// order plus the id counters. The user index is derived, not stored.
type State struct {
	Pair        CoinPair
	Config      Config
	NextOrderID int64
	NextTradeID int64
	BuyLimits   []BookEntry
	SellLimits  []BookEntry
	BuyStops    []BookEntry
	SellStops   []BookEntry
}

// State captures the market. The result shares nothing with the live books.
func (m *Market) State() *State {
	return &State{
		Pair:        m.pair,
		Config:      m.cfg,
		NextOrderID: m.nextOrderID,
		NextTradeID: m.nextTradeID,
		BuyLimits:   m.buyLimits.flatten(),
		SellLimits:  m.sellLimits.flatten(),
		BuyStops:    m.buyStops.flatten(),
		SellStops:   m.sellStops.flatten(),
	}
}

// FromState rebuilds a market from a captured image, reconstructing the user
// index from the books.
func FromState(s *State) (*Market, error) {
	m, err := New(s.Pair, s.Config)
	if err != nil {
		return nil, err
	}
	for _, e := range s.BuyLimits {
		m.ForceAdd(Buy, e.Order)
	}
	for _, e := range s.SellLimits {
		m.ForceAdd(Sell, e.Order)
	}
	for _, e := range s.BuyStops {
		m.ForceAdd(Buy, e.Order)
	}
	for _, e := range s.SellStops {
		m.ForceAdd(Sell, e.Order)
	}
	m.nextOrderID = s.NextOrderID
	m.nextTradeID = s.NextTradeID
	return m, nil
}
