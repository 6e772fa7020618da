package service

import (
	"errors"
	"sort"

	"hermes/domain/market"
)

var (
	ErrMarketExists  = errors.New("market already exists for this pair")
	ErrUnknownMarket = errors.New("no market for this pair")
)

// Registry holds every open market, keyed by pair.
type Registry struct {
	markets map[market.CoinPair]*market.Market
}

func NewRegistry() *Registry {
	return &Registry{markets: make(map[market.CoinPair]*market.Market)}
}

func (r *Registry) Create(pair market.CoinPair, cfg market.Config) (*market.Market, error) {
	if _, ok := r.markets[pair]; ok {
		return nil, ErrMarketExists
	}
	m, err := market.New(pair, cfg)
	if err != nil {
		return nil, err
	}
	r.markets[pair] = m
	return m, nil
}

func (r *Registry) Get(pair market.CoinPair) (*market.Market, error) {
	m, ok := r.markets[pair]
	if !ok {
		return nil, ErrUnknownMarket
	}
	return m, nil
}

func (r *Registry) put(m *market.Market) {
	r.markets[m.Pair()] = m
}

// All returns the markets in a stable pair order.
func (r *Registry) All() []*market.Market {
	out := make([]*market.Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Pair(), out[j].Pair()
		if a.Coin != b.Coin {
			return a.Coin < b.Coin
		}
		return a.Base < b.Base
	})
	return out
}
