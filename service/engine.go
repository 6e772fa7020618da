// Package service coordinates the write path: one command at a time is
// logged to the WAL, applied to the matching engine and wallets, and its
// events handed to the outbox and the live trade feed.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"hermes/domain/market"
	"hermes/domain/wallet"
	"hermes/infra/kafka"
	"hermes/infra/metrics"
	"hermes/infra/outbox"
	"hermes/infra/wal"
)

// Engine is the only write entry point. Commands are serialised under one
// lock; the WAL append happens before the command is applied, so the log
// always covers what the in-memory state reflects.
type Engine struct {
	mu sync.Mutex

	registry *Registry
	wallets  *wallet.Manager
	wal      *wal.WAL
	outbox   *outbox.Outbox
	feed     *kafka.Producer // nil when the live feed is disabled
	metrics  *metrics.Metrics
	log      *zap.Logger

	lastSeq uint64
}

func NewEngine(
	registry *Registry,
	wallets *wallet.Manager,
	w *wal.WAL,
	ob *outbox.Outbox,
	feed *kafka.Producer,
	m *metrics.Metrics,
	log *zap.Logger,
) *Engine {
	return &Engine{
		registry: registry,
		wallets:  wallets,
		wal:      w,
		outbox:   ob,
		feed:     feed,
		metrics:  m,
		log:      log,
	}
}

// Result is what a committed command produced.
type Result struct {
	Seq     uint64
	OrderID int64
	IDs     []int64
	// ByMarket groups cancelled ids per pair for cross-market cancel-all.
	ByMarket map[string][]int64
	Events   []market.Event
}

// EventEnvelope is the outbox wire form of one engine event.
type EventEnvelope struct {
	Seq   uint64       `json:"seq"`
	Index uint32       `json:"index"`
	Pair  string       `json:"pair"`
	Event market.Event `json:"event"`
}

func (e *Engine) PlaceOrder(ctx context.Context, pair market.CoinPair, side market.Side, typ market.OrderType, userID, amount, price, trigger int64) (*Result, error) {
	return e.submit(ctx, &Command{
		Op:      OpPlace,
		Pair:    pair,
		Side:    side,
		Type:    typ,
		UserID:  userID,
		Amount:  amount,
		Price:   price,
		Trigger: trigger,
	})
}

func (e *Engine) CancelOrder(ctx context.Context, pair market.CoinPair, side market.Side, typ market.OrderType, orderID, price int64) (*Result, error) {
	return e.submit(ctx, &Command{
		Op:      OpCancel,
		Pair:    pair,
		Side:    side,
		Type:    typ,
		OrderID: orderID,
		Price:   price,
	})
}

func (e *Engine) CancelAllUser(ctx context.Context, pair market.CoinPair, userID int64) (*Result, error) {
	return e.submit(ctx, &Command{
		Op:     OpCancelAll,
		Pair:   pair,
		UserID: userID,
	})
}

// CancelAllUserEverywhere cancels the user's resting orders in every market.
// The zero pair marks the command as cross-market in the log.
func (e *Engine) CancelAllUserEverywhere(ctx context.Context, userID int64) (*Result, error) {
	return e.submit(ctx, &Command{
		Op:     OpCancelAll,
		UserID: userID,
	})
}

func (e *Engine) Deposit(ctx context.Context, assetID int32, userID, amount int64) (*Result, error) {
	return e.submit(ctx, &Command{
		Op:      OpDeposit,
		AssetID: assetID,
		UserID:  userID,
		Amount:  amount,
	})
}

func (e *Engine) Withdraw(ctx context.Context, assetID int32, userID, amount int64) (*Result, error) {
	return e.submit(ctx, &Command{
		Op:      OpWithdraw,
		AssetID: assetID,
		UserID:  userID,
		Amount:  amount,
	})
}

func (e *Engine) CreateMarket(ctx context.Context, pair market.CoinPair, cfg market.Config) (*Result, error) {
	return e.submit(ctx, &Command{
		Op:                 OpCreateMarket,
		Pair:               pair,
		FeeDivisor:         cfg.FeeDivisor,
		MaxOpenLimitOrders: cfg.MaxOpenLimitOrders,
		MaxOpenStopOrders:  cfg.MaxOpenStopOrders,
	})
}

func (e *Engine) submit(ctx context.Context, cmd *Command) (*Result, error) {
	start := time.Now()

	e.mu.Lock()
	defer e.mu.Unlock()

	payload, err := cmd.encode()
	if err != nil {
		return nil, err
	}

	seq := e.lastSeq + 1
	if err := e.wal.Append(wal.NewRecord(cmd.recordType(), seq, payload)); err != nil {
		return nil, fmt.Errorf("wal append: %w", err)
	}
	e.lastSeq = seq

	res, err := e.apply(cmd)

	outcome := "ok"
	if err != nil {
		outcome = "rejected"
		var merr *market.Error
		if errors.As(err, &merr) {
			e.metrics.RejectsTotal.WithLabelValues(merr.Kind.String()).Inc()
		}
	}
	e.metrics.CommandsTotal.WithLabelValues(cmd.Op.String(), outcome).Inc()
	e.metrics.CommandSeconds.Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}

	res.Seq = seq
	e.publish(ctx, cmd.Pair, seq, res.Events)
	e.metrics.RestingOrders.Set(float64(e.restingCount()))
	return res, nil
}

// apply runs a decoded command against the in-memory state. Replay goes
// through the same switch, which is what makes recovery deterministic.
func (e *Engine) apply(cmd *Command) (*Result, error) {
	switch cmd.Op {
	case OpPlace:
		m, err := e.registry.Get(cmd.Pair)
		if err != nil {
			return nil, err
		}
		o := market.Order{
			UserID:  cmd.UserID,
			Amount:  cmd.Amount,
			Type:    cmd.Type,
			Price:   cmd.Price,
			Trigger: cmd.Trigger,
		}
		events, err := m.Process(cmd.Side, o, e.wallets.Pair(cmd.Pair))
		if err != nil {
			return nil, err
		}
		return &Result{OrderID: m.NextOrderID() - 1, Events: events}, nil

	case OpCancel:
		m, err := e.registry.Get(cmd.Pair)
		if err != nil {
			return nil, err
		}
		if err := m.Cancel(cmd.Side, cmd.Type, cmd.OrderID, cmd.Price, e.wallets.Pair(cmd.Pair)); err != nil {
			return nil, err
		}
		return &Result{OrderID: cmd.OrderID}, nil

	case OpCancelAll:
		if cmd.Pair == (market.CoinPair{}) {
			res := &Result{ByMarket: make(map[string][]int64)}
			for _, m := range e.registry.All() {
				ids, err := m.CancelAllUser(cmd.UserID, e.wallets.Pair(m.Pair()))
				if err != nil {
					return nil, err
				}
				if len(ids) > 0 {
					res.ByMarket[m.Pair().String()] = ids
					res.IDs = append(res.IDs, ids...)
				}
			}
			return res, nil
		}
		m, err := e.registry.Get(cmd.Pair)
		if err != nil {
			return nil, err
		}
		ids, err := m.CancelAllUser(cmd.UserID, e.wallets.Pair(cmd.Pair))
		if err != nil {
			return nil, err
		}
		return &Result{IDs: ids}, nil

	case OpDeposit:
		if err := e.wallets.Deposit(cmd.AssetID, cmd.UserID, cmd.Amount); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case OpWithdraw:
		if err := e.wallets.Withdraw(cmd.AssetID, cmd.UserID, cmd.Amount); err != nil {
			return nil, err
		}
		return &Result{}, nil

	case OpCreateMarket:
		cfg := market.Config{
			FeeDivisor:         cmd.FeeDivisor,
			MaxOpenLimitOrders: cmd.MaxOpenLimitOrders,
			MaxOpenStopOrders:  cmd.MaxOpenStopOrders,
		}
		if _, err := e.registry.Create(cmd.Pair, cfg); err != nil {
			return nil, err
		}
		return &Result{}, nil

	default:
		return nil, fmt.Errorf("unknown command op %d", cmd.Op)
	}
}

// publish stores every event in the outbox and pushes trades to the live
// feed. Outbox failures are logged, not returned: the command is already
// committed and the books have moved on.
func (e *Engine) publish(ctx context.Context, pair market.CoinPair, seq uint64, events []market.Event) {
	trades := 0
	for i, ev := range events {
		if ev.Type == market.EventNewTrade {
			trades++
			e.metrics.FeeUnitsTotal.WithLabelValues("buy").Add(float64(ev.Fees.Buy))
			e.metrics.FeeUnitsTotal.WithLabelValues("sell").Add(float64(ev.Fees.Sell))
		}
		data, err := json.Marshal(EventEnvelope{
			Seq:   seq,
			Index: uint32(i),
			Pair:  pair.String(),
			Event: ev,
		})
		if err != nil {
			e.log.Error("event encode failed", zap.Uint64("seq", seq), zap.Error(err))
			continue
		}
		if err := e.outbox.Put(seq, uint32(i), data); err != nil {
			e.log.Error("outbox put failed", zap.Uint64("seq", seq), zap.Error(err))
		}
	}

	if trades > 0 {
		e.metrics.TradesTotal.Add(float64(trades))
		if e.feed != nil {
			if err := e.feed.PublishTrades(ctx, pair, seq, events); err != nil {
				e.log.Warn("trade feed publish failed", zap.Uint64("seq", seq), zap.Error(err))
			}
		}
	}
}

func (e *Engine) restingCount() int {
	total := 0
	for _, m := range e.registry.All() {
		for _, side := range []market.Side{market.Buy, market.Sell} {
			total += len(m.RestingOrders(side, market.OrderTypeLimit))
			total += len(m.RestingOrders(side, market.OrderTypeStopLimit))
		}
	}
	return total
}

// LastSeq is the sequence of the last logged command.
func (e *Engine) LastSeq() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeq
}

// Market returns the market for a pair, for read-only queries.
func (e *Engine) Market(pair market.CoinPair) (*market.Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Get(pair)
}

// Book returns the resting orders of one side and type of a market.
func (e *Engine) Book(pair market.CoinPair, side market.Side, typ market.OrderType) ([]market.BookEntry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, err := e.registry.Get(pair)
	if err != nil {
		return nil, err
	}
	return m.RestingOrders(side, typ), nil
}

// Balance returns a user's (total, inOrder) for one asset.
func (e *Engine) Balance(assetID int32, userID int64) (total, inOrder int64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	w, err := e.wallets.Get(assetID)
	if err != nil {
		return 0, 0, err
	}
	total, inOrder = w.Balance(userID)
	return total, inOrder, nil
}

// Markets lists the open pairs.
func (e *Engine) Markets() []market.CoinPair {
	e.mu.Lock()
	defer e.mu.Unlock()
	all := e.registry.All()
	pairs := make([]market.CoinPair, 0, len(all))
	for _, m := range all {
		pairs = append(pairs, m.Pair())
	}
	return pairs
}
