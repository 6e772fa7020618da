package service

import (
	"bytes"
	"encoding/gob"

	"hermes/domain/market"
	"hermes/infra/wal"
)

// Op is the kind of state-changing command.
type Op uint8

const (
	OpPlace Op = iota
	OpCancel
	OpCancelAll
	OpDeposit
	OpWithdraw
	OpCreateMarket
)

func (o Op) String() string {
	switch o {
	case OpPlace:
		return "place"
	case OpCancel:
		return "cancel"
	case OpCancelAll:
		return "cancel_all"
	case OpDeposit:
		return "deposit"
	case OpWithdraw:
		return "withdraw"
	case OpCreateMarket:
		return "create_market"
	default:
		return "unknown"
	}
}

// Command is the single unit of replication: it is encoded into the WAL
// before it is applied, and replay decodes it back through the same apply
// path. Only the fields the Op needs are set.
type Command struct {
	Op   Op
	Pair market.CoinPair

	// place / cancel / cancel_all
	Side    market.Side
	Type    market.OrderType
	UserID  int64
	Amount  int64
	Price   int64
	Trigger int64
	OrderID int64

	// deposit / withdraw
	AssetID int32

	// create_market
	FeeDivisor         int64
	MaxOpenLimitOrders int32
	MaxOpenStopOrders  int32
}

func (c *Command) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCommand(data []byte) (*Command, error) {
	var c Command
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Command) recordType() wal.RecordType {
	switch c.Op {
	case OpCancel:
		return wal.RecordCancel
	case OpCancelAll:
		return wal.RecordCancelAll
	case OpDeposit:
		return wal.RecordDeposit
	case OpWithdraw:
		return wal.RecordWithdraw
	case OpCreateMarket:
		return wal.RecordCreateMarket
	default:
		return wal.RecordPlace
	}
}
