package wal

import "time"

type RecordType uint8

const (
	RecordPlace RecordType = iota
	RecordCancel
	RecordCancelAll
	RecordDeposit
	RecordWithdraw
	RecordCreateMarket
)

func (t RecordType) String() string {
	switch t {
	case RecordPlace:
		return "place"
	case RecordCancel:
		return "cancel"
	case RecordCancelAll:
		return "cancel_all"
	case RecordDeposit:
		return "deposit"
	case RecordWithdraw:
		return "withdraw"
	case RecordCreateMarket:
		return "create_market"
	default:
		return "unknown"
	}
}

// Record is one durable command. Data is an opaque payload; the service
// layer owns its encoding.
type Record struct {
	Type RecordType
	Seq  uint64
	Time int64
	Data []byte
}

func NewRecord(t RecordType, seq uint64, data []byte) *Record {
	return &Record{
		Type: t,
		Seq:  seq,
		Time: time.Now().UnixNano(),
		Data: data,
	}
}
