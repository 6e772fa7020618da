// Package outbox is the durable event outbox: every event a committed
// command produced is stored here keyed by (command seq, event index), and a
// broadcaster drains it to the message bus with at-least-once delivery.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record is one stored event and its delivery state.
type Record struct {
	Seq         uint64
	Index       uint32
	State       State
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// value encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeValue(r *Record) []byte {
	buf := make([]byte, 1+4+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeValue(b []byte) (*Record, error) {
	if len(b) < 13 {
		return nil, errors.New("outbox value too short")
	}
	payload := make([]byte, len(b)-13)
	copy(payload, b[13:])
	return &Record{
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Payload:     payload,
	}, nil
}

func keyFor(seq uint64, index uint32) []byte {
	return []byte(fmt.Sprintf("event/%020d/%06d", seq, index))
}

func parseKey(b []byte) (seq uint64, index uint32, err error) {
	_, err = fmt.Sscanf(string(b), "event/%d/%d", &seq, &index)
	return seq, index, err
}

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // events must survive a crash
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Put stores a freshly committed event.
func (o *Outbox) Put(seq uint64, index uint32, payload []byte) error {
	rec := &Record{State: StateNew, Payload: payload}
	return o.db.Set(keyFor(seq, index), encodeValue(rec), pebble.Sync)
}

// Get returns one record.
func (o *Outbox) Get(seq uint64, index uint32) (*Record, error) {
	val, closer, err := o.db.Get(keyFor(seq, index))
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	rec, err := decodeValue(val)
	if err != nil {
		return nil, err
	}
	rec.Seq = seq
	rec.Index = index
	return rec, nil
}

func (o *Outbox) setState(seq uint64, index uint32, state State) error {
	rec, err := o.Get(seq, index)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq, index), encodeValue(rec), pebble.Sync)
}

// MarkSent records that delivery was attempted.
func (o *Outbox) MarkSent(seq uint64, index uint32) error {
	return o.setState(seq, index, StateSent)
}

// MarkAcked records that the bus confirmed the event.
func (o *Outbox) MarkAcked(seq uint64, index uint32) error {
	return o.setState(seq, index, StateAcked)
}

// MarkFailed records a delivery failure; the record stays eligible for the
// next drain.
func (o *Outbox) MarkFailed(seq uint64, index uint32) error {
	return o.setState(seq, index, StateFailed)
}

// ScanPending visits every record still awaiting an ack, in key order.
// SENT records are included: a crash between send and ack means the event
// may or may not have reached the bus, and at-least-once resolves that by
// sending again.
func (o *Outbox) ScanPending(fn func(*Record) error) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeValue(iter.Value())
		if err != nil {
			return err
		}
		if rec.State == StateAcked {
			continue
		}

		seq, index, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		rec.Seq = seq
		rec.Index = index

		if err := fn(rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// DeleteAckedUpTo garbage-collects acked events from commands at or below
// seq. Callers pass the latest snapshot's sequence.
func (o *Outbox) DeleteAckedUpTo(seq uint64) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeValue(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != StateAcked {
			continue
		}
		recSeq, _, err := parseKey(iter.Key())
		if err != nil {
			return err
		}
		if recSeq > seq {
			break
		}
		key := append([]byte(nil), iter.Key()...)
		if err := o.db.Delete(key, pebble.Sync); err != nil {
			return err
		}
	}
	return iter.Error()
}
