// Package kafka is the live trade feed: fire-and-forget publication of
// committed trades, keyed by market so one pair's trades stay ordered
// within a partition. Durable event delivery goes through the outbox and
// its broadcaster instead.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"hermes/domain/market"
)

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// TradeMessage is the feed's wire form of one trade.
type TradeMessage struct {
	Pair        string     `json:"pair"`
	Seq         uint64     `json:"seq"`
	TradeID     int64      `json:"trade_id"`
	BuyOrderID  int64      `json:"buy_order_id"`
	SellOrderID int64      `json:"sell_order_id"`
	Amount      int64      `json:"amount"`
	Price       int64      `json:"price"`
	Fees        market.Fee `json:"fees"`
}

// PublishTrades sends the trade events of one committed command.
func (p *Producer) PublishTrades(ctx context.Context, pair market.CoinPair, seq uint64, events []market.Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		if e.Type != market.EventNewTrade {
			continue
		}
		value, err := json.Marshal(TradeMessage{
			Pair:        pair.String(),
			Seq:         seq,
			TradeID:     e.TradeID,
			BuyOrderID:  e.BuyOrderID,
			SellOrderID: e.SellOrderID,
			Amount:      e.Amount,
			Price:       e.Price,
			Fees:        e.Fees,
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(pair.String()),
			Value: value,
		})
	}
	if len(msgs) == 0 {
		return nil
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
