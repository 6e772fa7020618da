package market

// EventType tags one observable effect of a committed command.
type EventType uint8

const (
	EventNewTrade EventType = iota + 1
	EventOrderFilled
	EventPartialFill
	EventNewOpenOrder
	EventNewFilledOrder
	EventStopLimitTriggered
)

func (t EventType) String() string {
	switch t {
	case EventNewTrade:
		return "new_trade"
	case EventOrderFilled:
		return "order_filled"
	case EventPartialFill:
		return "partial_fill"
	case EventNewOpenOrder:
		return "new_open_order"
	case EventNewFilledOrder:
		return "new_filled_order"
	case EventStopLimitTriggered:
		return "stop_limit_triggered"
	default:
		return "unknown"
	}
}

// Event is one effect of a committed command. Only the fields relevant to
// the type are set. Events are buffered while a command runs and surface
// only when it commits; a rejected command produces none.
type Event struct {
	Type EventType `json:"type"`

	// NewTrade and StopLimitTriggered.
	TradeID     int64 `json:"trade_id,omitempty"`
	BuyOrderID  int64 `json:"buy_order_id,omitempty"`
	SellOrderID int64 `json:"sell_order_id,omitempty"`
	Fees        Fee   `json:"fees,omitempty"`

	// Order-centric events.
	OrderID   int64     `json:"order_id,omitempty"`
	UserID    int64     `json:"user_id,omitempty"`
	Side      Side      `json:"side"`
	OrderType OrderType `json:"order_type"`

	Amount  int64 `json:"amount,omitempty"`
	Filled  int64 `json:"filled,omitempty"`
	Price   int64 `json:"price,omitempty"`
	Trigger int64 `json:"trigger,omitempty"`
}

func tradeEvent(tradeID, buyID, sellID, amount, price int64, fees Fee) Event {
	return Event{
		Type:        EventNewTrade,
		TradeID:     tradeID,
		BuyOrderID:  buyID,
		SellOrderID: sellID,
		Amount:      amount,
		Price:       price,
		Fees:        fees,
	}
}

func orderFilledEvent(orderID int64) Event {
	return Event{Type: EventOrderFilled, OrderID: orderID}
}

func partialFillEvent(orderID, amount int64) Event {
	return Event{Type: EventPartialFill, OrderID: orderID, Amount: amount}
}

func openOrderEvent(side Side, o Order) Event {
	return Event{
		Type:      EventNewOpenOrder,
		OrderID:   o.ID,
		UserID:    o.UserID,
		Side:      side,
		OrderType: o.Type,
		Amount:    o.Amount,
		Filled:    o.Filled,
		Price:     o.Price,
		Trigger:   o.Trigger,
	}
}

func filledOrderEvent(side Side, o Order) Event {
	return Event{
		Type:      EventNewFilledOrder,
		OrderID:   o.ID,
		UserID:    o.UserID,
		Side:      side,
		OrderType: o.Type,
		Amount:    o.Amount,
		Filled:    o.Filled,
		Price:     o.Price,
	}
}

func stopTriggeredEvent(orderID, tradeID int64) Event {
	return Event{Type: EventStopLimitTriggered, OrderID: orderID, TradeID: tradeID}
}
