package market

// Side is the direction of an order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// OrderType distinguishes the three order flavours the market accepts.
type OrderType uint8

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStopLimit
)

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeStopLimit:
		return "stop_limit"
	default:
		return "unknown"
	}
}

// Order is a single order in any flavour. Amount and Filled are in coin
// units; Price is base per coin. Price is zero on market orders. Trigger is
// set only on stop-limit orders: the order rests in the stop book keyed by
// Trigger and becomes a limit order at Price once a trade reaches it.
type Order struct {
	ID      int64
	UserID  int64
	Amount  int64
	Filled  int64
	Type    OrderType
	Price   int64
	Trigger int64
}

// Remaining is the unfilled portion of the order.
func (o Order) Remaining() int64 {
	return o.Amount - o.Filled
}

// Fee is the amount charged on one trade: the buyer pays in coin, the seller
// in base.
type Fee struct {
	Buy  int64
	Sell int64
}
