package market

// stagedTrade is one trade recorded while matching; balances settle at
// commit.
type stagedTrade struct {
	buyUserID  int64
	sellUserID int64
	amount     int64
	price      int64
	fees       Fee
}

// stagedOrder is an order waiting to be inserted at a price level.
type stagedOrder struct {
	price int64
	order Order
}

// staging accumulates the effects of one command so that a failure at any
// point leaves the market untouched. Matching never mutates the books; it
// records counts here and the books are only rewritten at commit.
type staging struct {
	nextOrderID int64
	nextTradeID int64

	trades []stagedTrade

	// insertedLimits holds the command's resting remainder plus any limit
	// orders converted from triggered stops, in the order they were staged.
	insertedLimits []stagedOrder
	// insertedStop is set for stop-limit commands; mutually exclusive with
	// insertedLimits.
	insertedStop *stagedOrder

	// limitsConsumed counts opposite-book orders fully eaten so far; cascade
	// re-entries use it to resume the priority walk past them.
	limitsConsumed int
	// stopsTriggered counts same-side stops already converted.
	stopsTriggered int
	// lastFill is the partial fill carried by the first not-yet-consumed
	// opposite order.
	lastFill int64

	events []Event
}

func (s *staging) begin(orderID, tradeID int64) {
	s.nextOrderID = orderID
	s.nextTradeID = tradeID
}

func (s *staging) reset() {
	*s = staging{}
}
