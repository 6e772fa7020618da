// Package market implements a single-market price-time-priority matching
// engine: four books (buy/sell limit, buy/sell stop-limit), a per-user order
// index, divisor fees and a staged commit so every command is all-or-nothing.
//
// A Market is not safe for concurrent use; callers run all commands for one
// market on a single goroutine, which keeps matching deterministic.
package market

// Market is one trading pair's books plus the id counters that number its
// orders and trades.
type Market struct {
	pair CoinPair
	cfg  Config

	buyLimits  bookSide
	sellLimits bookSide
	buyStops   bookSide
	sellStops  bookSide

	users userIndex

	nextOrderID int64
	nextTradeID int64

	st staging
}

// New creates an empty market for the pair.
func New(pair CoinPair, cfg Config) (*Market, error) {
	if pair.Coin == pair.Base {
		return nil, newError(KindSameAssetPair, "base and coin asset ids are the same")
	}
	return &Market{
		pair:        pair,
		cfg:         cfg,
		buyLimits:   newBookSide(descending),
		sellLimits:  newBookSide(ascending),
		buyStops:    newBookSide(ascending),
		sellStops:   newBookSide(descending),
		users:       make(userIndex),
		nextOrderID: 1,
		nextTradeID: 1,
	}, nil
}

func (m *Market) Pair() CoinPair { return m.pair }

func (m *Market) Config() Config { return m.cfg }

func (m *Market) NextOrderID() int64 { return m.nextOrderID }

func (m *Market) NextTradeID() int64 { return m.nextTradeID }

// SetNextOrderID overrides the order id counter; used when restoring state.
func (m *Market) SetNextOrderID(id int64) { m.nextOrderID = id }

// SetNextTradeID overrides the trade id counter; used when restoring state.
func (m *Market) SetNextTradeID(id int64) { m.nextTradeID = id }

func (m *Market) limitBook(side Side) *bookSide {
	if side == Buy {
		return &m.buyLimits
	}
	return &m.sellLimits
}

func (m *Market) stopBook(side Side) *bookSide {
	if side == Buy {
		return &m.buyStops
	}
	return &m.sellStops
}

// reserveAccount is the account a side's orders reserve funds in: buys hold
// base, sells hold coin.
func (m *Market) reserveAccount(side Side, userID int64, w MarketWallets) Account {
	if side == Buy {
		return w.Base.Account(userID)
	}
	return w.Coin.Account(userID)
}

// Process runs one order through the market. On success it returns the
// events the command produced, in occurrence order. On failure nothing is
// observable: books, index, counters and wallets are exactly as before.
func (m *Market) Process(side Side, o Order, w MarketWallets) ([]Event, error) {
	m.st.begin(m.nextOrderID, m.nextTradeID)

	if err := m.validateFunds(side, o, w); err != nil {
		m.st.reset()
		return nil, err
	}
	if err := m.validateNoSelfTradeRisk(side, o); err != nil {
		m.st.reset()
		return nil, err
	}

	o.ID = m.st.nextOrderID
	reserve := o.Remaining()

	if err := m.matchOrder(side, &o); err != nil {
		m.st.reset()
		return nil, err
	}
	m.st.nextOrderID++

	return m.commit(side, reserve, o.UserID, w), nil
}

// validateFunds checks the user can cover the order out of their available
// balance. Sells need the remaining coin amount; buys need the scaled-down
// cost at the limit price, or a dry run against the book for market buys.
func (m *Market) validateFunds(side Side, o Order, w MarketWallets) error {
	if side == Sell {
		if w.Coin.Account(o.UserID).Available() < o.Remaining() {
			return newError(KindInsufficientFunds, "not enough coin to place this sell order")
		}
		return nil
	}
	available := w.Base.Account(o.UserID).Available()
	if o.Type == OrderTypeMarket {
		return m.dryRunMarketBuy(o, available)
	}
	if ScaleMul(o.Remaining(), o.Price) > available {
		return newError(KindInsufficientFunds, "not enough base to place this buy order")
	}
	return nil
}

// dryRunMarketBuy walks the sell book pricing out the order without touching
// anything. Whether the book is deep enough is not decided here; an
// unfillable order is rejected during matching.
func (m *Market) dryRunMarketBuy(o Order, available int64) error {
	need := o.Remaining()
	balance := available
	for _, lvl := range m.sellLimits.levels {
		for i := range lvl.orders {
			maker := &lvl.orders[i]
			if maker.UserID == o.UserID {
				return newError(KindTradeSameUser, "cannot buy your own sell order")
			}
			if maker.Remaining() > need {
				if ScaleMul(need, lvl.price) > balance {
					return newError(KindInsufficientFunds, "not enough base to fill this market buy")
				}
				return nil
			}
			cost := ScaleMul(maker.Remaining(), lvl.price)
			if cost > balance {
				return newError(KindInsufficientFunds, "not enough base to fill this market buy")
			}
			balance -= cost
			need -= maker.Remaining()
		}
	}
	return nil
}

// validateNoSelfTradeRisk rejects orders that could later cross one of the
// user's own resting orders: a limit order against their opposite-side
// stops (which would trigger into limit orders), and a stop-limit order
// against their opposite-side limits (which its triggered form could hit).
func (m *Market) validateNoSelfTradeRisk(side Side, o Order) error {
	u, ok := m.users[o.UserID]
	if !ok {
		return nil
	}

	var against OrderType
	switch o.Type {
	case OrderTypeLimit:
		against = OrderTypeStopLimit
	case OrderTypeStopLimit:
		against = OrderTypeLimit
	default:
		return nil
	}

	list := *u.list(side.Opposite(), against)
	ord := listOrdering(side.Opposite(), against)
	if hasAtOrBeyond(list, o.Price, ord) {
		return newError(KindIncompatibleOrders,
			"order could later trade against one of the user's own resting orders")
	}
	return nil
}

func (m *Market) matchOrder(side Side, o *Order) error {
	switch o.Type {
	case OrderTypeMarket:
		return m.matchMarket(side, o)
	case OrderTypeLimit:
		return m.matchLimit(side, o)
	case OrderTypeStopLimit:
		return m.placeStopLimit(side, o)
	default:
		return newError(KindInternal, "unknown order type")
	}
}

func (m *Market) matchMarket(side Side, o *Order) error {
	lastPrice, traded, err := m.consumeBook(side, o)
	if err != nil {
		return err
	}
	if o.Remaining() != 0 {
		return newError(KindMarketOrderUnfilled, "market order cannot be fully filled")
	}
	return m.cascade(side, lastPrice, traded)
}

func (m *Market) matchLimit(side Side, o *Order) error {
	var (
		lastPrice int64
		traded    bool
		err       error
	)
	if !m.limitBook(side.Opposite()).empty() {
		lastPrice, traded, err = m.consumeBook(side, o)
		if err != nil {
			return err
		}
	}
	if o.Remaining() != 0 {
		if err := m.stageOpen(side, *o); err != nil {
			return err
		}
		m.st.insertedLimits = append(m.st.insertedLimits, stagedOrder{price: o.Price, order: *o})
	}
	return m.cascade(side, lastPrice, traded)
}

func (m *Market) placeStopLimit(side Side, o *Order) error {
	opp := m.limitBook(side.Opposite())
	best, ok := opp.bestPrice()
	if !ok {
		return newError(KindNoOrdersForStopLimit, "no resting orders to measure the stop against")
	}
	// A trigger already inside the opposite top of book would fire on the
	// very next trade.
	if opp.ord.before(o.Trigger, best) {
		return newError(KindStopPriceOutOfRange, "stop price is already beyond the best opposite price")
	}
	m.st.insertedStop = &stagedOrder{price: o.Trigger, order: *o}
	return m.stageOpen(side, *o)
}

// stageOpen checks the owner's open-order cap and records the open event.
// Caps count committed orders only; orders staged earlier in the same
// command do not count against it.
func (m *Market) stageOpen(side Side, o Order) error {
	if o.Type == OrderTypeLimit {
		if m.users.limitCount(o.UserID) >= int(m.cfg.MaxOpenLimitOrders) {
			return newError(KindTooManyOpenOrders, "maximum number of open limit orders reached")
		}
	} else {
		if m.users.stopCount(o.UserID) >= int(m.cfg.MaxOpenStopOrders) {
			return newError(KindTooManyOpenOrders, "maximum number of open stop-limit orders reached")
		}
	}
	m.st.events = append(m.st.events, openOrderEvent(side, o))
	return nil
}

// consumeBook eats into the opposite limit book in priority order. The books
// are not rewritten while a command runs, so the walk first skips whatever
// this command's earlier passes already consumed.
func (m *Market) consumeBook(side Side, o *Order) (lastPrice int64, traded bool, err error) {
	book := m.limitBook(side.Opposite())
	skip := m.st.limitsConsumed

	li := 0
	for ; li < len(book.levels) && skip > 0; li++ {
		lvl := book.levels[li]
		if skip >= len(lvl.orders) {
			skip -= len(lvl.orders)
			continue
		}
		// Resume inside a partially consumed level. Its price was accepted
		// by the pass that consumed into it, so there is no price gate here.
		_, err = m.consumeLevel(side, o, lvl, skip, &lastPrice, &traded)
		if err != nil {
			return 0, false, err
		}
		li++
		break
	}

	if o.Remaining() == 0 {
		return lastPrice, traded, nil
	}

	for ; li < len(book.levels); li++ {
		lvl := book.levels[li]
		// Market orders take any price; limit orders stop at the first level
		// beyond their own price.
		if o.Type != OrderTypeMarket && book.ord.before(o.Price, lvl.price) {
			break
		}
		done, cerr := m.consumeLevel(side, o, lvl, 0, &lastPrice, &traded)
		if cerr != nil {
			return 0, false, cerr
		}
		if done {
			break
		}
	}
	return lastPrice, traded, nil
}

// consumeLevel trades the order against one level starting at the given
// offset. It returns true once the incoming order is fully filled.
func (m *Market) consumeLevel(side Side, o *Order, lvl *level, start int, lastPrice *int64, traded *bool) (bool, error) {
	for i := start; i < len(lvl.orders); i++ {
		maker := &lvl.orders[i]
		if maker.UserID == o.UserID {
			return false, newError(KindTradeSameUser, "cannot trade your own order")
		}

		// The first maker after the skipped ones may already carry a staged
		// partial fill.
		makerLeft := maker.Remaining() - m.st.lastFill
		left := o.Remaining()
		*lastPrice = lvl.price
		*traded = true

		buyID, sellID, buyUser, sellUser := tradeParties(side, o, maker)

		if makerLeft > left {
			m.st.lastFill += left
			o.Filled += left
			m.stageTrade(buyID, sellID, buyUser, sellUser, left, lvl.price)
			m.st.events = append(m.st.events, partialFillEvent(maker.ID, left))
			m.st.events = append(m.st.events, filledOrderEvent(side, *o))
			return true, nil
		}

		m.st.limitsConsumed++
		m.st.lastFill = 0
		o.Filled += makerLeft
		m.stageTrade(buyID, sellID, buyUser, sellUser, makerLeft, lvl.price)
		m.st.events = append(m.st.events, orderFilledEvent(maker.ID))

		if o.Remaining() == 0 {
			m.st.events = append(m.st.events, orderFilledEvent(o.ID))
			return true, nil
		}
	}
	return false, nil
}

func tradeParties(side Side, taker, maker *Order) (buyID, sellID, buyUser, sellUser int64) {
	if side == Buy {
		return taker.ID, maker.ID, taker.UserID, maker.UserID
	}
	return maker.ID, taker.ID, maker.UserID, taker.UserID
}

// stageTrade records one trade and its event, then advances the trade id.
func (m *Market) stageTrade(buyID, sellID, buyUser, sellUser, amount, price int64) {
	fees := m.fees(amount, price)
	m.st.events = append(m.st.events, tradeEvent(m.st.nextTradeID, buyID, sellID, amount, price, fees))
	m.st.trades = append(m.st.trades, stagedTrade{
		buyUserID:  buyUser,
		sellUserID: sellUser,
		amount:     amount,
		price:      price,
		fees:       fees,
	})
	m.st.nextTradeID++
}

// fees prices one trade. Integer division truncates; sub-unit fractions are
// never charged.
func (m *Market) fees(amount, price int64) Fee {
	return Fee{
		Buy:  amount / m.cfg.FeeDivisor,
		Sell: ScaleMul(amount, price) / m.cfg.FeeDivisor,
	}
}

// cascade converts same-side stops reached by the last trade price into
// limit orders and runs each through the limit path, which may trade and
// cascade further. Stops trigger a whole price level at a time, so the
// resume count always lands on a level boundary.
func (m *Market) cascade(side Side, lastPrice int64, traded bool) error {
	if !traded {
		return nil
	}
	book := m.stopBook(side)

	var converted []Order
	skip := m.st.stopsTriggered
	for _, lvl := range book.levels {
		if skip > 0 {
			skip -= len(lvl.orders)
			continue
		}
		if book.ord.before(lastPrice, lvl.price) {
			break
		}
		for _, stop := range lvl.orders {
			converted = append(converted, Order{
				ID:     stop.ID,
				UserID: stop.UserID,
				Amount: stop.Amount,
				Filled: stop.Filled,
				Type:   OrderTypeLimit,
				Price:  stop.Price,
			})
			m.st.stopsTriggered++
		}
	}

	triggerTradeID := m.st.nextTradeID - 1
	for i := range converted {
		m.st.events = append(m.st.events, stopTriggeredEvent(converted[i].ID, triggerTradeID))
		if err := m.matchLimit(side, &converted[i]); err != nil {
			return err
		}
	}
	return nil
}

// commit applies the staged command. reserve is the order's remaining amount
// before matching: it goes into the taker's in-order balance and the
// per-trade updates net it back down to the unmatched remainder.
func (m *Market) commit(side Side, reserve, userID int64, w MarketWallets) []Event {
	m.nextOrderID = m.st.nextOrderID
	m.nextTradeID = m.st.nextTradeID

	// Triggered stops leave the same-side stop book.
	m.stopBook(side).removeFront(m.st.stopsTriggered, func(price int64, o Order) {
		m.users.untrack(o.UserID, side, OrderTypeStopLimit, price, o.ID)
	})

	// Newly resting limit orders, converted stops included.
	lb := m.limitBook(side)
	for _, so := range m.st.insertedLimits {
		lb.insert(so.price, so.order)
		m.users.track(so.order.UserID, side, OrderTypeLimit, so.price, so.order.ID)
	}

	if so := m.st.insertedStop; so != nil {
		m.stopBook(side).insert(so.price, so.order)
		m.users.track(so.order.UserID, side, OrderTypeStopLimit, so.price, so.order.ID)
	}

	// Fully consumed makers leave the opposite limit book.
	opp := m.limitBook(side.Opposite())
	opp.removeFront(m.st.limitsConsumed, func(price int64, o Order) {
		m.users.untrack(o.UserID, side.Opposite(), OrderTypeLimit, price, o.ID)
	})

	// The partially consumed head keeps its fill.
	if m.st.lastFill > 0 {
		opp.levels[0].orders[0].Filled += m.st.lastFill
	}

	m.reserveAccount(side, userID, w).AddToInOrder(reserve)

	for _, tr := range m.st.trades {
		cost := ScaleMul(tr.amount, tr.price)

		buyCoin := w.Coin.Account(tr.buyUserID)
		buyCoin.AddToTotal(tr.amount - tr.fees.Buy)
		buyBase := w.Base.Account(tr.buyUserID)
		buyBase.RemoveFromTotal(cost)
		buyBase.RemoveFromInOrder(cost)

		sellBase := w.Base.Account(tr.sellUserID)
		sellBase.AddToTotal(tr.amount - tr.fees.Sell)
		sellCoin := w.Coin.Account(tr.sellUserID)
		sellCoin.RemoveFromTotal(tr.amount)
		sellCoin.RemoveFromInOrder(tr.amount)
	}

	events := m.st.events
	m.st.reset()
	return events
}

// Cancel removes one resting order and releases its reserve. price is the
// order's book price: the limit price for limit orders, the trigger price
// for stop-limit orders.
func (m *Market) Cancel(side Side, typ OrderType, id, price int64, w MarketWallets) error {
	var book *bookSide
	switch typ {
	case OrderTypeLimit:
		book = m.limitBook(side)
	case OrderTypeStopLimit:
		book = m.stopBook(side)
	default:
		return newError(KindInvalidIDPrice, "only resting orders can be cancelled")
	}
	o, ok := book.remove(price, id)
	if !ok {
		return newError(KindInvalidIDPrice, "no order with this id at this price")
	}
	m.reserveAccount(side, o.UserID, w).RemoveFromInOrder(o.Remaining())
	m.users.untrack(o.UserID, side, typ, price, id)
	return nil
}

// CancelAllUser removes every resting order the user has in this market,
// releasing the reserves, and returns the cancelled order ids.
func (m *Market) CancelAllUser(userID int64, w MarketWallets) ([]int64, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}

	var ids []int64
	cancel := func(side Side, typ OrderType) error {
		var book *bookSide
		if typ == OrderTypeLimit {
			book = m.limitBook(side)
		} else {
			book = m.stopBook(side)
		}
		for _, e := range *u.list(side, typ) {
			o, found := book.remove(e.price, e.orderID)
			if !found {
				return newError(KindInvalidIDPrice, "user index entry has no matching resting order")
			}
			m.reserveAccount(side, o.UserID, w).RemoveFromInOrder(o.Remaining())
			ids = append(ids, e.orderID)
		}
		return nil
	}

	if err := cancel(Buy, OrderTypeLimit); err != nil {
		return nil, err
	}
	if err := cancel(Buy, OrderTypeStopLimit); err != nil {
		return nil, err
	}
	if err := cancel(Sell, OrderTypeLimit); err != nil {
		return nil, err
	}
	if err := cancel(Sell, OrderTypeStopLimit); err != nil {
		return nil, err
	}
	delete(m.users, userID)
	return ids, nil
}

// CancelAll clears every book and the user index. Reserves are not touched;
// callers use this when rebuilding state from scratch.
func (m *Market) CancelAll() {
	m.buyLimits.clear()
	m.sellLimits.clear()
	m.buyStops.clear()
	m.sellStops.clear()
	m.users = make(userIndex)
}

// ForceAdd places a resting order directly into its book, bypassing matching
// and funds checks. Snapshot restore feeds orders back through here.
func (m *Market) ForceAdd(side Side, o Order) {
	switch o.Type {
	case OrderTypeLimit:
		m.limitBook(side).insert(o.Price, o)
		m.users.track(o.UserID, side, OrderTypeLimit, o.Price, o.ID)
	case OrderTypeStopLimit:
		m.stopBook(side).insert(o.Trigger, o)
		m.users.track(o.UserID, side, OrderTypeStopLimit, o.Trigger, o.ID)
	}
}

// RestingOrders returns one book's orders in priority order.
func (m *Market) RestingOrders(side Side, typ OrderType) []BookEntry {
	if typ == OrderTypeStopLimit {
		return m.stopBook(side).flatten()
	}
	return m.limitBook(side).flatten()
}

// OpenOrderCounts reports how many limit and stop-limit orders the user has
// resting.
func (m *Market) OpenOrderCounts(userID int64) (limits, stops int) {
	return m.users.limitCount(userID), m.users.stopCount(userID)
}
