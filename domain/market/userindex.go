package market

import "sort"

// priceOrderID locates one resting order: the price level it sits at and its
// id.
type priceOrderID struct {
	price   int64
	orderID int64
}

// userOrders mirrors the four books for one user. Each list is sorted the
// same way as the owning book, with ascending order id as the tie-break, so
// the self-trade boundary check is a single comparison against the tail.
type userOrders struct {
	buyLimits  []priceOrderID
	sellLimits []priceOrderID
	buyStops   []priceOrderID
	sellStops  []priceOrderID
}

func (u *userOrders) list(side Side, typ OrderType) *[]priceOrderID {
	if typ == OrderTypeLimit {
		if side == Buy {
			return &u.buyLimits
		}
		return &u.sellLimits
	}
	if side == Buy {
		return &u.buyStops
	}
	return &u.sellStops
}

func (u *userOrders) empty() bool {
	return len(u.buyLimits) == 0 && len(u.sellLimits) == 0 &&
		len(u.buyStops) == 0 && len(u.sellStops) == 0
}

// listOrdering is the price ordering of the book a (side, type) list
// mirrors.
func listOrdering(side Side, typ OrderType) ordering {
	if typ == OrderTypeLimit {
		if side == Buy {
			return descending
		}
		return ascending
	}
	if side == Buy {
		return ascending
	}
	return descending
}

type userIndex map[int64]*userOrders

// track records a newly resting order in the owner's index.
func (ui userIndex) track(userID int64, side Side, typ OrderType, price, orderID int64) {
	u, ok := ui[userID]
	if !ok {
		u = &userOrders{}
		ui[userID] = u
	}
	list := u.list(side, typ)
	ord := listOrdering(side, typ)
	e := priceOrderID{price: price, orderID: orderID}
	i := sort.Search(len(*list), func(i int) bool {
		if (*list)[i].price != e.price {
			return !ord.before((*list)[i].price, e.price)
		}
		return (*list)[i].orderID >= e.orderID
	})
	*list = append(*list, priceOrderID{})
	copy((*list)[i+1:], (*list)[i:])
	(*list)[i] = e
}

// untrack drops every entry matching (price, orderID) from the owner's
// index. Empty users are removed entirely.
func (ui userIndex) untrack(userID int64, side Side, typ OrderType, price, orderID int64) {
	u, ok := ui[userID]
	if !ok {
		return
	}
	list := u.list(side, typ)
	kept := (*list)[:0]
	for _, e := range *list {
		if e.price != price || e.orderID != orderID {
			kept = append(kept, e)
		}
	}
	*list = kept
	if u.empty() {
		delete(ui, userID)
	}
}

// hasAtOrBeyond reports whether the user has an entry at or beyond price in
// the list's own priority order. Because the list is sorted, only the tail
// entry can qualify.
func hasAtOrBeyond(list []priceOrderID, price int64, ord ordering) bool {
	if len(list) == 0 {
		return false
	}
	return !ord.before(list[len(list)-1].price, price)
}

func (ui userIndex) limitCount(userID int64) int {
	u, ok := ui[userID]
	if !ok {
		return 0
	}
	return len(u.buyLimits) + len(u.sellLimits)
}

func (ui userIndex) stopCount(userID int64) int {
	u, ok := ui[userID]
	if !ok {
		return 0
	}
	return len(u.buyStops) + len(u.sellStops)
}
