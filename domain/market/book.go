package market

import "sort"

// ordering decides which of two prices ranks closer to the top of a book.
type ordering uint8

const (
	ascending ordering = iota
	descending
)

// before reports whether price a outranks price b.
func (o ordering) before(a, b int64) bool {
	if o == ascending {
		return a < b
	}
	return a > b
}

// level is one price point with its orders in arrival order.
type level struct {
	price  int64
	orders []Order
}

// bookSide holds the levels of one book, best price first. Each of a
// market's four books is one of these with its own ordering.
type bookSide struct {
	ord    ordering
	levels []*level
}

func newBookSide(ord ordering) bookSide {
	return bookSide{ord: ord}
}

// levelIndex returns where price sits (or would sit) in the level slice and
// whether a level at exactly that price exists.
func (b *bookSide) levelIndex(price int64) (int, bool) {
	i := sort.Search(len(b.levels), func(i int) bool {
		return !b.ord.before(b.levels[i].price, price)
	})
	return i, i < len(b.levels) && b.levels[i].price == price
}

// insert appends the order to its price level, creating the level if needed.
// Arrival order within a level is the time priority.
func (b *bookSide) insert(price int64, o Order) {
	i, ok := b.levelIndex(price)
	if ok {
		b.levels[i].orders = append(b.levels[i].orders, o)
		return
	}
	b.levels = append(b.levels, nil)
	copy(b.levels[i+1:], b.levels[i:])
	b.levels[i] = &level{price: price, orders: []Order{o}}
}

// remove takes the order with the given id off the given price level.
func (b *bookSide) remove(price, id int64) (Order, bool) {
	i, ok := b.levelIndex(price)
	if !ok {
		return Order{}, false
	}
	lvl := b.levels[i]
	for j := range lvl.orders {
		if lvl.orders[j].ID == id {
			o := lvl.orders[j]
			lvl.orders = append(lvl.orders[:j], lvl.orders[j+1:]...)
			if len(lvl.orders) == 0 {
				b.removeLevel(i)
			}
			return o, true
		}
	}
	return Order{}, false
}

func (b *bookSide) removeLevel(i int) {
	copy(b.levels[i:], b.levels[i+1:])
	b.levels[len(b.levels)-1] = nil
	b.levels = b.levels[:len(b.levels)-1]
}

// removeFront pops the n highest-priority orders, reporting each with the
// price it rested at.
func (b *bookSide) removeFront(n int, removed func(price int64, o Order)) {
	for n > 0 && len(b.levels) > 0 {
		lvl := b.levels[0]
		if n >= len(lvl.orders) {
			n -= len(lvl.orders)
			for _, o := range lvl.orders {
				removed(lvl.price, o)
			}
			b.removeLevel(0)
			continue
		}
		for _, o := range lvl.orders[:n] {
			removed(lvl.price, o)
		}
		lvl.orders = append(lvl.orders[:0:0], lvl.orders[n:]...)
		n = 0
	}
}

func (b *bookSide) empty() bool {
	return len(b.levels) == 0
}

// bestPrice is the top-of-book price.
func (b *bookSide) bestPrice() (int64, bool) {
	if len(b.levels) == 0 {
		return 0, false
	}
	return b.levels[0].price, true
}

func (b *bookSide) size() int {
	n := 0
	for _, lvl := range b.levels {
		n += len(lvl.orders)
	}
	return n
}

// BookEntry pairs a resting order with the price level it sits at. For
// stop-limit orders the price is the trigger price.
type BookEntry struct {
	Price int64
	Order Order
}

// flatten returns the book's orders in priority order.
func (b *bookSide) flatten() []BookEntry {
	entries := make([]BookEntry, 0, b.size())
	for _, lvl := range b.levels {
		for _, o := range lvl.orders {
			entries = append(entries, BookEntry{Price: lvl.price, Order: o})
		}
	}
	return entries
}

func (b *bookSide) clear() {
	b.levels = nil
}
