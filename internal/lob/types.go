package lob

import (
	"github.com/typhfeng/stk-sub000/internal/pool"
	"github.com/typhfeng/stk-sub000/internal/wire"
)

// Order is an LOB-internal resting order. Qty is signed: positive means
// visible, non-positive means a placeholder awaiting its matching maker
// (spec §3, §4.2). Orders are arena-allocated; callers hold a pool.Handle,
// never a raw pointer (spec §9's "arena + index" design note).
type Order struct {
	Qty wire.Quantity
	ID  wire.OrderID
}

func (o Order) visible() wire.Quantity {
	if o.Qty > 0 {
		return o.Qty
	}
	return 0
}

// Level is one price level's order queue plus its cached visible quantity
// total (spec §3). Levels are heap-allocated individually (not from a
// growing slice) so references into them — held by OrderIndex — are never
// invalidated by the creation of other levels, matching spec §4.2.8's
// "stable-reference container" requirement without needing a deque.
type Level struct {
	Price        wire.Price
	TotalVisible wire.Quantity
	Orders       []pool.Handle // handles into the order arena
}

func newLevel(price wire.Price) *Level {
	return &Level{Price: price, Orders: make([]pool.Handle, 0, 8)}
}

func (l *Level) empty() bool { return len(l.Orders) == 0 }

// location is where an order lives: which level, and its index within that
// level's Orders slice (kept current across swap-and-pop removals).
type location struct {
	level *Level
	index int
}
