// Package lob implements the deduction-style limit order book described in
// spec §4.2: it reconstructs price levels and per-order residual
// quantities from a mixed, possibly out-of-order stream of maker / cancel /
// taker events. It is grounded on the original C++ LOB
// (original_source/cpp/include/lob/lob_deduct.hpp): unified price levels
// without a side field, dynamic top-of-book tracking by price comparison,
// and negative-quantity placeholders to absorb out-of-order arrivals.
package lob

import (
	"github.com/tidwall/btree"
	"github.com/typhfeng/stk-sub000/internal/pool"
	"github.com/typhfeng/stk-sub000/internal/wire"
)

const expectedOrders = 1 << 14

type tob struct {
	bestBid, bestAsk wire.Price
}

// Engine is a single asset-day's deduction LOB. It is not safe for
// concurrent use — the pipeline's worker model (spec §5) gives each
// asset-day a single owning goroutine.
type Engine struct {
	levels  map[wire.Price]*Level
	visible *btree.BTreeG[wire.Price]
	index   map[wire.OrderID]location
	orders  *pool.Arena[Order]

	top cached[tob]

	currentTime wire.PackedTime

	rejectedMakers uint64
}

// NewEngine constructs an empty LOB engine, preallocating order and index
// storage per spec §4.2.8.
func NewEngine() *Engine {
	e := &Engine{
		levels: make(map[wire.Price]*Level, 256),
		visible: btree.NewBTreeG(func(a, b wire.Price) bool {
			return a < b
		}),
		index:  make(map[wire.OrderID]location, expectedOrders),
		orders: pool.NewArena[Order](expectedOrders),
	}
	e.top.Set(tob{})
	return e
}

// Clear resets all state (spec §4.2.7).
func (e *Engine) Clear() {
	e.levels = make(map[wire.Price]*Level, 256)
	e.visible.Clear()
	e.index = make(map[wire.OrderID]location, expectedOrders)
	e.orders.Reset()
	e.top.Set(tob{})
	e.currentTime = 0
	e.rejectedMakers = 0
}

func (e *Engine) findLevel(price wire.Price) *Level {
	return e.levels[price]
}

func (e *Engine) createLevel(price wire.Price) *Level {
	l := newLevel(price)
	e.levels[price] = l
	return l
}

func (e *Engine) removeLevel(l *Level) {
	delete(e.levels, l.Price)
	e.visible.Delete(l.Price)
}

// updateVisiblePrice keeps the visible-price set consistent with a level's
// current total after any delta (spec §4.2.5, property 5).
func (e *Engine) updateVisiblePrice(l *Level) {
	if l.TotalVisible > 0 {
		e.visible.Set(l.Price)
	} else {
		e.visible.Delete(l.Price)
	}
}

func (e *Engine) minVisible() wire.Price {
	p, ok := e.visible.Min()
	if !ok {
		return 0
	}
	return p
}

func (e *Engine) maxVisible() wire.Price {
	p, ok := e.visible.Max()
	if !ok {
		return 0
	}
	return p
}

func (e *Engine) nextAskAbove(from wire.Price) wire.Price {
	var result wire.Price
	e.visible.Ascend(from+1, func(p wire.Price) bool {
		result = p
		return false
	})
	return result
}

func (e *Engine) nextBidBelow(from wire.Price) wire.Price {
	var result wire.Price
	e.visible.Descend(from-1, func(p wire.Price) bool {
		result = p
		return false
	})
	return result
}

// recomputeTOB is the pattern's recompute function, invoked by
// GetOrRecompute only if top is ever explicitly Invalidate()'d (spec §9's
// Cached<T>); this engine keeps top current eagerly via improveTop and
// advanceTOBOnDeduction instead, since a unified (side-less) visible-price
// set cannot be reliably split into a bid half and an ask half after the
// fact. The bound-based guess below is a last-resort fallback only.
func (e *Engine) recomputeTOB() tob {
	cur := e.top.value
	if cur.bestBid == 0 && cur.bestAsk == 0 {
		cur.bestBid = e.maxVisible()
		cur.bestAsk = e.minVisible()
	}
	return cur
}

// improveTop records a maker's price as the new best on its side if it
// betters (or establishes) the current one (spec §4.2's "dynamic
// top-of-book tracking by price comparison").
func (e *Engine) improveTop(side wire.Side, price wire.Price) {
	t := e.top.GetOrRecompute(e.recomputeTOB)
	switch side {
	case wire.Bid:
		if t.bestBid == 0 || price > t.bestBid {
			t.bestBid = price
			e.top.Set(t)
		}
	case wire.Ask:
		if t.bestAsk == 0 || price < t.bestAsk {
			t.bestAsk = price
			e.top.Set(t)
		}
	}
}

// advanceTOBOnDeduction updates top after a CANCEL/TAKER reduces a
// resting order at price, on restingSide, to a level whose remaining
// visible state is levelVisible (spec §4.2.3). A CANCEL only affects
// top when it touches the currently recorded best price on that side;
// a TAKER always snaps or advances, since by market construction it can
// only execute against the current best.
func (e *Engine) advanceTOBOnDeduction(kind deductionKind, restingSide wire.Side, price wire.Price, levelVisible bool) {
	t := e.top.GetOrRecompute(e.recomputeTOB)
	isRecordedBest := (restingSide == wire.Bid && price == t.bestBid) ||
		(restingSide == wire.Ask && price == t.bestAsk)
	if kind == deductCancel && !isRecordedBest {
		return
	}
	if levelVisible {
		if restingSide == wire.Ask {
			t.bestAsk = price
		} else {
			t.bestBid = price
		}
	} else if restingSide == wire.Ask {
		t.bestAsk = e.nextAskAbove(price)
	} else {
		t.bestBid = e.nextBidBelow(price)
	}
	e.top.Set(t)
}

// JudgeSide derives a side for a price with no explicit side, from the
// current top of book (spec §4.2.4). Checks are priority-ordered: BID
// before ASK, matching the source's judge_side (a price at or above
// best_bid is judged BID even when it also sits at or below best_ask).
func (e *Engine) JudgeSide(price wire.Price) wire.Side {
	t := e.top.GetOrRecompute(e.recomputeTOB)
	if t.bestBid == 0 && t.bestAsk == 0 {
		return wire.Bid
	}
	if t.bestBid > 0 && price >= t.bestBid {
		return wire.Bid
	}
	if t.bestAsk > 0 && price <= t.bestAsk {
		return wire.Ask
	}
	if t.bestBid > 0 && t.bestAsk > 0 {
		mid := (t.bestBid + t.bestAsk) / 2
		if price >= mid {
			return wire.Bid
		}
		return wire.Ask
	}
	if t.bestBid > 0 {
		return wire.Bid
	}
	return wire.Ask
}

// Apply processes one order event (spec §4.2.7). It returns false only for
// a rejected MAKER with zero volume; every other input is absorbed, out of
// order or not.
func (e *Engine) Apply(ev wire.OrderEvent) bool {
	e.currentTime = ev.Time
	switch ev.Kind {
	case wire.Maker:
		return e.applyMaker(ev)
	case wire.Cancel:
		return e.deduct(ev, deductCancel)
	case wire.Taker:
		return e.deduct(ev, deductTaker)
	default:
		return false
	}
}

// RejectedMakers returns the count of MAKER events rejected for zero volume
// (spec §7 LOBRejected).
func (e *Engine) RejectedMakers() uint64 { return e.rejectedMakers }

// applyMaker implements spec §4.2.2.
func (e *Engine) applyMaker(ev wire.OrderEvent) bool {
	if ev.Volume == 0 {
		e.rejectedMakers++
		return false
	}
	id := ev.SameSideID()
	vol := wire.Quantity(ev.Volume)

	loc, exists := e.index[id]
	if !exists {
		h := e.orders.Alloc()
		*e.orders.Get(h) = Order{Qty: vol, ID: id}

		lvl := e.findLevel(ev.Price)
		if lvl == nil {
			lvl = e.createLevel(ev.Price)
		}
		idx := len(lvl.Orders)
		lvl.Orders = append(lvl.Orders, h)
		lvl.TotalVisible += vol
		e.index[id] = location{level: lvl, index: idx}
		e.updateVisiblePrice(lvl)
		e.improveTop(ev.Side, ev.Price)
		return true
	}

	// Out-of-order: merge into the existing (non-positive) placeholder.
	lvl := loc.level
	h := lvl.Orders[loc.index]
	order := e.orders.Get(h)
	before := order.visible()
	order.Qty += vol
	after := order.visible()

	if order.Qty == 0 {
		e.removeOrderAt(lvl, loc.index)
		delete(e.index, id)
		if lvl.empty() {
			e.removeLevel(lvl)
		} else {
			e.updateVisiblePrice(lvl)
		}
		return true
	}

	lvl.TotalVisible += after - before
	e.updateVisiblePrice(lvl)
	if after > 0 {
		e.improveTop(ev.Side, ev.Price)
	}
	return true
}

type deductionKind uint8

const (
	deductCancel deductionKind = iota
	deductTaker
)

// deduct implements spec §4.2.3 for both CANCEL and TAKER events.
//
// restingSide is the side of the order being deducted: for CANCEL it is
// the event's own side (same-side id); for TAKER it is the opposite of
// the taker's side (a buy taker consumes a resting ask). A CANCEL moves
// the cached top of book only when it empties the level at the recorded
// best price on its side (see advanceTOBOnDeduction); a TAKER always
// snaps or advances it. TAKER advances TOB by the level's
// TotalVisible hitting zero rather than by order count alone, so that
// the conservation invariant (property 3) holds when a price level
// still carries other live orders after the matched one is removed.
func (e *Engine) deduct(ev wire.OrderEvent, kind deductionKind) bool {
	var targetID wire.OrderID
	var restingSide wire.Side
	if kind == deductCancel {
		targetID = ev.SameSideID()
		restingSide = ev.Side
	} else {
		targetID = ev.OppositeSideID()
		if ev.Side == wire.Bid {
			restingSide = wire.Ask
		} else {
			restingSide = wire.Bid
		}
	}
	vol := wire.Quantity(ev.Volume)

	loc, exists := e.index[targetID]
	if !exists {
		// Out-of-order: create a negative placeholder.
		h := e.orders.Alloc()
		*e.orders.Get(h) = Order{Qty: -vol, ID: targetID}

		lvl := e.findLevel(ev.Price)
		if lvl == nil {
			lvl = e.createLevel(ev.Price)
		}
		idx := len(lvl.Orders)
		lvl.Orders = append(lvl.Orders, h)
		e.index[targetID] = location{level: lvl, index: idx}
		// Placeholder quantity is non-positive: never enters the visible set.

		if kind == deductTaker {
			t := e.top.GetOrRecompute(e.recomputeTOB)
			if restingSide == wire.Ask {
				t.bestAsk = ev.Price
			} else {
				t.bestBid = ev.Price
			}
			e.top.Set(t)
		}
		return true
	}

	lvl := loc.level
	h := lvl.Orders[loc.index]
	order := e.orders.Get(h)
	before := order.visible()
	order.Qty -= vol
	price := lvl.Price

	if order.Qty <= 0 {
		lvl.TotalVisible -= before
		e.removeOrderAt(lvl, loc.index)
		delete(e.index, targetID)
	} else {
		after := order.visible()
		lvl.TotalVisible += after - before
	}

	levelVisible := lvl.TotalVisible > 0
	levelHasOrders := !lvl.empty()

	e.advanceTOBOnDeduction(kind, restingSide, price, levelVisible)

	if levelHasOrders {
		e.updateVisiblePrice(lvl)
	} else {
		e.removeLevel(lvl)
	}
	return true
}

// removeOrderAt frees the order at lvl.Orders[idx] via swap-and-pop,
// keeping the moved neighbor's index entry current (spec §3, property 4).
func (e *Engine) removeOrderAt(lvl *Level, idx int) {
	h := lvl.Orders[idx]
	order := e.orders.Get(h)
	if order.visible() > 0 {
		lvl.TotalVisible -= order.visible()
	}

	last := len(lvl.Orders) - 1
	if idx != last {
		lvl.Orders[idx] = lvl.Orders[last]
		movedHandle := lvl.Orders[idx]
		movedOrder := e.orders.Get(movedHandle)
		if l, ok := e.index[movedOrder.ID]; ok {
			l.index = idx
			e.index[movedOrder.ID] = l
		}
	}
	lvl.Orders = lvl.Orders[:last]
	e.orders.Free(h)
}

// BestBid returns the current best bid price, 0 if none.
func (e *Engine) BestBid() wire.Price {
	return e.top.GetOrRecompute(e.recomputeTOB).bestBid
}

// BestAsk returns the current best ask price, 0 if none.
func (e *Engine) BestAsk() wire.Price {
	return e.top.GetOrRecompute(e.recomputeTOB).bestAsk
}

// BestBidQty returns the visible quantity at the best bid, 0 if none.
func (e *Engine) BestBidQty() wire.Quantity {
	p := e.BestBid()
	if p == 0 {
		return 0
	}
	if l := e.findLevel(p); l != nil {
		return l.TotalVisible
	}
	return 0
}

// BestAskQty returns the visible quantity at the best ask, 0 if none.
func (e *Engine) BestAskQty() wire.Quantity {
	p := e.BestAsk()
	if p == 0 {
		return 0
	}
	if l := e.findLevel(p); l != nil {
		return l.TotalVisible
	}
	return 0
}

// Spread returns BestAsk-BestBid, or 0 if either side is empty.
func (e *Engine) Spread() wire.Price {
	bid, ask := e.BestBid(), e.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// TotalOrders returns the number of live orders.
func (e *Engine) TotalOrders() int { return len(e.index) }

// TotalLevels returns the number of live (non-empty) price levels.
func (e *Engine) TotalLevels() int { return len(e.levels) }

// TotalVisibleQty returns the sum of total_visible_qty across all levels —
// the left side of property 3's conservation invariant.
func (e *Engine) TotalVisibleQty() wire.Quantity {
	var sum wire.Quantity
	for _, l := range e.levels {
		sum += l.TotalVisible
	}
	return sum
}

// ForEachVisibleBid emits up to k best bid levels, best-first.
func (e *Engine) ForEachVisibleBid(k int, f func(price wire.Price, qty wire.Quantity)) {
	bestBid := e.BestBid()
	if bestBid == 0 {
		return
	}
	n := 0
	e.visible.Descend(bestBid, func(p wire.Price) bool {
		if n >= k {
			return false
		}
		if l := e.findLevel(p); l != nil && l.TotalVisible > 0 {
			f(p, l.TotalVisible)
			n++
		}
		return true
	})
}

// ForEachVisibleAsk emits up to k best ask levels, best-first.
func (e *Engine) ForEachVisibleAsk(k int, f func(price wire.Price, qty wire.Quantity)) {
	bestAsk := e.BestAsk()
	if bestAsk == 0 {
		return
	}
	n := 0
	e.visible.Ascend(bestAsk, func(p wire.Price) bool {
		if n >= k {
			return false
		}
		if l := e.findLevel(p); l != nil && l.TotalVisible > 0 {
			f(p, l.TotalVisible)
			n++
		}
		return true
	})
}
