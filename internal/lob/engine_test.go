package lob

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhfeng/stk-sub000/internal/wire"
)

func maker(side wire.Side, price wire.Price, vol wire.WireQuantity, bidID, askID wire.OrderID) wire.OrderEvent {
	return wire.OrderEvent{Kind: wire.Maker, Side: side, Price: price, Volume: vol, BidID: bidID, AskID: askID}
}

func cancel(side wire.Side, price wire.Price, vol wire.WireQuantity, bidID, askID wire.OrderID) wire.OrderEvent {
	return wire.OrderEvent{Kind: wire.Cancel, Side: side, Price: price, Volume: vol, BidID: bidID, AskID: askID}
}

func taker(takerSide wire.Side, price wire.Price, vol wire.WireQuantity, bidID, askID wire.OrderID) wire.OrderEvent {
	return wire.OrderEvent{Kind: wire.Taker, Side: takerSide, Price: price, Volume: vol, BidID: bidID, AskID: askID}
}

// TestE1MinimalLifecycle is spec.md's scenario E1.
func TestE1MinimalLifecycle(t *testing.T) {
	e := NewEngine()

	require.True(t, e.Apply(maker(wire.Bid, 100, 5, 10, 0)))
	require.True(t, e.Apply(maker(wire.Ask, 101, 4, 0, 20)))
	require.True(t, e.Apply(taker(wire.Bid, 101, 3, 0, 20)))

	assert.Equal(t, wire.Price(100), e.BestBid())
	assert.Equal(t, wire.Quantity(5), e.BestBidQty())
	assert.Equal(t, wire.Price(101), e.BestAsk())
	assert.Equal(t, wire.Quantity(1), e.BestAskQty())
	assert.Equal(t, wire.Price(1), e.Spread())

	loc, ok := e.index[20]
	require.True(t, ok)
	order := e.orders.Get(loc.level.Orders[loc.index])
	assert.Equal(t, wire.Quantity(1), order.Qty)
}

// TestE2OutOfOrderTakerThenMaker is spec.md's scenario E2.
func TestE2OutOfOrderTakerThenMaker(t *testing.T) {
	e := NewEngine()

	require.True(t, e.Apply(taker(wire.Bid, 101, 3, 0, 20)))

	loc, ok := e.index[20]
	require.True(t, ok)
	order := e.orders.Get(loc.level.Orders[loc.index])
	assert.Equal(t, wire.Quantity(-3), order.Qty)
	assert.Equal(t, wire.Quantity(0), e.TotalVisibleQty())

	require.True(t, e.Apply(maker(wire.Ask, 101, 4, 0, 20)))

	loc, ok = e.index[20]
	require.True(t, ok)
	order = e.orders.Get(loc.level.Orders[loc.index])
	assert.Equal(t, wire.Quantity(1), order.Qty)
	assert.Equal(t, wire.Price(101), e.BestAsk())
	assert.Equal(t, wire.Quantity(1), e.BestAskQty())
}

// TestZeroVolumeMakerRejected covers spec §4.2.7's apply() contract.
func TestZeroVolumeMakerRejected(t *testing.T) {
	e := NewEngine()
	ok := e.Apply(maker(wire.Bid, 100, 0, 10, 0))
	assert.False(t, ok)
	assert.Equal(t, uint64(1), e.RejectedMakers())
	assert.Equal(t, 0, e.TotalOrders())
}

// sumVisibleAcrossOrders computes the right side of property 3's
// conservation invariant directly from live orders, independent of the
// engine's own TotalVisibleQty bookkeeping.
func sumVisibleAcrossOrders(e *Engine) wire.Quantity {
	var sum wire.Quantity
	for _, loc := range e.index {
		h := loc.level.Orders[loc.index]
		order := e.orders.Get(h)
		if order.Qty > 0 {
			sum += order.Qty
		}
	}
	return sum
}

// visiblePricesMatchLevels is property 5: the visible-price set holds
// exactly the prices of levels with TotalVisible > 0.
func visiblePricesMatchLevels(t *testing.T, e *Engine) {
	t.Helper()
	want := map[wire.Price]bool{}
	for p, lvl := range e.levels {
		if lvl.TotalVisible > 0 {
			want[p] = true
		}
	}
	got := map[wire.Price]bool{}
	e.visible.Scan(func(p wire.Price) bool {
		got[p] = true
		return true
	})
	assert.Equal(t, want, got)
}

// indexConsistent is property 4: every index entry resolves to a live
// order bearing that id, at the recorded position.
func indexConsistent(t *testing.T, e *Engine) {
	t.Helper()
	for id, loc := range e.index {
		require.Less(t, loc.index, len(loc.level.Orders))
		h := loc.level.Orders[loc.index]
		order := e.orders.Get(h)
		assert.Equal(t, id, order.ID)
	}
}

func TestRandomizedInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	e := NewEngine()

	var nextID wire.OrderID = 1
	var liveBid, liveAsk []wire.OrderID

	for i := 0; i < 2000; i++ {
		switch rng.Intn(3) {
		case 0: // maker
			side := wire.Bid
			if rng.Intn(2) == 1 {
				side = wire.Ask
			}
			id := nextID
			nextID++
			price := wire.Price(90 + rng.Intn(20))
			vol := wire.WireQuantity(1 + rng.Intn(10))
			var ev wire.OrderEvent
			if side == wire.Bid {
				ev = maker(wire.Bid, price, vol, id, 0)
				liveBid = append(liveBid, id)
			} else {
				ev = maker(wire.Ask, price, vol, 0, id)
				liveAsk = append(liveAsk, id)
			}
			e.Apply(ev)
		case 1: // cancel an existing bid
			if len(liveBid) == 0 {
				continue
			}
			id := liveBid[rng.Intn(len(liveBid))]
			e.Apply(cancel(wire.Bid, 0, wire.WireQuantity(1+rng.Intn(3)), id, 0))
		case 2: // taker consumes a resting ask
			if len(liveAsk) == 0 {
				continue
			}
			id := liveAsk[rng.Intn(len(liveAsk))]
			e.Apply(taker(wire.Bid, 0, wire.WireQuantity(1+rng.Intn(3)), 0, id))
		}

		assert.Equal(t, sumVisibleAcrossOrders(e), e.TotalVisibleQty(), "property 3 conservation at step %d", i)
		indexConsistent(t, e)
		visiblePricesMatchLevels(t, e)
	}
}

// TestOutOfOrderShuffleEquivalence is property 6 / spec.md's concrete
// example: shuffling MAKER+TAKER arrival order yields the same terminal
// residual.
func TestOutOfOrderShuffleEquivalence(t *testing.T) {
	inOrder := NewEngine()
	inOrder.Apply(maker(wire.Bid, 100, 5, 1, 0))
	inOrder.Apply(taker(wire.Ask, 100, 2, 1, 0))

	reversed := NewEngine()
	reversed.Apply(taker(wire.Ask, 100, 2, 1, 0))
	reversed.Apply(maker(wire.Bid, 100, 5, 1, 0))

	for _, e := range []*Engine{inOrder, reversed} {
		loc, ok := e.index[1]
		require.True(t, ok)
		order := e.orders.Get(loc.level.Orders[loc.index])
		assert.Equal(t, wire.Quantity(3), order.Qty)
	}
}

func TestClearResetsState(t *testing.T) {
	e := NewEngine()
	e.Apply(maker(wire.Bid, 100, 5, 1, 0))
	e.Apply(maker(wire.Ask, 101, 4, 0, 2))
	e.Clear()

	assert.Equal(t, 0, e.TotalOrders())
	assert.Equal(t, 0, e.TotalLevels())
	assert.Equal(t, wire.Price(0), e.BestBid())
	assert.Equal(t, wire.Price(0), e.BestAsk())
	assert.Equal(t, uint64(0), e.RejectedMakers())
}
