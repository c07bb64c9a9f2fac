package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhfeng/stk-sub000/internal/wire"
)

// fakeBook is a fixed top-K book used to exercise TickEngine without
// depending on internal/lob.
type fakeBook struct {
	bidPrices, askPrices   []wire.Price
	bidVolumes, askVolumes []wire.Quantity
}

func (f *fakeBook) BestBid() wire.Price      { return f.bidPrices[0] }
func (f *fakeBook) BestAsk() wire.Price      { return f.askPrices[0] }
func (f *fakeBook) BestBidQty() wire.Quantity { return f.bidVolumes[0] }
func (f *fakeBook) BestAskQty() wire.Quantity { return f.askVolumes[0] }

func (f *fakeBook) ForEachVisibleBid(k int, fn func(price wire.Price, qty wire.Quantity)) {
	for i := 0; i < k && i < len(f.bidPrices); i++ {
		fn(f.bidPrices[i], f.bidVolumes[i])
	}
}

func (f *fakeBook) ForEachVisibleAsk(k int, fn func(price wire.Price, qty wire.Quantity)) {
	for i := 0; i < k && i < len(f.askPrices); i++ {
		fn(f.askPrices[i], f.askVolumes[i])
	}
}

func sampleBook() *fakeBook {
	return &fakeBook{
		bidPrices:  []wire.Price{100, 99, 98, 97, 96},
		bidVolumes: []wire.Quantity{10, 8, 6, 4, 2},
		askPrices:  []wire.Price{101, 102, 103, 104, 105},
		askVolumes: []wire.Quantity{9, 7, 5, 3, 1},
	}
}

func TestComputeSkipsWhenFewerThanKLevels(t *testing.T) {
	e := NewTickEngine(5, 20)
	thin := &fakeBook{
		bidPrices:  []wire.Price{100, 99},
		bidVolumes: []wire.Quantity{10, 8},
		askPrices:  []wire.Price{101},
		askVolumes: []wire.Quantity{9},
	}
	row, ok := e.Compute(thin, FlowCounters{}, 1)
	assert.False(t, ok)
	assert.Nil(t, row)
}

func TestComputeReturnsOneValuePerRegistryEntry(t *testing.T) {
	e := NewTickEngine(5, 20)
	row, ok := e.Compute(sampleBook(), FlowCounters{Makers: 3, Cancels: 1, TakerBuyVolume: 2}, 1)
	require.True(t, ok)
	assert.Len(t, row, Len())
}

func TestComputeFirstTickZScoresAreZero(t *testing.T) {
	e := NewTickEngine(5, 20)
	row, ok := e.Compute(sampleBook(), FlowCounters{}, 1)
	require.True(t, ok)
	for i, v := range row {
		assert.Equal(t, 0.0, v, "feature %s (index %d) should be 0 on the first sample", Registry[i].Code, i)
	}
}

func TestTOBImbalancePositiveWhenBidHeavy(t *testing.T) {
	e := NewTickEngine(1, 20)
	bidHeavy := &fakeBook{
		bidPrices:  []wire.Price{100},
		bidVolumes: []wire.Quantity{100},
		askPrices:  []wire.Price{101},
		askVolumes: []wire.Quantity{10},
	}
	_, ok := e.Compute(bidHeavy, FlowCounters{}, 1)
	require.True(t, ok)
	// With only one sample in the window the z-score is
	// still 0 by construction (count<2), so assert via a raw-imbalance
	// helper instead of the z-scored row.
	imbalance := safeRatio(100-10, 100+10)
	assert.Greater(t, imbalance, 0.0)
}

func TestOrderFlowRatiosHandleZeroMakers(t *testing.T) {
	e := NewTickEngine(5, 20)
	row, ok := e.Compute(sampleBook(), FlowCounters{Cancels: 2}, 1)
	require.True(t, ok)
	assert.NotEmpty(t, row)
}

func TestShannonEntropyOfUniformVolumesIsMaximal(t *testing.T) {
	uniform := []float64{1, 1, 1, 1}
	skewed := []float64{100, 1, 1, 1}
	assert.Greater(t, shannonEntropy(uniform), shannonEntropy(skewed))
}

func TestAdjacentRatioOfFlatLaddersIsOne(t *testing.T) {
	levels := []level{{100, 5}, {99, 5}, {98, 5}}
	assert.InDelta(t, 1.0, adjacentRatio(levels), 1e-9)
}

func TestConvexityWeightedImbalanceZeroWhenBalanced(t *testing.T) {
	bids := []level{{100, 10}, {99, 8}}
	asks := []level{{101, 10}, {102, 8}}
	assert.InDelta(t, 0.0, convexityWeightedImbalance(bids, asks, 1), 1e-9)
}

func TestDistanceDiscountedImbalanceZeroWhenBalanced(t *testing.T) {
	bids := []level{{100, 10}, {99, 8}}
	asks := []level{{101, 10}, {102, 8}}
	assert.InDelta(t, 0.0, distanceDiscountedImbalance(bids, asks, 100.5, 0.05), 1e-9)
}

func TestQuadraticConvexityOfLinearDataIsNearZero(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	assert.InDelta(t, 0.0, quadraticConvexity(values), 1e-6)
}

func TestLinearSlopeOfDescendingLadderIsNegative(t *testing.T) {
	values := []float64{10, 8, 6, 4, 2}
	assert.Less(t, linearSlope(values), 0.0)
}

func TestLag1AutocorrelationOfAlternatingSeriesIsNegative(t *testing.T) {
	history := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	assert.Less(t, lag1Autocorrelation(history), 0.0)
}

func TestLag1AutocorrelationShortHistoryIsZero(t *testing.T) {
	assert.Equal(t, 0.0, lag1Autocorrelation([]float64{1, 2}))
}

func TestImpactCostZeroBeforeFirstObservedMid(t *testing.T) {
	e := NewTickEngine(5, 20)
	assert.Equal(t, 0.0, e.impactCost(100, FlowCounters{TakerBuyVolume: 5}))
}

func TestFlowCountersRecordMethods(t *testing.T) {
	var f FlowCounters
	f.RecordMaker()
	f.RecordMaker()
	f.RecordCancel(true)
	f.RecordCancel(false)
	f.RecordTaker(wire.Bid, 5)
	f.RecordTaker(wire.Ask, 3)

	assert.Equal(t, 2, f.Makers)
	assert.Equal(t, 2, f.Cancels)
	assert.Equal(t, 1, f.FleetingCancels)
	assert.Equal(t, uint32(5), f.TakerBuyVolume)
	assert.Equal(t, uint32(3), f.TakerSellVolume)
	assert.Equal(t, 2, f.takers())
}
