package features

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typhfeng/stk-sub000/internal/wire"
)

func TestIsMarketCloseBoundaries(t *testing.T) {
	assert.True(t, isMarketClose(11, 30))
	assert.True(t, isMarketClose(15, 0))
	assert.False(t, isMarketClose(11, 29))
	assert.False(t, isMarketClose(14, 59))
}

func TestBarEngineNoRolloverOnFirstTick(t *testing.T) {
	b := newBarEngine(10)
	closed := b.update(930, 100, 10, 0, false)
	assert.Nil(t, closed)
}

func TestBarEngineRollsOverOnKeyChange(t *testing.T) {
	b := newBarEngine(10)
	b.update(930, 100, 10, 1, false)
	b.update(930, 105, 10, 2, false)
	closed := b.update(931, 110, 5, 3, false)
	require.NotNil(t, closed)
	assert.Equal(t, 3, closed.ParentIndex)
	assert.Len(t, closed.Values, len(barMeta))
}

func TestBarEngineNextWindowOpensAtFirstTick(t *testing.T) {
	b := newBarEngine(10)
	b.update(930, 100, 10, 1, false)
	b.update(930, 108, 10, 2, false)
	b.update(931, 120, 5, 3, false)
	// The window now open (key 931) opens at its own first tick's price
	// (120), not at the prior window's close (108).
	assert.Equal(t, 120.0, float64(b.window.Open))
}

func TestBarEngineMarketCloseFlagCarriesThroughToClosedBar(t *testing.T) {
	b := newBarEngine(10)
	b.update(1129, 100, 10, 1, false)
	closed := b.update(1130, 105, 10, 2, true)
	require.NotNil(t, closed)
	assert.True(t, closed.MarketClose, "the tick that triggers the rollover carries the close-boundary flag onto the bar it closes")
}

func TestCascadeUpdateReturnsTickRowWhenBookIsDeepEnough(t *testing.T) {
	tick := NewTickEngine(5, 20)
	c := NewCascade(tick, 10)
	res := c.Update(sampleBook(), FlowCounters{}, 1, 9, 30, 100, 10, 1)
	assert.NotNil(t, res.TickRow)
	assert.Nil(t, res.MinuteBar)
	assert.Nil(t, res.HourBar)
}

func TestCascadeEmitsMinuteBarOnMinuteRollover(t *testing.T) {
	tick := NewTickEngine(5, 20)
	c := NewCascade(tick, 10)
	c.Update(sampleBook(), FlowCounters{}, 1, 9, 30, 100, 10, 1)
	res := c.Update(sampleBook(), FlowCounters{}, 1, 9, 31, 101, 10, 2)
	require.NotNil(t, res.MinuteBar)
	assert.Equal(t, 2, res.MinuteBar.ParentIndex)
}

func TestBarEngineRSIStartsAtNeutralMidpointDuringWarmup(t *testing.T) {
	b := newBarEngine(10)
	var closed *BarRow
	for i := 0; i < rsiPeriod; i++ {
		closed = b.update(930+i, wire.Price(100+i), 1, i, false)
		if closed != nil {
			// bar_rsi is the last entry in barMeta/Values.
			assert.Equal(t, 0.0, closed.Values[len(closed.Values)-1], "RollingZScore of a constant 50 reads as 0")
		}
	}
}

func TestBarEngineRSIReadsAboveNeutralAfterSustainedUptrend(t *testing.T) {
	b := newBarEngine(50)
	price := wire.Price(100)
	for i := 0; i <= rsiPeriod+5; i++ {
		b.update(930+i, price, 1, i, false)
		price += 2
	}
	// Once warmup (rsiPeriod+1 closes) has passed, a window of
	// strictly rising closes has no down-moves to average into RSI's
	// denominator, so it reads strictly above the neutral midpoint.
	assert.Greater(t, b.rsi(), 50.0)
}

func TestCascadeEmitsHourBarOnHourRollover(t *testing.T) {
	tick := NewTickEngine(5, 20)
	c := NewCascade(tick, 10)
	c.Update(sampleBook(), FlowCounters{}, 1, 9, 59, 100, 10, 1)
	res := c.Update(sampleBook(), FlowCounters{}, 1, 10, 0, 101, 10, 2)
	require.NotNil(t, res.HourBar)
	assert.NotNil(t, res.MinuteBar, "hour rollover also crosses a minute boundary")
}
