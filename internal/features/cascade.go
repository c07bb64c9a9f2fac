package features

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/typhfeng/stk-sub000/internal/cbuf"
	"github.com/typhfeng/stk-sub000/internal/wire"
)

// rsiPeriod is the lookback for the bar-level RSI feature below,
// matching the period the teacher's own CalculateRSI
// (internal/trading/market_data/timeframe/indicators.go) is
// conventionally called with.
const rsiPeriod = 14

// BarRow is one minute/hour feature row cascaded from the tick stream
// (spec §4.7). ParentIndex references the tick row whose arrival
// triggered this bar's emission (0 for a tick row itself).
type BarRow struct {
	Bar          OHLCV
	Values       []float64 // z-scored [return, range, vwap_deviation, volume, rsi]
	ParentIndex  int
	MarketClose  bool
}

// barMeta documents the minute/hour derived feature set. The spec
// enumerates the tick feature battery (§4.6.2) in full but leaves the
// minute/hour engine's feature set unspecified beyond the OHLCV
// accumulator itself (§4.7); this registry is this repo's own
// reasonable minimal derivation from OHLCV, kept separate from the
// tick Registry. bar_rsi is the one classic technical indicator in the
// battery (as opposed to the order-book microstructure features
// computed at tick cadence): a Wilder RSI over the closed-bar close
// series, via go-talib, matching the teacher's own
// IndicatorCalculator.CalculateRSI.
var barMeta = []Meta{
	{"bar_return", ClassDepthStructure, "(close - open) / open"},
	{"bar_range", ClassDepthStructure, "(high - low) / open"},
	{"bar_vwap_deviation", ClassDepthStructure, "(vwap - close) / close"},
	{"bar_volume", ClassOrderFlow, "Σv over the window"},
	{"bar_rsi", ClassBehavioral, "talib.Rsi(closes, 14) over the closed-bar close series"},
}

// BarMeta exposes the minute/hour derived feature metadata.
func BarMeta() []Meta { return barMeta }

// barEngine accumulates one OHLCV window and z-scores its derived
// features on each rollover. closes holds the trailing closed-bar
// close prices feeding the RSI indicator; it only needs rsiPeriod+1
// entries since that's talib.Rsi's entire lookback.
type barEngine struct {
	window     OHLCV
	haveWindow bool
	z          []*RollingZScore
	haveClose  bool
	lastKey    int // (hour*60+minute) for minute, hour for hour
	closes     *cbuf.CBuf[float64]
}

func newBarEngine(w int) *barEngine {
	b := &barEngine{lastKey: -1, closes: cbuf.New[float64](rsiPeriod + 1)}
	b.z = make([]*RollingZScore, len(barMeta))
	for i := range b.z {
		b.z[i] = NewRollingZScore(w)
	}
	return b
}

// rsi computes the latest Wilder RSI over the trailing closed-bar
// close series, falling back to the neutral midpoint (50) until
// rsiPeriod+1 closes have accumulated (talib.Rsi's own warmup — its
// leading outputs are NaN before that).
func (b *barEngine) rsi() float64 {
	if b.closes.Size() <= rsiPeriod {
		return 50.0
	}
	series := b.closes.ToArray(0, b.closes.Size())
	out := talib.Rsi(series, rsiPeriod)
	v := out[len(out)-1]
	if math.IsNaN(v) {
		return 50.0
	}
	return v
}

// update folds one tick into the window, rolling over (and returning
// a closed BarRow) if key differs from the last observed key.
func (b *barEngine) update(key int, price wire.Price, volume uint32, parentIndex int, marketClose bool) *BarRow {
	var closed *BarRow
	if b.lastKey != -1 && key != b.lastKey {
		closed = b.close(parentIndex, marketClose)
		b.window.Reset(b.window.Close)
	}
	if b.lastKey == -1 {
		b.window.Reset(0)
	}
	b.lastKey = key
	b.window.Update(price, volume)
	return closed
}

func (b *barEngine) close(parentIndex int, marketClose bool) *BarRow {
	open := float64(b.window.Open)
	ret, rng, dev := 0.0, 0.0, 0.0
	if open != 0 {
		ret = (float64(b.window.Close) - open) / open
		rng = (float64(b.window.High) - float64(b.window.Low)) / open
	}
	if b.window.Close != 0 {
		dev = (b.window.VWAP() - float64(b.window.Close)) / float64(b.window.Close)
	}
	b.closes.PushBack(float64(b.window.Close))
	raw := []float64{ret, rng, dev, float64(b.window.Volume), b.rsi()}
	values := make([]float64, len(raw))
	for i, v := range raw {
		values[i] = b.z[i].Update(v)
	}
	return &BarRow{Bar: b.window, Values: values, ParentIndex: parentIndex, MarketClose: marketClose}
}

// Cascade wires the tick engine to a minute and an hour barEngine,
// emitting minute/hour rows on rollover per spec §4.7.
type Cascade struct {
	Tick *TickEngine

	minute *barEngine
	hour   *barEngine
}

// NewCascade builds a Cascade with its own minute/hour rolling windows
// of w bars each.
func NewCascade(tick *TickEngine, w int) *Cascade {
	return &Cascade{Tick: tick, minute: newBarEngine(w), hour: newBarEngine(w)}
}

// CascadeResult carries the tick row plus any minute/hour bars closed
// by this tick.
type CascadeResult struct {
	TickRow     []float64
	MinuteBar   *BarRow
	HourBar     *BarRow
}

// isMarketClose reports whether (hour, minute) lands on one of the
// two configured close boundaries (spec §4.7).
func isMarketClose(hour, minute uint8) bool {
	return (hour == 11 && minute == 30) || (hour == 15 && minute == 0)
}

// Update computes the tick row (if the view has enough depth) and
// folds (hour, minute, price, volume) into the minute/hour
// accumulators, returning any bars that rolled over as a result.
func (c *Cascade) Update(view BookView, flow FlowCounters, dtSeconds float64, hour, minute uint8, price wire.Price, volume uint32, tickIndex int) CascadeResult {
	row, ok := c.Tick.Compute(view, flow, dtSeconds)
	var res CascadeResult
	if ok {
		res.TickRow = row
	}

	marketClose := isMarketClose(hour, minute)
	minuteKey := int(hour)*60 + int(minute)
	res.MinuteBar = c.minute.update(minuteKey, price, volume, tickIndex, marketClose)
	res.HourBar = c.hour.update(int(hour), price, volume, tickIndex, marketClose)
	return res
}
