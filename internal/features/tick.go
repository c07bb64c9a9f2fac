package features

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/typhfeng/stk-sub000/internal/wire"
)

// BookView is the read-only LOB surface the tick engine reads from
// (spec §4.6.1): best bid/ask and the top-K levels per side.
// *lob.Engine satisfies this directly.
type BookView interface {
	BestBid() wire.Price
	BestAsk() wire.Price
	BestBidQty() wire.Quantity
	BestAskQty() wire.Quantity
	ForEachVisibleBid(k int, f func(price wire.Price, qty wire.Quantity))
	ForEachVisibleAsk(k int, f func(price wire.Price, qty wire.Quantity))
}

// FlowCounters accumulates order-flow activity between two ticks. The
// wiring layer feeding events into the LOB is responsible for calling
// RecordMaker/RecordCancel/RecordTaker as it processes each event, then
// handing the accumulated counters to Compute and resetting them.
type FlowCounters struct {
	Makers          int
	Cancels         int
	FleetingCancels int // cancels whose maker was posted within the fleeting-order window
	TakerBuyVolume  uint32
	TakerSellVolume uint32
	Takers          int // taker events, either side
}

func (f *FlowCounters) RecordMaker()                  { f.Makers++ }
func (f *FlowCounters) RecordCancel(fleeting bool) {
	f.Cancels++
	if fleeting {
		f.FleetingCancels++
	}
}
func (f *FlowCounters) RecordTaker(side wire.Side, volume uint32) {
	f.Takers++
	if side == wire.Bid {
		f.TakerBuyVolume += volume
	} else {
		f.TakerSellVolume += volume
	}
}

func (f *FlowCounters) takers() int {
	return f.Takers
}

// level is a private fixed-depth capture of one side's top-K book.
type level struct {
	price  wire.Price
	volume float64
}

// TickEngine computes spec §4.6's feature battery on every gated
// snapshot update and z-scores each raw value with its own rolling
// window.
type TickEngine struct {
	K int // top-K levels read per side
	W int // rolling z-score window

	z []*RollingZScore // one per Registry entry, same order

	haveMid        bool
	prevMid        float64
	resiliencySince int // ticks elapsed since the last spread-widening shock was flagged, -1 if none pending
	baselineSpread  float64
	haveBaseline    bool

	flowHistory []float64 // recent signed order-flow (buyVol - sellVol), for lag-1 autocorrelation
}

const defaultFlowHistoryCap = 256

// NewTickEngine builds an engine reading the top K levels per side and
// z-scoring over a window of W ticks.
func NewTickEngine(k, w int) *TickEngine {
	e := &TickEngine{K: k, W: w, resiliencySince: -1}
	e.z = make([]*RollingZScore, Len())
	for i := range e.z {
		e.z[i] = NewRollingZScore(w)
	}
	return e
}

// Compute reads view and flow, returning the z-scored feature row in
// Registry order. ok is false (and row is nil) if either side has
// fewer than K valid levels — spec §4.6.5's silent-skip rule.
func (e *TickEngine) Compute(view BookView, flow FlowCounters, dtSeconds float64) (row []float64, ok bool) {
	var bids, asks []level
	view.ForEachVisibleBid(e.K, func(p wire.Price, q wire.Quantity) {
		bids = append(bids, level{p, float64(q)})
	})
	view.ForEachVisibleAsk(e.K, func(p wire.Price, q wire.Quantity) {
		asks = append(asks, level{p, float64(q)})
	})
	if len(bids) < e.K || len(asks) < e.K {
		return nil, false
	}

	bestBid, bestAsk := float64(view.BestBid()), float64(view.BestAsk())
	bidVol1, askVol1 := float64(view.BestBidQty()), float64(view.BestAskQty())
	mid := (bestBid + bestAsk) / 2
	spread := bestAsk - bestBid

	raw := make([]float64, Len())
	raw[0] = spread
	raw[1] = (bestAsk*bidVol1+bestBid*askVol1)/(bidVol1+askVol1) - mid
	raw[2] = safeRatio(bidVol1-askVol1, bidVol1+askVol1)

	for gi, gamma := range []float64{1, 2, 3} {
		raw[3+gi] = convexityWeightedImbalance(bids, asks, gamma)
	}
	for li, lambda := range []float64{0.01, 0.05, 0.10} {
		raw[6+li] = distanceDiscountedImbalance(bids, asks, mid, lambda)
	}

	sumBid, sumAsk := sumVolumes(bids), sumVolumes(asks)
	raw[9] = safeRatio(sumBid, sumAsk)
	raw[10] = adjacentRatio(bids)
	raw[11] = adjacentRatio(asks)
	raw[12] = quadraticConvexity(volumesOf(bids))
	raw[13] = quadraticConvexity(volumesOf(asks))
	raw[14] = linearSlope(volumesOf(bids))
	raw[15] = linearSlope(volumesOf(asks))
	raw[16] = shannonEntropy(volumesOf(bids))
	raw[17] = shannonEntropy(volumesOf(asks))

	raw[18] = rate(flow.Makers, dtSeconds)
	raw[19] = rate(flow.Cancels, dtSeconds)
	raw[20] = rate(int(flow.TakerBuyVolume), dtSeconds)
	raw[21] = rate(int(flow.TakerSellVolume), dtSeconds)

	raw[22] = safeRatio(float64(flow.takers()), float64(flow.takers()+flow.Makers))
	raw[23] = safeRatio(float64(flow.Cancels), float64(flow.Makers))
	raw[24] = safeRatio(float64(flow.FleetingCancels), float64(flow.Makers))

	signedFlow := float64(flow.TakerBuyVolume) - float64(flow.TakerSellVolume)
	e.flowHistory = append(e.flowHistory, signedFlow)
	if len(e.flowHistory) > defaultFlowHistoryCap {
		e.flowHistory = e.flowHistory[1:]
	}
	raw[25] = lag1Autocorrelation(e.flowHistory)

	raw[26] = e.resiliencyScore(spread)
	raw[27] = e.impactCost(mid, flow)

	raw[28] = 0 // quote_anomaly placeholder; set below once tob_imbalance is z-scored

	for i, v := range raw[:28] {
		raw[i] = e.z[i].Update(v)
	}
	// quote_anomaly derives from the already-computed tob_imbalance
	// z-score, then is itself z-scored again per spec §4.6.2's uniform
	// "compute raw, then z-score" treatment.
	anomalyRaw := 0.0
	if math.Abs(raw[2]) > 3 {
		anomalyRaw = 1
	}
	raw[28] = e.z[28].Update(anomalyRaw)

	e.haveMid = true
	e.prevMid = mid
	if !e.haveBaseline {
		e.baselineSpread = spread
		e.haveBaseline = true
	}

	return raw, true
}

func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

func sumVolumes(levels []level) float64 {
	s := 0.0
	for _, l := range levels {
		s += l.volume
	}
	return s
}

func volumesOf(levels []level) []float64 {
	out := make([]float64, len(levels))
	for i, l := range levels {
		out[i] = l.volume
	}
	return out
}

func adjacentRatio(levels []level) float64 {
	if len(levels) < 2 {
		return 0
	}
	sum := 0.0
	n := 0
	for i := 1; i < len(levels); i++ {
		if levels[i-1].volume == 0 {
			continue
		}
		sum += levels[i].volume / levels[i-1].volume
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func convexityWeightedImbalance(bids, asks []level, gamma float64) float64 {
	n := len(bids)
	if len(asks) < n {
		n = len(asks)
	}
	var num, den float64
	for i := 0; i < n; i++ {
		w := 1 / math.Pow(float64(i+1), gamma)
		num += w * (bids[i].volume - asks[i].volume)
		den += w * (bids[i].volume + asks[i].volume)
	}
	return safeRatio(num, den)
}

func distanceDiscountedImbalance(bids, asks []level, mid, lambda float64) float64 {
	n := len(bids)
	if len(asks) < n {
		n = len(asks)
	}
	var num, den float64
	for i := 0; i < n; i++ {
		dpBid := math.Abs(float64(bids[i].price) - mid)
		dpAsk := math.Abs(float64(asks[i].price) - mid)
		wb := math.Exp(-lambda * dpBid)
		wa := math.Exp(-lambda * dpAsk)
		num += wb*bids[i].volume - wa*asks[i].volume
		den += wb*bids[i].volume + wa*asks[i].volume
	}
	return safeRatio(num, den)
}

// quadraticConvexity fits y = a + b*x + c*x^2 over x = 1..n via
// gonum/mat least squares and returns c, a proxy for the depth
// ladder's curvature.
func quadraticConvexity(values []float64) float64 {
	n := len(values)
	if n < 3 {
		return 0
	}
	aData := make([]float64, n*3)
	for i := 0; i < n; i++ {
		x := float64(i + 1)
		aData[i*3+0] = 1
		aData[i*3+1] = x
		aData[i*3+2] = x * x
	}
	A := mat.NewDense(n, 3, aData)
	b := mat.NewVecDense(n, values)
	var c mat.VecDense
	if err := c.SolveVec(A, b); err != nil {
		return 0
	}
	return c.AtVec(2)
}

// linearSlope is gonum/stat's ordinary least squares slope of values
// against their 1-based rank.
func linearSlope(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i + 1)
	}
	_, beta := stat.LinearRegression(xs, values, nil, false)
	return beta
}

// shannonEntropy normalizes values into a probability distribution and
// returns its Shannon entropy via gonum/stat.
func shannonEntropy(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	if total <= 0 {
		return 0
	}
	p := make([]float64, len(values))
	for i, v := range values {
		p[i] = v / total
	}
	return stat.Entropy(p)
}

func rate(count int, dtSeconds float64) float64 {
	if dtSeconds <= 0 {
		return 0
	}
	return float64(count) / dtSeconds
}

// lag1Autocorrelation correlates history[:-1] against history[1:] via
// gonum/stat.Correlation.
func lag1Autocorrelation(history []float64) float64 {
	if len(history) < 3 {
		return 0
	}
	a := history[:len(history)-1]
	b := history[1:]
	c := stat.Correlation(a, b, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}

// resiliencyScore tracks ticks elapsed since the spread last widened
// materially above baseline, returning 1/ticks once it reverts (0
// while a shock is still open or none has occurred).
func (e *TickEngine) resiliencyScore(spread float64) float64 {
	if !e.haveBaseline {
		return 0
	}
	widened := spread > e.baselineSpread*1.5
	switch {
	case widened && e.resiliencySince < 0:
		e.resiliencySince = 0
		return 0
	case e.resiliencySince >= 0 && !widened:
		since := e.resiliencySince + 1
		e.resiliencySince = -1
		e.baselineSpread = spread
		return 1 / float64(since)
	case e.resiliencySince >= 0:
		e.resiliencySince++
		return 0
	default:
		e.baselineSpread = (e.baselineSpread*9 + spread) / 10
		return 0
	}
}

// impactCost is the volume-weighted mid-price move per unit taker
// volume since the previous tick.
func (e *TickEngine) impactCost(mid float64, flow FlowCounters) float64 {
	if !e.haveMid {
		return 0
	}
	netTaker := float64(flow.TakerBuyVolume) - float64(flow.TakerSellVolume)
	if netTaker == 0 {
		return 0
	}
	return (mid - e.prevMid) / netTaker
}
