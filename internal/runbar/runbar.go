// Package runbar implements the adaptive run-bar resampler (spec §4.4):
// variable-duration "imbalance bars" that close when signed cumulative
// volume on either side first exceeds a threshold re-estimated once per
// trading day via bisection, smoothed with an EMA across days.
package runbar

import (
	"math"

	"github.com/typhfeng/stk-sub000/internal/wire"
)

// Tick is the resampler's mode-agnostic input. Order-stream and
// snapshot-stream callers each build a Tick via TickFromOrderEvent /
// TickFromSnapshot (spec §4.4.1's "two interchangeable input modes,
// same algorithm").
type Tick struct {
	Time PackedTime
	// Date is YYYYMMDD when known (snapshot stream) and 0 when not
	// (order stream); its presence selects the day-rollover detection
	// rule (SPEC_FULL §3 supplemented feature 4 / §9 Open Question 2).
	Date      uint32
	Price     wire.Price
	Volume    uint32
	Turnover  uint64
	LabelLong bool
}

// PackedTime is re-exported so callers don't need to import wire just
// to build a Tick.
type PackedTime = wire.PackedTime

// TickFromOrderEvent builds a Tick from a TAKER order event: side
// determines the label (BID-side taker = buy pressure), volume is the
// event's volume, and turnover is approximated as price×volume since
// the order stream carries no separate turnover field.
func TickFromOrderEvent(ev wire.OrderEvent) Tick {
	return Tick{
		Time:      ev.Time,
		Price:     ev.Price,
		Volume:    uint32(ev.Volume),
		Turnover:  uint64(ev.Price) * uint64(ev.Volume),
		LabelLong: ev.Side == wire.Bid,
	}
}

// TickFromSnapshot builds a Tick from a snapshot record: label_long =
// (direction == up), full snapshot volume attributed to whichever side
// the label picks (spec §4.4.1).
func TickFromSnapshot(s wire.SnapshotRecord) Tick {
	return Tick{
		Time:      s.Time,
		Date:      s.Date,
		Price:     s.LastPrice,
		Volume:    s.Volume,
		Turnover:  s.Turnover,
		LabelLong: s.Direction == wire.DirectionUp,
	}
}

// Bar is the emitted record of spec §4.4.2 step 4.
type Bar struct {
	Time   wire.PackedTime
	Open   wire.Price
	High   wire.Price
	Low    wire.Price
	Close  wire.Price
	VWAP   float64
	DeltaT uint32
}

// Config parameterizes threshold re-estimation and the emit time guard.
type Config struct {
	// MinBarDurationSeconds, if > 0, suppresses emission until at least
	// this many seconds have elapsed since the last emitted bar (spec
	// §4.4.2 step 3).
	MinBarDurationSeconds uint32
	// EMADays sets the smoothing constant alpha = 2/(EMADays+1) for the
	// cross-day threshold EMA. EMADays <= 0 disables smoothing (the new
	// daily threshold replaces the EMA outright).
	EMADays int
	// TargetPeriodSeconds and TradeHoursPerDay define the expected daily
	// bar count used by find_run_threshold: expected = 3600 *
	// TradeHoursPerDay / TargetPeriodSeconds.
	TargetPeriodSeconds float64
	TradeHoursPerDay    float64
}

// Resampler holds one bar-in-progress plus the rolling daily
// labels/volumes vectors used for threshold re-estimation.
type Resampler struct {
	cfg Config

	// bar-in-progress state (spec §4.4.2)
	haveBarOpen bool
	open, high, low, close wire.Price
	cummBuy, cummSell      float64
	cummVolume             uint64
	cummTurnover           uint64
	cummDeltaT             uint32

	haveLastTick bool
	lastTickTime wire.PackedTime

	haveLastSample      bool
	lastSampleTimestamp wire.PackedTime

	dailyBarCount int

	// daily labels/volumes vectors (spec §4.4.3)
	labels  []bool
	volumes []float64

	emaThreshold   float64
	haveEMA        bool
	dailyThreshold float64

	// rollover-detection bookkeeping
	haveAnyTick bool
	haveDate    bool
	lastDate    uint32
	lastHour    uint8
}

// New builds a Resampler with the given configuration.
func New(cfg Config) *Resampler {
	return &Resampler{cfg: cfg}
}

// EMAThreshold returns the current smoothed threshold, for diagnostics
// and tests.
func (r *Resampler) EMAThreshold() float64 { return r.emaThreshold }

// DailyBarCount returns the number of bars emitted since the last day
// rollover.
func (r *Resampler) DailyBarCount() int { return r.dailyBarCount }

// Resample processes one tick, returning the emitted bar on a formation
// boundary or nil otherwise (spec §4.4.4's resample(event) → Option<Bar>).
func (r *Resampler) Resample(t Tick) *Bar {
	r.maybeRollover(t)
	r.recordRolloverState(t)

	r.labels = append(r.labels, t.LabelLong)
	r.volumes = append(r.volumes, float64(t.Volume))

	if !r.haveBarOpen {
		r.open, r.high, r.low = t.Price, t.Price, t.Price
		r.haveBarOpen = true
	} else {
		if t.Price > r.high {
			r.high = t.Price
		}
		if t.Price < r.low {
			r.low = t.Price
		}
	}
	r.close = t.Price

	if t.LabelLong {
		r.cummBuy += float64(t.Volume)
	} else {
		r.cummSell += float64(t.Volume)
	}
	r.cummVolume += uint64(t.Volume)
	r.cummTurnover += t.Turnover

	if r.haveLastTick {
		r.cummDeltaT += t.Time.SecondsSince(r.lastTickTime)
	}
	r.lastTickTime = t.Time
	r.haveLastTick = true

	theta := math.Max(r.cummBuy, r.cummSell)
	threshold := math.Max(r.emaThreshold, 0)
	if theta < threshold {
		return nil
	}
	if r.cfg.MinBarDurationSeconds > 0 && r.haveLastSample {
		elapsed := t.Time.SecondsSince(r.lastSampleTimestamp)
		if elapsed < r.cfg.MinBarDurationSeconds {
			return nil
		}
	}

	var vwap float64
	if r.cummVolume > 0 {
		vwap = float64(r.cummTurnover) / float64(r.cummVolume)
	} else {
		vwap = float64(r.close)
	}

	bar := &Bar{
		Time:   t.Time,
		Open:   r.open,
		High:   r.high,
		Low:    r.low,
		Close:  r.close,
		VWAP:   vwap,
		DeltaT: r.cummDeltaT,
	}

	r.cummBuy, r.cummSell = 0, 0
	r.open, r.high, r.low = t.Price, t.Price, t.Price
	r.close = t.Price
	r.cummVolume = 0
	r.cummTurnover = 0
	r.cummDeltaT = 0
	r.lastSampleTimestamp = t.Time
	r.haveLastSample = true
	r.dailyBarCount++

	return bar
}

// CloseDay is the explicit day-boundary call of spec §4.4.4, for
// callers (e.g. end-of-file flush) where a rollover cannot be inferred
// from the stream itself.
func (r *Resampler) CloseDay() {
	r.rolloverNow()
}

func (r *Resampler) maybeRollover(t Tick) {
	if !r.haveAnyTick {
		return
	}
	var isNewDay bool
	if t.Date != 0 && r.haveDate {
		isNewDay = t.Date != r.lastDate
	} else if t.Date == 0 {
		isNewDay = t.Time.Hour() == 9 && r.lastHour != 9
	}
	if isNewDay {
		r.rolloverNow()
	}
}

func (r *Resampler) recordRolloverState(t Tick) {
	r.haveAnyTick = true
	if t.Date != 0 {
		r.lastDate = t.Date
		r.haveDate = true
	}
	r.lastHour = t.Time.Hour()
}

func (r *Resampler) rolloverNow() {
	if len(r.labels) > 0 {
		r.dailyThreshold = r.findRunThreshold()
		if !r.haveEMA {
			r.emaThreshold = r.dailyThreshold
			r.haveEMA = true
		} else {
			alpha := 1.0
			if r.cfg.EMADays > 0 {
				alpha = 2.0 / (float64(r.cfg.EMADays) + 1)
			}
			r.emaThreshold = alpha*r.dailyThreshold + (1-alpha)*r.emaThreshold
		}
	}
	r.labels = r.labels[:0]
	r.volumes = r.volumes[:0]
	r.dailyBarCount = 0
}

// findRunThreshold implements spec §4.4.3's bisection search.
func (r *Resampler) findRunThreshold() float64 {
	if len(r.volumes) == 0 {
		return r.emaThreshold
	}
	xMin := r.volumes[0]
	var sum float64
	for _, v := range r.volumes {
		if v < xMin {
			xMin = v
		}
		sum += v
	}
	xMax := sum

	expected := 3600 * r.cfg.TradeHoursPerDay / r.cfg.TargetPeriodSeconds
	tol := 0.05 * expected

	xMid := (xMin + xMax) / 2
	for i := 0; i < 20; i++ {
		xMid = (xMin + xMax) / 2
		count := float64(r.sampleCount(xMid))
		if math.Abs(count-expected) <= tol || (xMax-xMin) < 100 {
			return xMid
		}
		if count > expected {
			xMin = xMid
		} else {
			xMax = xMid
		}
	}
	return xMid
}

// sampleCount replays the day's labels/volumes at threshold x, counting
// how many bars would form: two independent signed accumulators,
// either crossing x resets both and counts one bar.
func (r *Resampler) sampleCount(x float64) int {
	var buyAcc, sellAcc float64
	count := 0
	for i, label := range r.labels {
		vol := r.volumes[i]
		if label {
			buyAcc += vol
		} else {
			sellAcc += vol
		}
		if buyAcc >= x || sellAcc >= x {
			count++
			buyAcc, sellAcc = 0, 0
		}
	}
	return count
}
