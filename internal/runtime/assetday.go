package runtime

import (
	"github.com/typhfeng/stk-sub000/internal/features"
	"github.com/typhfeng/stk-sub000/internal/featurestore"
	"github.com/typhfeng/stk-sub000/internal/lob"
	"github.com/typhfeng/stk-sub000/internal/runbar"
	"github.com/typhfeng/stk-sub000/internal/session"
	"github.com/typhfeng/stk-sub000/internal/snapshot"
	"github.com/typhfeng/stk-sub000/internal/wire"
)

// defaultDepth is the top-K level count the tick feature engine reads
// (spec §6: snapshot CSV carries 10 ask/bid levels).
const defaultDepth = 10

// defaultZScoreWindow is the rolling z-score window W (spec §4.6.3).
const defaultZScoreWindow = 600

// AssetDayPipeline wires one asset-day's engines together in the
// strict sequential order spec §5 requires: every event mutates the
// LOB/resampler/features before the next event is read, all on one
// worker's goroutine.
type AssetDayPipeline struct {
	Asset string
	Date  int32

	Engine    *lob.Engine
	Gate      *session.Gate
	Resampler *runbar.Resampler
	Snapshot  *snapshot.Adapter
	Cascade   *features.Cascade
	Store     *featurestore.Store

	metrics      *Metrics
	flow         features.FlowCounters
	haveLastTime bool
	lastTime     wire.PackedTime
	tickIndex    int
}

// NewAssetDayPipeline builds a pipeline for one asset-day, pushing
// rows into store.
func NewAssetDayPipeline(asset string, date int32, store *featurestore.Store, metrics *Metrics) *AssetDayPipeline {
	tick := features.NewTickEngine(defaultDepth, defaultZScoreWindow)
	return &AssetDayPipeline{
		Asset:     asset,
		Date:      date,
		Engine:    lob.NewEngine(),
		Gate:      session.NewGate(),
		Resampler: runbar.New(defaultRunbarConfig()),
		Snapshot:  snapshot.New(),
		Cascade:   features.NewCascade(tick, defaultZScoreWindow),
		Store:     store,
		metrics:   metrics,
	}
}

func defaultRunbarConfig() runbar.Config {
	return runbar.Config{
		MinBarDurationSeconds: 30,
		EMADays:               5,
		TargetPeriodSeconds:   300,
		TradeHoursPerDay:      4,
	}
}

// ApplyOrderEvent feeds one order-stream event (spec §4.2's deduction
// LOB) through the engine, the run-bar resampler, and the order-flow
// counters the next gated snapshot will read. Ticks outside the OPEN
// session state are skipped entirely (neither the book nor the
// resampler observes them).
func (p *AssetDayPipeline) ApplyOrderEvent(ev wire.OrderEvent) {
	state, isStart := p.Gate.Update(ev.Time.Hour(), ev.Time.Minute())
	if isStart {
		p.Snapshot.StartSession(ev.Time)
	}
	if state != session.Open {
		return
	}

	accepted := p.Engine.Apply(ev)
	if p.metrics != nil {
		p.metrics.EventsProcessed.Inc()
	}
	if !accepted {
		return // LOBRejected: a zero-volume MAKER, already counted by the engine
	}

	switch ev.Kind {
	case wire.Maker:
		p.flow.RecordMaker()
	case wire.Cancel:
		p.flow.RecordCancel(false)
	case wire.Taker:
		p.flow.RecordTaker(ev.Side, uint32(ev.Volume))
	}

	if bar := p.Resampler.Resample(runbar.TickFromOrderEvent(ev)); bar != nil && p.metrics != nil {
		p.metrics.BarsEmitted.Inc()
	}
}

// ApplySnapshot feeds one periodic depth snapshot through the
// snapshot adapter (spec §4.3), the run-bar resampler, and — once per
// gated snapshot — the tick feature engine and minute/hour cascade
// (spec §4.6, §4.7), reading the LOB's maintained top-K view (built up
// from the order stream) rather than the snapshot's own depth arrays.
// Rows are pushed into the feature store with parent_index = 0 for the
// tick level. Minute/hour rows carry the index of the most recent tick
// row already in the store when the rollover is detected; the tick row
// of the snapshot that triggers the rollover is pushed afterwards.
func (p *AssetDayPipeline) ApplySnapshot(s wire.SnapshotRecord) error {
	state, isStart := p.Gate.Update(s.Time.Hour(), s.Time.Minute())
	if isStart {
		p.Snapshot.StartSession(s.Time)
	}
	if state != session.Open {
		return nil
	}

	p.Snapshot.Update(s)

	if bar := p.Resampler.Resample(runbar.TickFromSnapshot(s)); bar != nil && p.metrics != nil {
		p.metrics.BarsEmitted.Inc()
	}

	dt := 1.0
	if p.haveLastTime {
		dt = float64(s.Time.SecondsSince(p.lastTime))
		if dt <= 0 {
			dt = 1
		}
	}
	p.lastTime = s.Time
	p.haveLastTime = true

	res := p.Cascade.Update(p.Engine, p.flow, dt, s.Time.Hour(), s.Time.Minute(), s.LastPrice, s.Volume, p.tickIndex)
	p.flow = features.FlowCounters{}

	if res.TickRow != nil {
		idx, err := p.Store.PushRow(featurestore.Tick, res.TickRow, 0, p.Date)
		if err != nil {
			return err
		}
		p.tickIndex = idx
		if p.metrics != nil {
			p.metrics.RowsPushed.Inc()
		}
	}
	if res.MinuteBar != nil {
		if _, err := p.Store.PushRow(featurestore.Minute, res.MinuteBar.Values, int32(res.MinuteBar.ParentIndex), p.Date); err != nil {
			return err
		}
		if p.metrics != nil {
			p.metrics.RowsPushed.Inc()
			p.metrics.BarsEmitted.Inc()
		}
	}
	if res.HourBar != nil {
		if _, err := p.Store.PushRow(featurestore.Hour, res.HourBar.Values, int32(res.HourBar.ParentIndex), p.Date); err != nil {
			return err
		}
		if p.metrics != nil {
			p.metrics.RowsPushed.Inc()
			p.metrics.BarsEmitted.Inc()
		}
	}
	return nil
}

// CloseDay finalizes the day: the run-bar resampler re-estimates its
// threshold and rolls its EMA (spec §4.4.3).
func (p *AssetDayPipeline) CloseDay() {
	p.Resampler.CloseDay()
	p.Store.MarkDateComplete(p.Date)
}
