// Package snapshot implements the snapshot LOB adapter (spec §4.3): a
// second update path that derives delta-time, mid/spread, per-period
// VWAP, and direction from periodic full-depth snapshots rather than
// order events, appending each field to its own CBuf.
package snapshot

import (
	"github.com/typhfeng/stk-sub000/internal/cbuf"
	"github.com/typhfeng/stk-sub000/internal/wire"
)

// Capacity is the default per-field CBuf depth. Chosen generously
// (one trading day of 3-second snapshots, §6's snapshot_3s convention,
// is ~4800 samples); callers needing a different retention window can
// construct an Adapter with NewWithCapacity.
const Capacity = 8192

// Row is one period's derived values, appended atomically across the
// seven per-field CBufs.
type Row struct {
	DeltaT    uint32
	Price     wire.Price
	Volume    uint32
	VWAP      float64
	Direction wire.TradeDirection
	Spread    float64
	Mid       float64
}

// Adapter holds the per-field CBufs and the previous-period state
// needed to derive delta_t, VWAP-equality direction fallback, and
// session-start zeroing.
type Adapter struct {
	deltaT    *cbuf.CBuf[uint32]
	price     *cbuf.CBuf[wire.Price]
	volume    *cbuf.CBuf[uint32]
	vwap      *cbuf.CBuf[float64]
	direction *cbuf.CBuf[wire.TradeDirection]
	spread    *cbuf.CBuf[float64]
	mid       *cbuf.CBuf[float64]

	haveLast      bool
	lastTime      wire.PackedTime
	lastVWAP      float64
	sessionStart  wire.PackedTime
	haveSessionAt bool
}

// New builds an Adapter with the default capacity.
func New() *Adapter { return NewWithCapacity(Capacity) }

// NewWithCapacity builds an Adapter whose per-field CBufs hold n rows.
func NewWithCapacity(n int) *Adapter {
	return &Adapter{
		deltaT:    cbuf.New[uint32](n),
		price:     cbuf.New[wire.Price](n),
		volume:    cbuf.New[uint32](n),
		vwap:      cbuf.New[float64](n),
		direction: cbuf.New[wire.TradeDirection](n),
		spread:    cbuf.New[float64](n),
		mid:       cbuf.New[float64](n),
	}
}

// StartSession resets delta-time zeroing to begin at t, per spec §4.3
// ("delta time from the previous snapshot, zeroed on session start").
// Callers invoke this on the session-gate's is_session_start transition
// (spec §4.5).
func (a *Adapter) StartSession(t wire.PackedTime) {
	a.sessionStart = t
	a.haveSessionAt = true
	a.haveLast = false
}

// Update derives one period's row from s and appends it to the
// per-field CBufs, returning the row for callers (e.g. the tick feature
// engine) that need it without re-reading the buffers.
func (a *Adapter) Update(s wire.SnapshotRecord) Row {
	var deltaT uint32
	switch {
	case !a.haveSessionAt:
		// No explicit session-start signal yet; treat the first snapshot
		// seen as the session anchor.
		a.sessionStart = s.Time
		a.haveSessionAt = true
	case !a.haveLast:
		deltaT = s.Time.SecondsSince(a.sessionStart)
	default:
		deltaT = s.Time.SecondsSince(a.lastTime)
	}

	mid := s.Mid()
	spread := s.Spread()

	var vwap float64
	if s.Volume > 0 {
		vwap = float64(s.Turnover) / (float64(s.Volume) * 100)
	}

	var direction wire.TradeDirection
	switch {
	case a.haveLast && vwap == a.lastVWAP:
		direction = s.Direction
	case vwap > a.lastVWAP:
		direction = wire.DirectionUp
	default:
		direction = wire.DirectionDown
	}

	row := Row{
		DeltaT:    deltaT,
		Price:     s.LastPrice,
		Volume:    s.Volume,
		VWAP:      vwap,
		Direction: direction,
		Spread:    spread,
		Mid:       mid,
	}

	a.deltaT.PushBack(row.DeltaT)
	a.price.PushBack(row.Price)
	a.volume.PushBack(row.Volume)
	a.vwap.PushBack(row.VWAP)
	a.direction.PushBack(row.Direction)
	a.spread.PushBack(row.Spread)
	a.mid.PushBack(row.Mid)

	a.lastTime = s.Time
	a.lastVWAP = vwap
	a.haveLast = true

	return row
}

// Len reports the number of rows appended so far (capped at capacity).
func (a *Adapter) Len() int { return a.deltaT.Size() }

// DeltaT, Price, Volume, VWAP, Direction, Spread, and Mid expose the
// per-field CBufs for downstream readers (feature engines, debug CSV
// dump) without copying.
func (a *Adapter) DeltaT() *cbuf.CBuf[uint32]                { return a.deltaT }
func (a *Adapter) Price() *cbuf.CBuf[wire.Price]             { return a.price }
func (a *Adapter) Volume() *cbuf.CBuf[uint32]                { return a.volume }
func (a *Adapter) VWAP() *cbuf.CBuf[float64]                 { return a.vwap }
func (a *Adapter) Direction() *cbuf.CBuf[wire.TradeDirection] { return a.direction }
func (a *Adapter) Spread() *cbuf.CBuf[float64]               { return a.spread }
func (a *Adapter) Mid() *cbuf.CBuf[float64]                  { return a.mid }
