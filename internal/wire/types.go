// Package wire defines the typed records exchanged between the external
// decoder/parser boundary and the core engines: the L2 order event, the
// periodic depth snapshot, and the packed-time helpers shared by both.
package wire

import "fmt"

// Price is a fixed-point price in 0.01 currency units.
type Price uint16

// Quantity is signed so the LOB's deduction model can carry negative
// placeholder residuals for out-of-order cancels/takers (spec §3).
type Quantity int32

// WireQuantity is the unsigned quantity carried on the wire; it widens to
// Quantity once it enters the deduction book.
type WireQuantity uint16

// OrderID identifies a resting order across maker/cancel/taker events.
type OrderID uint32

// Side is BID or ASK.
type Side uint8

const (
	Bid Side = iota
	Ask
)

func (s Side) String() string {
	if s == Bid {
		return "BID"
	}
	return "ASK"
}

// EventKind distinguishes the three order-event shapes the LOB consumes.
type EventKind uint8

const (
	Maker EventKind = iota
	Cancel
	Taker
)

func (k EventKind) String() string {
	switch k {
	case Maker:
		return "MAKER"
	case Cancel:
		return "CANCEL"
	case Taker:
		return "TAKER"
	default:
		return "UNKNOWN"
	}
}

// PackedTime packs (hour, minute, second, decisecond) into 32 bits so that
// ordering comparisons are plain integer comparisons (spec §3).
type PackedTime uint32

// Pack builds a PackedTime from its components. decisecond is 0-9.
func Pack(hour, minute, second, decisecond uint8) PackedTime {
	return PackedTime(uint32(hour)<<24 | uint32(minute)<<16 | uint32(second)<<8 | uint32(decisecond))
}

func (t PackedTime) Hour() uint8       { return uint8(t >> 24) }
func (t PackedTime) Minute() uint8     { return uint8(t >> 16) }
func (t PackedTime) Second() uint8     { return uint8(t >> 8) }
func (t PackedTime) Decisecond() uint8 { return uint8(t) }

// SecondsSince returns the whole-second difference t - other, saturating at
// zero if t predates other (can happen across a day boundary).
func (t PackedTime) SecondsSince(other PackedTime) uint32 {
	toSeconds := func(p PackedTime) uint32 {
		return uint32(p.Hour())*3600 + uint32(p.Minute())*60 + uint32(p.Second())
	}
	cur := toSeconds(t)
	prev := toSeconds(other)
	if cur < prev {
		return 0
	}
	return cur - prev
}

func (t PackedTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%d", t.Hour(), t.Minute(), t.Second(), t.Decisecond())
}

// OrderEvent is the wire input to the LOB engine (spec §3).
type OrderEvent struct {
	Time   PackedTime
	Kind   EventKind
	Side   Side
	Price  Price
	Volume WireQuantity
	BidID  OrderID
	AskID  OrderID
}

// SameSideID returns the id that identifies the resting order on the
// event's own side — valid for MAKER and CANCEL.
func (e OrderEvent) SameSideID() OrderID {
	if e.Side == Bid {
		return e.BidID
	}
	return e.AskID
}

// OppositeSideID returns the maker-side id a TAKER event consumes.
func (e OrderEvent) OppositeSideID() OrderID {
	if e.Side == Bid {
		return e.AskID
	}
	return e.BidID
}

// DepthLevel is one (price, volume) pair within a snapshot's book.
type DepthLevel struct {
	Price  Price
	Volume uint32
}

// TradeDirection is the last-trade direction recorded on a snapshot.
type TradeDirection uint8

const (
	DirectionUp TradeDirection = iota
	DirectionDown
	DirectionFlat
)

// SnapshotRecord is the periodic full-depth snapshot wire input (spec §3).
type SnapshotRecord struct {
	Time         PackedTime
	Date         uint32 // YYYYMMDD, used for day-rollover detection
	LastPrice    Price
	TradeCount   uint64 // cumulative since session start
	Volume       uint32 // since previous snapshot, lots of 100 shares
	Turnover     uint64 // since previous snapshot, minor currency units
	Bids         []DepthLevel
	Asks         []DepthLevel
	Direction    TradeDirection
	AllVWAP      float64
	AllVolume    uint32
}

// Mid returns the mid-price from the first bid/ask level, or zero if either
// side has no depth.
func (s SnapshotRecord) Mid() float64 {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0
	}
	return (float64(s.Bids[0].Price) + float64(s.Asks[0].Price)) / 2
}

// Spread returns Asks[0].Price - Bids[0].Price, or zero if either side is
// empty.
func (s SnapshotRecord) Spread() float64 {
	if len(s.Bids) == 0 || len(s.Asks) == 0 {
		return 0
	}
	return float64(s.Asks[0].Price) - float64(s.Bids[0].Price)
}
