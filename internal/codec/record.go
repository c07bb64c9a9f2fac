// Package codec implements the packed-binary wire format of spec.md §6:
// a zstd-compressed (optionally dictionary-trained), count-prefixed,
// bit-packed array of either OrderEvent or SnapshotRecord values. Only
// decoding is required by the core; encoding is kept alongside it so the
// round trip can be tested without a real archive, matching the
// DOMAIN STACK note that klauspost/compress/zstd is exercised "for
// round-trip tests" as well as production decoding.
package codec

import (
	"fmt"
	"math"

	"github.com/typhfeng/stk-sub000/internal/wire"
)

func widthOf(schema []field, name string) uint8 {
	for _, f := range schema {
		if f.name == name {
			return f.width
		}
	}
	panic("codec: unknown field " + name)
}

var (
	orderHour       = widthOf(orderEventSchema, "hour")
	orderMinute     = widthOf(orderEventSchema, "minute")
	orderSecond     = widthOf(orderEventSchema, "second")
	orderDecisecond = widthOf(orderEventSchema, "decisecond")
	orderKind       = widthOf(orderEventSchema, "kind")
	orderSide       = widthOf(orderEventSchema, "side")
	orderPrice      = widthOf(orderEventSchema, "price")
	orderVolume     = widthOf(orderEventSchema, "volume")
	orderBidID      = widthOf(orderEventSchema, "bidID")
	orderAskID      = widthOf(orderEventSchema, "askID")
)

// EncodeOrderEvents packs events into a single bit-aligned buffer,
// delta-encoding price/volume/bidID/askID against the previous event.
func EncodeOrderEvents(events []wire.OrderEvent) []byte {
	w := NewBitWriter()
	var prevPrice, prevVolume, prevBid, prevAsk int64
	for _, ev := range events {
		w.WriteBits(uint64(ev.Time.Hour()), orderHour)
		w.WriteBits(uint64(ev.Time.Minute()), orderMinute)
		w.WriteBits(uint64(ev.Time.Second()), orderSecond)
		w.WriteBits(uint64(ev.Time.Decisecond()), orderDecisecond)
		w.WriteBits(uint64(ev.Kind), orderKind)
		w.WriteBits(uint64(ev.Side), orderSide)

		price := int64(ev.Price)
		w.WriteBits(zigzagEncode(price-prevPrice), orderPrice)
		prevPrice = price

		vol := int64(ev.Volume)
		w.WriteBits(zigzagEncode(vol-prevVolume), orderVolume)
		prevVolume = vol

		bid := int64(ev.BidID)
		w.WriteBits(zigzagEncode(bid-prevBid), orderBidID)
		prevBid = bid

		ask := int64(ev.AskID)
		w.WriteBits(zigzagEncode(ask-prevAsk), orderAskID)
		prevAsk = ask
	}
	return w.Bytes()
}

// DecodeOrderEvents unpacks exactly count events from buf.
func DecodeOrderEvents(buf []byte, count int) ([]wire.OrderEvent, error) {
	r := NewBitReader(buf)
	out := make([]wire.OrderEvent, 0, count)
	var prevPrice, prevVolume, prevBid, prevAsk int64
	for i := 0; i < count; i++ {
		if r.Exhausted() {
			return nil, fmt.Errorf("codec: order event stream truncated at record %d/%d", i, count)
		}
		hour := uint8(r.ReadBits(orderHour))
		minute := uint8(r.ReadBits(orderMinute))
		second := uint8(r.ReadBits(orderSecond))
		deci := uint8(r.ReadBits(orderDecisecond))
		kind := wire.EventKind(r.ReadBits(orderKind))
		side := wire.Side(r.ReadBits(orderSide))

		prevPrice += zigzagDecode(r.ReadBits(orderPrice))
		prevVolume += zigzagDecode(r.ReadBits(orderVolume))
		prevBid += zigzagDecode(r.ReadBits(orderBidID))
		prevAsk += zigzagDecode(r.ReadBits(orderAskID))

		out = append(out, wire.OrderEvent{
			Time:   wire.Pack(hour, minute, second, deci),
			Kind:   kind,
			Side:   side,
			Price:  wire.Price(prevPrice),
			Volume: wire.WireQuantity(prevVolume),
			BidID:  wire.OrderID(prevBid),
			AskID:  wire.OrderID(prevAsk),
		})
	}
	return out, nil
}

var (
	snapHour       = widthOf(snapshotHeaderSchema, "hour")
	snapMinute     = widthOf(snapshotHeaderSchema, "minute")
	snapSecond     = widthOf(snapshotHeaderSchema, "second")
	snapDecisecond = widthOf(snapshotHeaderSchema, "decisecond")
	snapDate       = widthOf(snapshotHeaderSchema, "date")
	snapLastPrice  = widthOf(snapshotHeaderSchema, "lastPrice")
	snapTradeCount = widthOf(snapshotHeaderSchema, "tradeCount")
	snapVolume     = widthOf(snapshotHeaderSchema, "volume")
	snapTurnover   = widthOf(snapshotHeaderSchema, "turnover")
	snapDirection  = widthOf(snapshotHeaderSchema, "direction")
	snapAllVWAP    = widthOf(snapshotHeaderSchema, "allVWAPBits")
	snapAllVolume  = widthOf(snapshotHeaderSchema, "allVolume")

	depthPrice  = widthOf(depthLevelSchema, "price")
	depthVolume = widthOf(depthLevelSchema, "volume")
)

// depthDepth is the fixed ladder size the snapshot CSV schema carries
// (10 ask + 10 bid prices/volumes, spec §6).
const depthDepth = 10

// EncodeSnapshots packs records into a single bit-aligned buffer.
// Depth-level prices/volumes are delta-encoded per ladder slot against
// the same slot in the previous record; missing slots (a record with
// fewer than depthDepth levels) pack as zero.
func EncodeSnapshots(records []wire.SnapshotRecord) []byte {
	w := NewBitWriter()
	var prevLast, prevTrades, prevVol, prevTurnover, prevAllVol int64
	var prevBids, prevAsks [depthDepth]wire.DepthLevel

	for _, s := range records {
		w.WriteBits(uint64(s.Time.Hour()), snapHour)
		w.WriteBits(uint64(s.Time.Minute()), snapMinute)
		w.WriteBits(uint64(s.Time.Second()), snapSecond)
		w.WriteBits(uint64(s.Time.Decisecond()), snapDecisecond)
		w.WriteBits(uint64(s.Date), snapDate)

		last := int64(s.LastPrice)
		w.WriteBits(zigzagEncode(last-prevLast), snapLastPrice)
		prevLast = last

		trades := int64(s.TradeCount)
		w.WriteBits(zigzagEncode(trades-prevTrades), snapTradeCount)
		prevTrades = trades

		vol := int64(s.Volume)
		w.WriteBits(zigzagEncode(vol-prevVol), snapVolume)
		prevVol = vol

		turn := int64(s.Turnover)
		w.WriteBits(zigzagEncode(turn-prevTurnover), snapTurnover)
		prevTurnover = turn

		w.WriteBits(uint64(s.Direction), snapDirection)
		w.WriteBits(math.Float64bits(s.AllVWAP), snapAllVWAP)

		allVol := int64(s.AllVolume)
		w.WriteBits(zigzagEncode(allVol-prevAllVol), snapAllVolume)
		prevAllVol = allVol

		writeLadder(w, s.Bids, &prevBids)
		writeLadder(w, s.Asks, &prevAsks)
	}
	return w.Bytes()
}

func writeLadder(w *BitWriter, levels []wire.DepthLevel, prev *[depthDepth]wire.DepthLevel) {
	for i := 0; i < depthDepth; i++ {
		var cur wire.DepthLevel
		if i < len(levels) {
			cur = levels[i]
		}
		w.WriteBits(zigzagEncode(int64(cur.Price)-int64(prev[i].Price)), depthPrice)
		w.WriteBits(zigzagEncode(int64(cur.Volume)-int64(prev[i].Volume)), depthVolume)
		prev[i] = cur
	}
}

func readLadder(r *BitReader, prev *[depthDepth]wire.DepthLevel) []wire.DepthLevel {
	out := make([]wire.DepthLevel, depthDepth)
	for i := 0; i < depthDepth; i++ {
		deltaPrice := zigzagDecode(r.ReadBits(depthPrice))
		deltaVolume := zigzagDecode(r.ReadBits(depthVolume))
		prev[i].Price = wire.Price(int64(prev[i].Price) + deltaPrice)
		prev[i].Volume = uint32(int64(prev[i].Volume) + deltaVolume)
		out[i] = prev[i]
	}
	return out
}

// DecodeSnapshots unpacks exactly count records from buf.
func DecodeSnapshots(buf []byte, count int) ([]wire.SnapshotRecord, error) {
	r := NewBitReader(buf)
	out := make([]wire.SnapshotRecord, 0, count)
	var prevLast, prevTrades, prevVol, prevTurnover, prevAllVol int64
	var prevBids, prevAsks [depthDepth]wire.DepthLevel

	for i := 0; i < count; i++ {
		if r.Exhausted() {
			return nil, fmt.Errorf("codec: snapshot stream truncated at record %d/%d", i, count)
		}
		hour := uint8(r.ReadBits(snapHour))
		minute := uint8(r.ReadBits(snapMinute))
		second := uint8(r.ReadBits(snapSecond))
		deci := uint8(r.ReadBits(snapDecisecond))
		date := uint32(r.ReadBits(snapDate))

		prevLast += zigzagDecode(r.ReadBits(snapLastPrice))
		prevTrades += zigzagDecode(r.ReadBits(snapTradeCount))
		prevVol += zigzagDecode(r.ReadBits(snapVolume))
		prevTurnover += zigzagDecode(r.ReadBits(snapTurnover))
		direction := wire.TradeDirection(r.ReadBits(snapDirection))
		allVWAP := math.Float64frombits(r.ReadBits(snapAllVWAP))
		prevAllVol += zigzagDecode(r.ReadBits(snapAllVolume))

		bids := readLadder(r, &prevBids)
		asks := readLadder(r, &prevAsks)

		out = append(out, wire.SnapshotRecord{
			Time:       wire.Pack(hour, minute, second, deci),
			Date:       date,
			LastPrice:  wire.Price(prevLast),
			TradeCount: uint64(prevTrades),
			Volume:     uint32(prevVol),
			Turnover:   uint64(prevTurnover),
			Direction:  direction,
			AllVWAP:    allVWAP,
			AllVolume:  uint32(prevAllVol),
			Bids:       bids,
			Asks:       asks,
		})
	}
	return out, nil
}
