package codec

// field is one column of a record's bit-packed schema table (spec §6):
// a name (for diagnostics), a bit width, and whether the column is
// delta-encoded against the same field in the previous record.
type field struct {
	name  string
	width uint8
	delta bool
}

// orderEventSchema mirrors wire.OrderEvent field-by-field. Time is never
// delta-encoded since PackedTime's own saturating-delta helper
// (wire.PackedTime.SecondsSince) is how callers compare it; ids and
// price are delta-encoded since consecutive events from the same feed
// cluster tightly around a slowly moving price and a monotonically
// assigned id space.
var orderEventSchema = []field{
	{"hour", 5, false},
	{"minute", 6, false},
	{"second", 6, false},
	{"decisecond", 7, false},
	{"kind", 2, false},
	{"side", 1, false},
	{"price", 17, true},
	{"volume", 17, true},
	{"bidID", 33, true},
	{"askID", 33, true},
}

// snapshotHeaderSchema covers the fixed scalar fields of wire.SnapshotRecord;
// the ten-deep bid/ask depth arrays are packed separately (see record.go)
// since their width depends on the fixed ladder size, not a single field
// width.
var snapshotHeaderSchema = []field{
	{"hour", 5, false},
	{"minute", 6, false},
	{"second", 6, false},
	{"decisecond", 7, false},
	{"date", 25, false},
	{"lastPrice", 17, true},
	{"tradeCount", 41, true},
	{"volume", 33, true},
	{"turnover", 41, true},
	{"direction", 2, false},
	{"allVWAPBits", 64, false},
	{"allVolume", 33, true},
}

// depthLevelSchema is applied per DepthLevel entry in the fixed 10-deep
// ladder.
var depthLevelSchema = []field{
	{"price", 17, true},
	{"volume", 33, true},
}

// zigzag maps a signed delta onto the unsigned range so it can be packed
// as a plain bit field, matching the common delta-encoding trick the
// wire format's "delta-encoding toggle per column" implies.
func zigzagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

func zigzagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}
