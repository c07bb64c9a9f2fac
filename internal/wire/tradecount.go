package wire

// TradeCountDelta computes the trade-count delta between two consecutive
// snapshots. The wire encoder asserts monotonic non-decrease, but real feeds
// occasionally violate it at day boundaries; per SPEC_FULL.md's Open
// Question log this clamps to zero and reports the violation rather than
// failing the asset-day.
func TradeCountDelta(current, previous uint64) (delta uint64, violated bool) {
	if current < previous {
		return 0, true
	}
	return current - previous, false
}
