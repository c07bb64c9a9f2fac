package runtime

import "sync/atomic"

// ActiveFolderState is the shared counters all encoding/analysis
// workers cooperate on for one extracted folder (spec §5c):
// next_asset_index and processed are atomic so multiple workers can
// race to claim the next asset without a lock.
type ActiveFolderState struct {
	assets         []string
	nextIndex      atomic.Int64
	processed      atomic.Int64
}

// NewActiveFolderState fixes the asset list for one folder.
func NewActiveFolderState(assets []string) *ActiveFolderState {
	return &ActiveFolderState{assets: assets}
}

// NextAsset atomically claims and returns the next unclaimed asset
// code, or ok=false once the list is exhausted.
func (s *ActiveFolderState) NextAsset() (code string, ok bool) {
	idx := s.nextIndex.Add(1) - 1
	if idx >= int64(len(s.assets)) {
		return "", false
	}
	return s.assets[idx], true
}

// MarkProcessed increments the processed counter; callers call this
// once per asset, after that asset's pipeline has run to completion
// (success or a handled per-asset error).
func (s *ActiveFolderState) MarkProcessed() int64 {
	return s.processed.Add(1)
}

// Processed and Total report current progress for logging/metrics.
func (s *ActiveFolderState) Processed() int64 { return s.processed.Load() }
func (s *ActiveFolderState) Total() int        { return len(s.assets) }

// ShutdownFlag is the process-wide atomic cancellation flag (spec §5's
// "Cancellation"): checked at work-queue pops and at the top of each
// folder iteration. Per-event paths are never interrupted mid-way.
type ShutdownFlag struct {
	flag atomic.Bool
}

// Trigger requests shutdown; idempotent.
func (f *ShutdownFlag) Trigger() { f.flag.Store(true) }

// Requested reports whether shutdown has been triggered.
func (f *ShutdownFlag) Requested() bool { return f.flag.Load() }
