package main

import (
	"os"
	"sort"

	"github.com/typhfeng/stk-sub000/internal/codec"
	"github.com/typhfeng/stk-sub000/internal/runtime"
	"github.com/typhfeng/stk-sub000/internal/wire"
	perr "github.com/typhfeng/stk-sub000/pkg/errors"
)

// timedEvent is either an order-stream event or a periodic snapshot,
// tagged with its packed time so the two streams can be merged into
// one strictly time-ordered replay (spec §5: "every event mutates the
// LOB/resampler/features before the next event is read").
type timedEvent struct {
	time     wire.PackedTime
	order    *wire.OrderEvent
	snapshot *wire.SnapshotRecord
}

func (e timedEvent) apply(p *runtime.AssetDayPipeline) error {
	if e.order != nil {
		p.ApplyOrderEvent(*e.order)
		return nil
	}
	return p.ApplySnapshot(*e.snapshot)
}

// decodeEvents reads every order and snapshot binary file for one
// asset-day and merges them by packed time, stable on ties so that
// within the same timestamp orders are replayed before the snapshot
// they fed (matching the CSV encoder's emission order per spec §6).
func decodeEvents(orderFiles, snapshotFiles []string, dict []byte) ([]timedEvent, error) {
	var out []timedEvent

	for _, path := range orderFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, perr.Wrap(perr.ArchiveMissing, err, "read "+path)
		}
		f, err := codec.ReadFile(path, raw, dict)
		if err != nil {
			return nil, err
		}
		for i := range f.Orders {
			ev := f.Orders[i]
			out = append(out, timedEvent{time: ev.Time, order: &ev})
		}
	}
	for _, path := range snapshotFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, perr.Wrap(perr.ArchiveMissing, err, "read "+path)
		}
		f, err := codec.ReadFile(path, raw, dict)
		if err != nil {
			return nil, err
		}
		for i := range f.Records {
			rec := f.Records[i]
			out = append(out, timedEvent{time: rec.Time, snapshot: &rec})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].time != out[j].time {
			return out[i].time < out[j].time
		}
		return out[i].order != nil && out[j].order == nil
	})
	return out, nil
}
