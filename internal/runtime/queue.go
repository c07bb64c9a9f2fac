package runtime

import (
	"context"

	"github.com/google/uuid"
)

// AssetDayTask is one unit of work: an extracted asset-day folder
// ready for the encoding/analysis worker (spec §5). ID is a
// process-local correlation identifier threaded through logs and
// metrics labels (SPEC_FULL §2's google/uuid wiring).
type AssetDayTask struct {
	ID        uuid.UUID
	AssetCode string
	Date      int32 // YYYYMMDD
	FolderDir string
}

// NewAssetDayTask stamps a fresh correlation ID onto a task.
func NewAssetDayTask(assetCode string, date int32, folderDir string) AssetDayTask {
	return AssetDayTask{ID: uuid.New(), AssetCode: assetCode, Date: date, FolderDir: folderDir}
}

// Queue is a bounded channel of ready folders (spec §5's "bounded work
// queue"). Push blocks once the queue is full; Pop blocks until an
// item is ready or ctx is cancelled.
type Queue struct {
	ch chan AssetDayTask
}

// NewQueue builds a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	return &Queue{ch: make(chan AssetDayTask, capacity)}
}

// Push enqueues t, blocking if the queue is full, unless ctx is done
// first.
func (q *Queue) Push(ctx context.Context, t AssetDayTask) error {
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals no further tasks will be pushed; Pop drains remaining
// items before reporting ok=false.
func (q *Queue) Close() { close(q.ch) }

// Pop blocks for the next task, or returns ok=false once the queue is
// closed and drained, or returns ctx's error if ctx is cancelled
// first.
func (q *Queue) Pop(ctx context.Context) (AssetDayTask, bool, error) {
	select {
	case t, ok := <-q.ch:
		return t, ok, nil
	case <-ctx.Done():
		return AssetDayTask{}, false, ctx.Err()
	}
}

// Depth reports the number of tasks currently buffered.
func (q *Queue) Depth() int { return len(q.ch) }
