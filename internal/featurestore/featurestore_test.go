package featurestore

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New([3]int{2, 1, 1})
}

func TestPushRowRejectsWrongWidth(t *testing.T) {
	s := newTestStore()
	_, err := s.PushRow(Tick, []float64{1}, 0, 20260101)
	assert.Error(t, err)
}

func TestPushRowAppendsAcrossAllColumns(t *testing.T) {
	s := newTestStore()
	idx, err := s.PushRow(Tick, []float64{1, 2}, 0, 20260101)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	idx, err = s.PushRow(Tick, []float64{3, 4}, 0, 20260101)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	col0, err := s.ColumnView(Tick, 0)
	require.NoError(t, err)
	col1, err := s.ColumnView(Tick, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3}, col0)
	assert.Equal(t, []float64{2, 4}, col1)
}

func TestSizeIsMonotonic(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, 0, s.Size(Tick))
	s.PushRow(Tick, []float64{1, 1}, 0, 1)
	assert.Equal(t, 1, s.Size(Tick))
	s.PushRow(Tick, []float64{2, 2}, 0, 1)
	assert.Equal(t, 2, s.Size(Tick))
}

func TestIsTimeslotReadyFalseBeforePushAndTrueAfter(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.IsTimeslotReady(20260101, Tick, 0))
	_, err := s.PushRow(Tick, []float64{1, 1}, 0, 20260101)
	require.NoError(t, err)
	assert.True(t, s.IsTimeslotReady(20260101, Tick, 0))
	assert.False(t, s.IsTimeslotReady(20260101, Tick, 1))
}

func TestIsTimeslotReadyRequiresMatchingDate(t *testing.T) {
	s := newTestStore()
	s.PushRow(Tick, []float64{1, 1}, 0, 20260101)
	assert.False(t, s.IsTimeslotReady(20260102, Tick, 0))
}

func TestParentIndexViewTracksPushedRows(t *testing.T) {
	s := newTestStore()
	s.PushRow(Minute, []float64{1}, 7, 1)
	s.PushRow(Minute, []float64{2}, 9, 1)
	parents, err := s.ParentIndexView(Minute)
	require.NoError(t, err)
	assert.Equal(t, []int32{7, 9}, parents)
}

func TestMarkDateCompleteIsObservable(t *testing.T) {
	s := newTestStore()
	assert.False(t, s.DateComplete(20260101))
	s.MarkDateComplete(20260101)
	assert.True(t, s.DateComplete(20260101))
}

// TestE5FeatureStorePublication is spec §8's E5 scenario: write tick
// rows in order for t=0..99 on one date; for every t,
// is_timeslot_ready must return false before the write commits and
// true after.
func TestE5FeatureStorePublication(t *testing.T) {
	s := newTestStore()
	const date = int32(20260101)
	const n = 100

	for i := 0; i < n; i++ {
		require.False(t, s.IsTimeslotReady(date, Tick, i))
		_, err := s.PushRow(Tick, []float64{float64(i), float64(i)}, 0, date)
		require.NoError(t, err)
		require.True(t, s.IsTimeslotReady(date, Tick, i))
	}
}

// TestE5ConcurrentReaderNeverObservesBeyondPublishedSize exercises the
// same scenario under a concurrently polling reader: readiness for row
// i must never be reported before the reader's own fresh Size() call
// reports at least i+1 rows published — the acquire/release ordering
// spec §5 requires for multi-producer publication.
func TestE5ConcurrentReaderNeverObservesBeyondPublishedSize(t *testing.T) {
	s := newTestStore()
	const date = int32(20260101)
	const n = 200

	var violations int
	var mu sync.Mutex
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			committed := s.Size(Tick)
			for i := 0; i < committed; i++ {
				if !s.IsTimeslotReady(date, Tick, i) {
					mu.Lock()
					violations++
					mu.Unlock()
				}
			}
			time.Sleep(time.Microsecond)
		}
	}()

	for i := 0; i < n; i++ {
		_, err := s.PushRow(Tick, []float64{float64(i), float64(i)}, 0, date)
		require.NoError(t, err)
	}

	close(stop)
	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, violations, "every row within the reader's own observed Size() must already be ready")
}
