// Package featurestore implements the columnar, hierarchical feature
// store (spec §4.8): one contiguous typed buffer per column at each of
// three levels (tick/minute/hour), a parent_index column linking a row
// to its parent level's row, and acquire/release-ordered publication so
// a concurrent cross-sectional reader never observes a partially
// written row.
package featurestore

import (
	"sync"
	"sync/atomic"

	perr "github.com/typhfeng/stk-sub000/pkg/errors"
)

// Level is one of the three cascading resampling levels.
type Level int

const (
	Tick Level = iota
	Minute
	Hour
	numLevels
)

// levelState holds one level's columnar storage. size is published via
// an atomic store only after every column (and the parent_index/date
// tags) for row t has been appended — readers load size first (an
// acquire) so a visible size of N guarantees rows [0, N) are complete,
// per spec §5's "acquire-ordered publication" requirement.
type levelState struct {
	mu          sync.Mutex
	columns     [][]float64
	parentIndex []int32
	dates       []int32
	size        atomic.Int64
}

// Store is a per-asset (or, in multi-producer mode, shared) feature
// store. Writers are append-only; readers only ever observe a
// monotonically increasing size per level (spec §5).
type Store struct {
	levels         [numLevels]*levelState
	completedMu    sync.Mutex
	completedDates map[int32]bool
}

// New builds a Store with columnsPerLevel[level] float64 columns at
// each level.
func New(columnsPerLevel [3]int) *Store {
	s := &Store{completedDates: make(map[int32]bool)}
	for lvl := Level(0); lvl < numLevels; lvl++ {
		ls := &levelState{columns: make([][]float64, columnsPerLevel[lvl])}
		s.levels[lvl] = ls
	}
	return s
}

func (s *Store) level(level Level) (*levelState, error) {
	if level < 0 || level >= numLevels {
		return nil, perr.New(perr.ParseError, "featurestore: level out of range")
	}
	return s.levels[level], nil
}

// PushRow appends row across every column of level, tagging it with
// parentIndex and date, and returns the row's index. The append is
// atomic from the writer's perspective: all columns are extended under
// one lock before size is published.
func (s *Store) PushRow(level Level, row []float64, parentIndex int32, date int32) (int, error) {
	ls, err := s.level(level)
	if err != nil {
		return 0, err
	}
	if len(row) != len(ls.columns) {
		return 0, perr.New(perr.ParseError, "featurestore: row width does not match column count").
			WithDetail("want", len(ls.columns)).WithDetail("got", len(row))
	}

	ls.mu.Lock()
	idx := len(ls.parentIndex)
	for i, v := range row {
		ls.columns[i] = append(ls.columns[i], v)
	}
	ls.parentIndex = append(ls.parentIndex, parentIndex)
	ls.dates = append(ls.dates, date)
	ls.mu.Unlock()

	ls.size.Store(int64(idx + 1))
	return idx, nil
}

// ColumnView returns a read-only view over column columnID's current
// contents at level. The returned slice's backing array is never
// mutated in place (only appended to), so it remains valid to read
// after the call returns even as the store keeps growing.
func (s *Store) ColumnView(level Level, columnID int) ([]float64, error) {
	ls, err := s.level(level)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if columnID < 0 || columnID >= len(ls.columns) {
		return nil, perr.New(perr.ParseError, "featurestore: column id out of range")
	}
	n := int(ls.size.Load())
	col := ls.columns[columnID]
	if n > len(col) {
		n = len(col)
	}
	return col[:n], nil
}

// ParentIndexView returns the parent_index column's current contents
// at level.
func (s *Store) ParentIndexView(level Level) ([]int32, error) {
	ls, err := s.level(level)
	if err != nil {
		return nil, err
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	n := int(ls.size.Load())
	if n > len(ls.parentIndex) {
		n = len(ls.parentIndex)
	}
	return ls.parentIndex[:n], nil
}

// Size is the current published row count at level.
func (s *Store) Size(level Level) int {
	ls, err := s.level(level)
	if err != nil {
		return 0
	}
	return int(ls.size.Load())
}

// IsTimeslotReady reports whether row t at level has been fully
// published for date (spec §4.8, §5, scenario E5): true only once
// PushRow's atomic size store for row t has completed and the row's
// date tag matches.
func (s *Store) IsTimeslotReady(date int32, level Level, t int) bool {
	ls, err := s.level(level)
	if err != nil {
		return false
	}
	n := int(ls.size.Load())
	if t < 0 || t >= n {
		return false
	}
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if t >= len(ls.dates) {
		return false
	}
	return ls.dates[t] == date
}

// MarkDateComplete signals upstream tensor-pool recycling that no more
// rows for date will be written (spec §4.8). The store itself keeps no
// data beyond this bookkeeping; recycling is an external concern.
func (s *Store) MarkDateComplete(date int32) {
	s.completedMu.Lock()
	defer s.completedMu.Unlock()
	s.completedDates[date] = true
}

// DateComplete reports whether MarkDateComplete has been called for date.
func (s *Store) DateComplete(date int32) bool {
	s.completedMu.Lock()
	defer s.completedMu.Unlock()
	return s.completedDates[date]
}
