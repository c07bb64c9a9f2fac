package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveFolderStateNextAssetClaimsInOrder(t *testing.T) {
	s := NewActiveFolderState([]string{"A", "B", "C"})
	for _, want := range []string{"A", "B", "C"} {
		code, ok := s.NextAsset()
		assert.True(t, ok)
		assert.Equal(t, want, code)
	}
	_, ok := s.NextAsset()
	assert.False(t, ok)
}

func TestActiveFolderStateNextAssetIsRaceSafe(t *testing.T) {
	assets := make([]string, 100)
	for i := range assets {
		assets[i] = string(rune('a' + i%26))
	}
	s := NewActiveFolderState(assets)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if _, ok := s.NextAsset(); !ok {
					return
				}
			}
		}()
	}
	wg.Wait()

	_, ok := s.NextAsset()
	assert.False(t, ok, "every asset must be claimed exactly once across concurrent callers")
}

func TestActiveFolderStateMarkProcessed(t *testing.T) {
	s := NewActiveFolderState([]string{"A", "B"})
	assert.Equal(t, int64(0), s.Processed())
	s.MarkProcessed()
	s.MarkProcessed()
	assert.Equal(t, int64(2), s.Processed())
	assert.Equal(t, 2, s.Total())
}

func TestShutdownFlagTriggerIsIdempotent(t *testing.T) {
	var f ShutdownFlag
	assert.False(t, f.Requested())
	f.Trigger()
	f.Trigger()
	assert.True(t, f.Requested())
}
