package runtime

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWorkerPoolRunsSubmittedTasks(t *testing.T) {
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	pool, err := NewWorkerPool(2, logger, metrics)
	require.NoError(t, err)
	defer pool.Release()

	var wg sync.WaitGroup
	var mu sync.Mutex
	ran := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			mu.Lock()
			ran++
			mu.Unlock()
		}))
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 5, ran)
}

func TestNewWorkerPoolRecoversPanicsViaMetrics(t *testing.T) {
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	pool, err := NewWorkerPool(1, logger, metrics)
	require.NoError(t, err)
	defer pool.Release()

	require.NoError(t, pool.Submit(func() {
		panic("boom")
	}))

	assert.Eventually(t, func() bool {
		families, _ := reg.Gather()
		for _, f := range families {
			if f.GetName() == "pipeline_worker_panics_total" {
				return f.Metric[0].GetCounter().GetValue() == 1
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}
