package runtime

import (
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// NewWorkerPool builds an ants pool of size workers, pinned one per
// asset-day at a time (spec §5), logging and counting any recovered
// panic instead of letting it take down the process. Grounded on the
// teacher's WorkerPoolFactory.GetWorkerPool
// (internal/architecture/fx/workerpool/worker_pool.go), trimmed of its
// fx dependency-injection wiring and named-pool registry since this
// repo needs exactly one pool per process.
func NewWorkerPool(size int, logger *zap.Logger, metrics *Metrics) (*ants.Pool, error) {
	options := ants.Options{
		PreAlloc: true,
		PanicHandler: func(i interface{}) {
			logger.Error("worker pool task panicked", zap.Any("panic", i))
			if metrics != nil {
				metrics.WorkerPanics.Inc()
			}
		},
	}
	return ants.NewPool(size, ants.WithOptions(options))
}
