package runtime

import (
	"context"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ProcessFunc runs one asset-day's pipeline to completion. A non-nil
// error here is treated as a fatal worker error (spec §7's
// propagation policy: the worker driver logs and moves on for
// recoverable per-asset failures, but a returned error here aborts
// the whole run — callers should only return an error for conditions
// spec §7 marks fatal, such as AssetMissingSnapshot).
type ProcessFunc func(ctx context.Context, task AssetDayTask) error

// Supervisor pops tasks off a Queue and runs them through an ants
// pool, with an errgroup propagating the first fatal error and a
// ShutdownFlag checked at each queue pop and folder-iteration boundary
// (spec §5's scheduling and cancellation rules).
type Supervisor struct {
	Queue    *Queue
	Pool     *ants.Pool
	Shutdown *ShutdownFlag
	Metrics  *Metrics
	Logger   *zap.Logger
	Workers  int
}

// Run spawns Workers goroutines, each popping tasks from s.Queue and
// submitting them to s.Pool, until the queue closes, ctx is
// cancelled, shutdown is requested, or process returns an error. It
// blocks until every worker has exited, returning the first error (if
// any) via errgroup.
func (s *Supervisor) Run(ctx context.Context, process ProcessFunc) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < s.Workers; i++ {
		g.Go(func() error {
			return s.runWorker(ctx, process)
		})
	}
	return g.Wait()
}

func (s *Supervisor) runWorker(ctx context.Context, process ProcessFunc) error {
	for {
		if s.Shutdown.Requested() {
			return nil
		}
		if s.Metrics != nil {
			s.Metrics.QueueDepth.Set(float64(s.Queue.Depth()))
		}
		task, ok, err := s.Queue.Pop(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if s.Shutdown.Requested() {
			return nil
		}

		done := make(chan error, 1)
		submitErr := s.Pool.Submit(func() {
			done <- process(ctx, task)
		})
		if submitErr != nil {
			s.Logger.Error("failed to submit asset-day task", zap.String("asset", task.AssetCode), zap.Error(submitErr))
			return submitErr
		}

		select {
		case err := <-done:
			if err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
