package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// WorkItem is a unit of fan-out work with a stable identity for logging.
type WorkItem interface {
	ID() string
}

// processPool runs fn over items with at most workers goroutines. The
// generation backend is a scarce, rate-limited resource, so the bound is
// the pipeline's single point of concurrency control. Results come back in
// completion order; callers reassemble by their own order indices. The
// first error cancels remaining work.
func processPool[T WorkItem, R any](ctx context.Context, workers int, items []T, logger *slog.Logger, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}

	logger.Debug("starting worker pool", "workers", workers, "items", len(items))

	workCh := make(chan T)
	results := make([]R, 0, len(items))
	var collect = make(chan R, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		workerID := i
		g.Go(func() error {
			for item := range workCh {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				result, err := fn(gctx, item)
				if err != nil {
					logger.Error("worker failed",
						"worker_id", workerID,
						"item_id", item.ID(),
						"error", err)
					return fmt.Errorf("processing %s: %w", item.ID(), err)
				}
				collect <- result
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(workCh)
		for _, item := range items {
			select {
			case workCh <- item:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(collect)
	for r := range collect {
		results = append(results, r)
	}

	logger.Debug("worker pool finished", "results", len(results))
	return results, nil
}
