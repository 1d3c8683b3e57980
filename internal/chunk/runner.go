package chunk

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Outcome is the settled result of analyzing one chunk. Exactly one of
// Result and Err is meaningful.
type Outcome[T any] struct {
	Chunk  Chunk
	Result T
	Err    error
}

// Run executes task over chunks in fixed-size batches of size
// concurrency. Within a batch every task runs concurrently and the
// runner waits for all of them to settle before starting the next batch;
// a failing chunk never cancels its siblings. Outcomes come back in
// chunk order, one per input chunk.
func Run[T any](ctx context.Context, log *zap.Logger, chunks []Chunk, concurrency int, task func(context.Context, Chunk) (T, error)) []Outcome[T] {
	if log == nil {
		log = zap.NewNop()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	outcomes := make([]Outcome[T], len(chunks))

	for start := 0; start < len(chunks); start += concurrency {
		end := start + concurrency
		if end > len(chunks) {
			end = len(chunks)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				result, err := task(gctx, chunks[i])
				outcomes[i] = Outcome[T]{Chunk: chunks[i], Result: result, Err: err}
				if err != nil {
					// Recorded, not returned: siblings keep running.
					log.Warn("chunk analysis failed",
						zap.Int("chunk", chunks[i].Index+1),
						zap.Int("total", chunks[i].TotalChunks),
						zap.Error(err))
				}
				return nil
			})
		}
		_ = g.Wait() // tasks never surface errors through the group
	}

	return outcomes
}
