package parallel

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// RecordBridge fans a sequential producer out across a bounded number of
// goroutines, mirroring the channel + errgroup.SetLimit pattern the
// sequential-to-parallel analysis passes use. Workers pull one item at a
// time from next under mu, so ordering across workers is not preserved: the
// sort step downstream is what imposes a final order, per the concurrency
// model's explicit tradeoff.
//
// A worker returning an error (or panicking, via the recover in Run)
// cancels the group and every other worker's context, so the run fails as a
// single unit instead of silently dropping partial results.
type RecordBridge[T any] struct {
	cfg  Config
	next func() (T, bool, error)
	mu   sync.Mutex
}

// NewRecordBridge builds a bridge over next, a thunk that returns the next
// item, false when exhausted, or an error if the underlying sequential
// iterator failed.
func NewRecordBridge[T any](cfg Config, next func() (T, bool, error)) *RecordBridge[T] {
	return &RecordBridge[T]{cfg: cfg, next: next}
}

// Run drains the bridge, invoking process for every item. A worker panic is
// converted to an error so it cancels the group instead of crashing the
// process (the panic-fuse behavior the concurrency model requires).
func (b *RecordBridge[T]) Run(ctx context.Context, process func(ctx context.Context, item T) error) error {
	g, ctx := errgroup.WithContext(ctx)
	workers := b.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i := 0; i < workers; i++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = panicError{r}
				}
			}()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}

				item, ok, nextErr := b.pull()
				if nextErr != nil {
					return nextErr
				}
				if !ok {
					return nil
				}
				if err := process(ctx, item); err != nil {
					return err
				}
			}
		})
	}

	return g.Wait()
}

func (b *RecordBridge[T]) pull() (T, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.next()
}

type panicError struct{ v interface{} }

func (p panicError) Error() string {
	return fmt.Sprintf("parallel worker panicked: %v", p.v)
}
