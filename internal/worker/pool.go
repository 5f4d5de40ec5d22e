// Package worker provides a small concurrent worker pool for fan-out/fan-in
// reads. The decision log reader uses it to load several JSONL files at once.
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"
)

// Result pairs a processed value with its original index to preserve ordering.
type Result[T any] struct {
	Index int
	Value T
	Err   error
}

// Pool fans items out to a fixed number of goroutines and returns results in
// input order.
type Pool[I, T any] struct {
	concurrency int
}

// NewPool creates a pool. If concurrency <= 0, it uses runtime.NumCPU().
func NewPool[I, T any](concurrency int) *Pool[I, T] {
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	return &Pool[I, T]{concurrency: concurrency}
}

// Process applies fn to every item. Per-item errors are captured in the
// result instead of aborting the batch. Items not yet started when ctx is
// done get ctx.Err().
func (p *Pool[I, T]) Process(ctx context.Context, items []I, fn func(context.Context, I) (T, error)) []Result[T] {
	if len(items) == 0 {
		return nil
	}

	workers := min(p.concurrency, len(items))

	jobs := make(chan int)
	results := make([]Result[T], len(items))
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					results[i] = Result[T]{Index: i, Err: err}
					continue
				}
				val, err := fn(ctx, items[i])
				results[i] = Result[T]{Index: i, Value: val, Err: err}
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}

// Collect splits results into values and a joined error. Values from failed
// items are dropped.
func Collect[T any](results []Result[T]) ([]T, error) {
	values := make([]T, 0, len(results))
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		values = append(values, r.Value)
	}
	return values, errors.Join(errs...)
}
