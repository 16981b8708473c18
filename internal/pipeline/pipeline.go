package pipeline

import (
	"fmt"
	"runtime"
	"sync"
)

// Task processes the item at index i.
type Task[T any] func(i int, item T) error

// IndexedError ties a task failure to its input position.
type IndexedError struct {
	Index int
	Err   error
}

func (e IndexedError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e IndexedError) Unwrap() error {
	return e.Err
}

// ForEach runs fn over items on a bounded pool of workers. Errors come back
// sorted by input index so callers see a stable order.
func ForEach[T any](items []T, workers int, fn Task[T]) []IndexedError {
	if len(items) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	workers = min(workers, len(items))

	jobs := make(chan int)
	errs := make([]error, len(items))
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				errs[i] = fn(i, items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out []IndexedError
	for i, err := range errs {
		if err != nil {
			out = append(out, IndexedError{Index: i, Err: err})
		}
	}
	return out
}
