// Package parallel splits index ranges across CPU cores. The GP package uses
// it to fill kernel matrices row by row.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultRowThreshold is the number of rows below which kernel builds stay
// on the calling goroutine. Below it the goroutine overhead dominates.
const DefaultRowThreshold = 128

// Parallelize divides items into one contiguous [start, end) chunk per CPU
// core and calls fn for each chunk concurrently. It returns when every
// chunk is done. fn must only write to indices inside its own range.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunkSize {
		end := start + chunkSize
		if end > items {
			end = items
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold runs fn(0, items) sequentially when items is at
// most threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEachRow calls fn once per row index in [0, rows), in parallel above
// threshold.
func ForEachRow(rows, threshold int, fn func(i int)) {
	ParallelizeWithThreshold(rows, threshold, func(start, end int) {
		for i := start; i < end; i++ {
			fn(i)
		}
	})
}
