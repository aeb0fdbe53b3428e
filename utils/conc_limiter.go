package utils

import (
	"runtime"
	"sync"
)

type ConcLimiter struct {
	*sync.WaitGroup
	Pool chan struct{}
}

func (c *ConcLimiter) Increase() {
	c.Add(1)
	c.Pool <- struct{}{}
}

func (c *ConcLimiter) Decrease() {
	select {
	case <-c.Pool:
		c.Done()
	default:
	}
}

func NewConcLimiter(cLevel int) *ConcLimiter {
	if cLevel <= 0 {
		cLevel = runtime.NumCPU()
	}
	var wg sync.WaitGroup
	return &ConcLimiter{&wg, make(chan struct{}, cLevel)}
}

const minRowsPerBand = 16

// ParallelRows splits the rows [0, height) into contiguous bands and
// calls fn once per band, running at most workers bands at a time.
// It returns when every band is done.
func ParallelRows(height, workers int, fn func(rowStart, rowEnd int)) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	bandSize := (height + workers - 1) / workers
	if bandSize < minRowsPerBand {
		bandSize = minRowsPerBand
	}

	if bandSize >= height {
		fn(0, height)
		return
	}

	limiter := NewConcLimiter(workers)
	for start := 0; start < height; start += bandSize {
		end := start + bandSize
		if end > height {
			end = height
		}

		limiter.Increase()
		go func(start, end int) {
			defer limiter.Decrease()
			fn(start, end)
		}(start, end)
	}
	limiter.Wait()
}
