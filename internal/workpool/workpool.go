// Package workpool runs independent units of work on a fixed number of
// goroutines.
package workpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Size normalizes a worker count. Non-positive values mean GOMAXPROCS.
func Size(workers int) int {
	if workers <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return workers
}

// Run calls fn for every index in [0, n) using at most workers goroutines.
// The first error cancels the context passed to the remaining calls and is
// returned. Results should be written into index-addressed slots so the
// outcome does not depend on scheduling.
func Run(ctx context.Context, workers, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(Size(workers))
	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return gCtx.Err()
			default:
				return fn(gCtx, idx)
			}
		})
	}
	return g.Wait()
}

// Range is a half-open index range.
type Range struct {
	Lo, Hi int
}

// Chunks splits [0, n) into at most k contiguous ranges of near-equal size.
func Chunks(n, k int) []Range {
	if n <= 0 {
		return nil
	}
	if k <= 0 || k > n {
		k = n
	}
	out := make([]Range, 0, k)
	size, rem := n/k, n%k
	lo := 0
	for i := 0; i < k; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		out = append(out, Range{Lo: lo, Hi: hi})
		lo = hi
	}
	return out
}
