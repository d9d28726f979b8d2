package kinetics

import (
	"context"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat"

	"lipid-site-lab/internal/workpool"
)

// Interval is a duration with its censoring status, in the report unit.
type Interval struct {
	Duration float64
	Censored bool
}

// BootstrapResult summarizes the resampled rates.
type BootstrapResult struct {
	Mean    float64
	StdDev  float64
	Samples int // resamples that produced a finite rate
}

// BootstrapRate resamples intervals with replacement and computes the
// censored-exponential rate of each resample. Iteration i draws from a
// generator seeded with (seed, i), so the result does not depend on how
// iterations are spread across workers.
func BootstrapRate(ctx context.Context, intervals []Interval, iterations int, seed int64, workers int) (BootstrapResult, error) {
	n := len(intervals)
	if n == 0 || iterations <= 0 {
		return BootstrapResult{}, ErrNoEvents
	}

	rates := make([]float64, iterations)
	valid := make([]bool, iterations)
	err := workpool.Run(ctx, workers, iterations, func(_ context.Context, i int) error {
		rng := rand.New(rand.NewPCG(uint64(seed), uint64(i)))
		var sum float64
		closed := 0
		for k := 0; k < n; k++ {
			iv := intervals[rng.IntN(n)]
			sum += iv.Duration
			if !iv.Censored {
				closed++
			}
		}
		if sum > 0 && closed > 0 {
			rates[i] = float64(closed) / sum
			valid[i] = true
		}
		return nil
	})
	if err != nil {
		return BootstrapResult{}, err
	}

	kept := make([]float64, 0, iterations)
	for i, ok := range valid {
		if ok {
			kept = append(kept, rates[i])
		}
	}
	if len(kept) == 0 {
		return BootstrapResult{}, ErrNoEvents
	}
	mean, std := stat.MeanStdDev(kept, nil)
	if len(kept) == 1 {
		std = 0
	}
	return BootstrapResult{Mean: mean, StdDev: std, Samples: len(kept)}, nil
}
