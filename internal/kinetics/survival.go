package kinetics

import (
	"math"
	"sort"
)

// Curve is a sampled survival time-correlation function.
type Curve struct {
	T     []float64 // lag, report unit
	Sigma []float64 // normalized so Sigma[0] == 1
}

// Exposure describes the observation window of one replicate for the
// survival function: its length and the number of instances that could bind.
type Exposure struct {
	Length    float64 // report unit
	Instances int
}

// Survival computes the normalized survival time-correlation function
//
//	sigma(dt) = sum_{d >= dt} (d - dt) / (sum_r (T_r - dt) * N_r) / sigma0
//
// over lags from 0 to the longest duration in multiples of step, keeping at
// most maxPoints lags. Lags where the denominator vanishes are dropped.
func Survival(durations []float64, exposures []Exposure, step float64, maxPoints int) Curve {
	if len(durations) == 0 || step <= 0 {
		return Curve{}
	}
	sorted := append([]float64(nil), durations...)
	sort.Float64s(sorted)
	longest := sorted[len(sorted)-1]

	nLags := int(math.Floor(longest/step+1e-9)) + 1
	stride := 1
	if maxPoints > 1 && nLags > maxPoints {
		stride = int(math.Ceil(float64(nLags) / float64(maxPoints)))
	}

	raw := func(dt float64) (float64, bool) {
		var denom float64
		for _, e := range exposures {
			if w := e.Length - dt; w > 0 {
				denom += w * float64(e.Instances)
			}
		}
		if denom <= 0 {
			return 0, false
		}
		idx := sort.SearchFloat64s(sorted, dt-1e-12)
		var num float64
		for _, d := range sorted[idx:] {
			num += d - dt
		}
		return num / denom, true
	}

	sigma0, ok := raw(0)
	if !ok || sigma0 <= 0 {
		return Curve{}
	}

	var c Curve
	for k := 0; k < nLags; k += stride {
		dt := float64(k) * step
		v, ok := raw(dt)
		if !ok {
			break
		}
		c.T = append(c.T, dt)
		c.Sigma = append(c.Sigma, v/sigma0)
	}
	return c
}
