package kinetics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"lipid-site-lab/internal/domain"
)

// Fit is the result of fitting a survival curve.
type Fit struct {
	Model string  // domain.FitModelBiExponential or domain.FitModelMonoExponential
	KOff  float64 // effective dissociation rate, 1/report unit
	KFast float64 // bi-exponential only
	KSlow float64 // bi-exponential only
	A, B  float64 // amplitudes of the fast and slow terms
	R2    float64
}

func biexp(t, a, k1, b, k2 float64) float64 {
	return a*math.Exp(-k1*t) + b*math.Exp(-k2*t)
}

// FitBiExponential fits sigma(t) = A exp(-k1 t) + B exp(-k2 t) by
// Nelder-Mead least squares on log-parameters, which keeps amplitudes and
// rates positive. k0 seeds the rates (fast 5*k0, slow 0.5*k0). The reported
// KOff is the amplitude-weighted effective rate (A+B)/(A/k1 + B/k2).
func FitBiExponential(c Curve, k0 float64) (Fit, error) {
	if len(c.T) < 4 {
		return Fit{}, fmt.Errorf("%w: %d points", domain.ErrFitConvergence, len(c.T))
	}
	if !(k0 > 0) || math.IsInf(k0, 0) {
		k0 = 1 / c.T[len(c.T)-1]
	}

	loss := func(x []float64) float64 {
		a, k1, b, k2 := math.Exp(x[0]), math.Exp(x[1]), math.Exp(x[2]), math.Exp(x[3])
		var sse float64
		for i, t := range c.T {
			r := c.Sigma[i] - biexp(t, a, k1, b, k2)
			sse += r * r
		}
		if math.IsNaN(sse) {
			return math.Inf(1)
		}
		return sse
	}

	init := []float64{math.Log(0.5), math.Log(5 * k0), math.Log(0.5), math.Log(0.5 * k0)}
	settings := &optimize.Settings{
		MajorIterations: 20000,
		FuncEvaluations: 40000,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-12,
			Iterations: 500,
		},
	}
	res, err := optimize.Minimize(optimize.Problem{Func: loss}, init, settings, &optimize.NelderMead{})
	if err != nil {
		return Fit{}, fmt.Errorf("%w: %v", domain.ErrFitConvergence, err)
	}

	a, k1, b, k2 := math.Exp(res.X[0]), math.Exp(res.X[1]), math.Exp(res.X[2]), math.Exp(res.X[3])
	for _, v := range []float64{a, k1, b, k2} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return Fit{}, fmt.Errorf("%w: non-finite parameters", domain.ErrFitConvergence)
		}
	}
	if k1 < k2 {
		a, k1, b, k2 = b, k2, a, k1
	}

	est := make([]float64, len(c.T))
	for i, t := range c.T {
		est[i] = biexp(t, a, k1, b, k2)
	}
	r2 := stat.RSquaredFrom(est, c.Sigma, nil)
	if math.IsNaN(r2) {
		return Fit{}, fmt.Errorf("%w: undefined R2", domain.ErrFitConvergence)
	}

	return Fit{
		Model: domain.FitModelBiExponential,
		KOff:  (a + b) / (a/k1 + b/k2),
		KFast: k1,
		KSlow: k2,
		A:     a,
		B:     b,
		R2:    r2,
	}, nil
}

// FitMonoExponential fits log sigma(t) = -k t by least squares through the
// origin. Points with sigma <= 0 are ignored.
func FitMonoExponential(c Curve) (Fit, error) {
	var xs, ys []float64
	for i, t := range c.T {
		if c.Sigma[i] > 0 {
			xs = append(xs, t)
			ys = append(ys, math.Log(c.Sigma[i]))
		}
	}
	if len(xs) < 2 {
		return Fit{}, fmt.Errorf("%w: %d usable points", domain.ErrFitConvergence, len(xs))
	}

	_, beta := stat.LinearRegression(xs, ys, nil, true)
	k := -beta
	if !(k > 0) || math.IsInf(k, 0) {
		return Fit{}, fmt.Errorf("%w: non-positive rate %v", domain.ErrFitConvergence, k)
	}

	est := make([]float64, len(c.T))
	for i, t := range c.T {
		est[i] = math.Exp(-k * t)
	}
	r2 := stat.RSquaredFrom(est, c.Sigma, nil)
	if math.IsNaN(r2) {
		r2 = 0
	}
	return Fit{Model: domain.FitModelMonoExponential, KOff: k, R2: r2}, nil
}

// FitFixedRate reports the single exponential exp(-k t) for a rate estimated
// without the curve, scored against c. R2 is NaN when c has fewer than two
// points.
func FitFixedRate(c Curve, k float64) (Fit, error) {
	if !(k > 0) || math.IsInf(k, 0) {
		return Fit{}, fmt.Errorf("%w: non-positive rate %v", domain.ErrFitConvergence, k)
	}
	r2 := math.NaN()
	if len(c.T) >= 2 {
		est := make([]float64, len(c.T))
		for i, t := range c.T {
			est[i] = math.Exp(-k * t)
		}
		r2 = stat.RSquaredFrom(est, c.Sigma, nil)
	}
	return Fit{Model: domain.FitModelMonoExponential, KOff: k, R2: r2}, nil
}
