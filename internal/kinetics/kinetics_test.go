package kinetics

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"lipid-site-lab/internal/domain"
)

func ev(rep int, start, end float64, censored bool) domain.SiteEvent {
	return domain.SiteEvent{Replicate: rep, Start: start, End: end, Censored: censored}
}

func TestOccupancy(t *testing.T) {
	spans := []domain.ReplicateSpan{
		{Replicate: 0, Start: 0, End: 1000},
		{Replicate: 1, Start: 0, End: 1000},
	}
	events := []domain.SiteEvent{
		ev(0, 0, 100, false),
		ev(0, 50, 200, false), // overlaps previous: union counts once
		ev(1, 500, 600, false),
	}
	got := Occupancy(events, spans)
	if math.Abs(got-0.15) > 1e-12 {
		t.Errorf("Occupancy = %v, want 0.15", got)
	}
	if Occupancy(events, nil) != 0 {
		t.Error("expected zero occupancy without spans")
	}
}

func TestMeanAndMode(t *testing.T) {
	d := []float64{0.1, 0.2, 0.2, 0.3, 0.3, 0.5}
	mean, err := MeanResidence(d)
	if err != nil || math.Abs(mean-1.6/6) > 1e-12 {
		t.Errorf("mean = %v, %v", mean, err)
	}
	mode, err := ModeResidence(d, 0.1)
	if err != nil || math.Abs(mode-0.2) > 1e-12 {
		t.Errorf("mode = %v, want 0.2 (tie goes to shorter)", mode)
	}
	if _, err := MeanResidence(nil); !errors.Is(err, ErrNoEvents) {
		t.Errorf("expected ErrNoEvents, got %v", err)
	}
	if _, err := ModeResidence(d, 0); err == nil {
		t.Error("expected error for zero bin width")
	}
}

func TestRateMLE(t *testing.T) {
	k, ok := RateMLE([]float64{1, 2, 3}, []bool{false, false, true})
	if !ok || math.Abs(k-2.0/6) > 1e-12 {
		t.Errorf("RateMLE = %v, %v", k, ok)
	}
	if _, ok := RateMLE([]float64{1}, []bool{true}); ok {
		t.Error("all-censored input must not yield a rate")
	}
}

func TestSurvival_Shape(t *testing.T) {
	d := []float64{1, 2, 2, 3, 5, 8}
	c := Survival(d, []Exposure{{Length: 1000, Instances: 4}}, 1, 200)
	if len(c.T) != 9 {
		t.Fatalf("expected 9 lags, got %d", len(c.T))
	}
	if c.Sigma[0] != 1 {
		t.Errorf("sigma(0) = %v, want 1", c.Sigma[0])
	}
	for i := 1; i < len(c.Sigma); i++ {
		if c.Sigma[i] > c.Sigma[i-1] {
			t.Fatalf("sigma increased at lag %v", c.T[i])
		}
	}
	if c.Sigma[len(c.Sigma)-1] != 0 {
		t.Errorf("sigma at longest duration = %v, want 0", c.Sigma[len(c.Sigma)-1])
	}

	capped := Survival(d, []Exposure{{Length: 1000, Instances: 4}}, 0.01, 50)
	if len(capped.T) > 50 {
		t.Errorf("expected at most 50 lags, got %d", len(capped.T))
	}
}

func exactCurve(f func(t float64) float64, n int, dt float64) Curve {
	var c Curve
	for i := 0; i < n; i++ {
		t := float64(i) * dt
		c.T = append(c.T, t)
		c.Sigma = append(c.Sigma, f(t))
	}
	return c
}

func TestFitBiExponential_Exact(t *testing.T) {
	c := exactCurve(func(t float64) float64 { return 0.7*math.Exp(-10*t) + 0.3*math.Exp(-1*t) }, 200, 0.02)
	fit, err := FitBiExponential(c, 3)
	if err != nil {
		t.Fatalf("FitBiExponential: %v", err)
	}
	if math.Abs(fit.KFast-10) > 0.5 || math.Abs(fit.KSlow-1) > 0.05 {
		t.Errorf("rates = %v, %v; want 10, 1", fit.KFast, fit.KSlow)
	}
	want := 1.0 / (0.7/10 + 0.3/1)
	if math.Abs(fit.KOff-want)/want > 0.05 {
		t.Errorf("effective rate = %v, want %v", fit.KOff, want)
	}
	if fit.R2 < 0.999 {
		t.Errorf("R2 = %v", fit.R2)
	}
}

func TestFitMonoExponential_Exact(t *testing.T) {
	c := exactCurve(func(t float64) float64 { return math.Exp(-2 * t) }, 100, 0.05)
	fit, err := FitMonoExponential(c)
	if err != nil {
		t.Fatalf("FitMonoExponential: %v", err)
	}
	if math.Abs(fit.KOff-2) > 1e-6 || fit.R2 < 0.9999 {
		t.Errorf("fit = %+v", fit)
	}
}

func TestFitBiExponential_TooFewPoints(t *testing.T) {
	_, err := FitBiExponential(Curve{T: []float64{0, 1}, Sigma: []float64{1, 0.5}}, 1)
	if !errors.Is(err, domain.ErrFitConvergence) {
		t.Errorf("expected ErrFitConvergence, got %v", err)
	}
}

func TestBootstrapRate_WorkerIndependent(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 9))
	ivs := make([]Interval, 300)
	for i := range ivs {
		ivs[i] = Interval{Duration: rng.ExpFloat64(), Censored: i%50 == 0}
	}
	a, err := BootstrapRate(context.Background(), ivs, 100, 42, 1)
	if err != nil {
		t.Fatal(err)
	}
	b, err := BootstrapRate(context.Background(), ivs, 100, 42, 8)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("results differ across worker counts: %+v vs %+v", a, b)
	}
	if a.Samples != 100 || a.StdDev <= 0 {
		t.Errorf("unexpected result %+v", a)
	}
}

// Both estimators recover the rate of single-exponential durations.
func TestEstimate_SingleExponential(t *testing.T) {
	const lambda = 2.0 // per us
	rng := rand.New(rand.NewPCG(42, 1))

	var events []domain.SiteEvent
	var cursor float64
	for i := 0; i < 3000; i++ {
		d := rng.ExpFloat64() / lambda * 1e6 // ps
		events = append(events, ev(0, cursor, cursor+d, false))
		cursor += d + 1e6
	}
	spans := []domain.ReplicateSpan{{Replicate: 0, Start: 0, End: cursor, Step: 1e4}}

	est := NewEstimator(Options{
		Unit:                domain.TimeUnitMicrosecond,
		MinClosedIntervals:  10,
		BootstrapIterations: 100,
		BootstrapSeed:       42,
		SurvivalPoints:      200,
		Workers:             4,
	})
	k, _, err := est.Estimate(context.Background(), SiteInput{
		Site:      &domain.BindingSite{SiteID: 0, Species: "POPC"},
		Events:    events,
		Spans:     spans,
		Instances: 1,
	})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if k.KOffFit == nil || k.KOffBootstrap == nil || k.DeltaKOff == nil {
		t.Fatalf("rates missing: %+v", k)
	}
	if math.Abs(*k.KOffFit-lambda)/lambda > 0.1 {
		t.Errorf("fit k_off = %v, want ~%v", *k.KOffFit, lambda)
	}
	if math.Abs(*k.KOffBootstrap-lambda)/lambda > 0.1 {
		t.Errorf("bootstrap k_off = %v, want ~%v", *k.KOffBootstrap, lambda)
	}
	if *k.DeltaKOff/lambda > 0.15 {
		t.Errorf("delta k_off = %v too large", *k.DeltaKOff)
	}
	if math.Abs(k.ResidenceTimeMean-1/lambda)/(1/lambda) > 0.1 {
		t.Errorf("mean residence = %v, want ~%v", k.ResidenceTimeMean, 1/lambda)
	}
	if domain.HasFlag(k.Flags, domain.FlagInsufficientData) {
		t.Error("unexpected insufficient flag")
	}
}

// One-frame events give a two-point curve that neither regression can
// fit, so the censored rate is reported as the single-exponential model.
func TestEstimate_FitFallsBackToCensoredRate(t *testing.T) {
	var events []domain.SiteEvent
	for i := 0; i < 12; i++ {
		start := float64(i) * 1000
		events = append(events, ev(0, start, start+100, false))
	}
	est := NewEstimator(Options{
		Unit:                domain.TimeUnitNanosecond,
		MinClosedIntervals:  10,
		BootstrapIterations: 10,
		BootstrapSeed:       7,
		Workers:             2,
	})
	k, suff, err := est.Estimate(context.Background(), SiteInput{
		Site:      &domain.BindingSite{SiteID: 1, Species: "POPC"},
		Events:    events,
		Spans:     []domain.ReplicateSpan{{Start: 0, End: 12000, Step: 100}},
		Instances: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !suff.AllPass {
		t.Fatalf("expected sufficient sampling, got %+v", suff)
	}
	if !domain.HasFlag(k.Flags, domain.FlagFitReducedModel) || domain.HasFlag(k.Flags, domain.FlagFitFailed) {
		t.Errorf("flags = %v, want reduced model only", k.Flags)
	}
	if k.FitModel != domain.FitModelMonoExponential {
		t.Errorf("fit model = %q, want %q", k.FitModel, domain.FitModelMonoExponential)
	}
	if k.KOffFit == nil || math.Abs(*k.KOffFit-10) > 1e-9 {
		t.Fatalf("fit k_off = %v, want 10 per ns", kOrNil(k.KOffFit))
	}
	if k.FitR2 == nil {
		t.Error("R2 missing for the reported model")
	}
	if k.KOffBootstrap == nil || k.DeltaKOff == nil || *k.DeltaKOff > 1e-9 {
		t.Errorf("bootstrap = %v delta = %v, want agreement", kOrNil(k.KOffBootstrap), kOrNil(k.DeltaKOff))
	}
}

func TestFitFixedRate(t *testing.T) {
	c := Curve{T: []float64{0, 1, 2}, Sigma: []float64{1, math.Exp(-0.5), math.Exp(-1)}}
	fit, err := FitFixedRate(c, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	if fit.Model != domain.FitModelMonoExponential || fit.KOff != 0.5 || math.Abs(fit.R2-1) > 1e-12 {
		t.Errorf("unexpected fit %+v", fit)
	}
	if _, err := FitFixedRate(c, 0); !errors.Is(err, domain.ErrFitConvergence) {
		t.Errorf("zero rate: err = %v", err)
	}
	single, err := FitFixedRate(Curve{T: []float64{0}, Sigma: []float64{1}}, 2)
	if err != nil || !math.IsNaN(single.R2) {
		t.Errorf("single point: fit %+v err %v, want NaN R2", single, err)
	}
}

func kOrNil(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func TestEstimate_Insufficient(t *testing.T) {
	events := []domain.SiteEvent{ev(0, 0, 1000, false), ev(0, 2000, 5000, true)}
	est := NewEstimator(Options{Unit: domain.TimeUnitNanosecond, MinClosedIntervals: 10, BootstrapIterations: 10})
	k, suff, err := est.Estimate(context.Background(), SiteInput{
		Site:   &domain.BindingSite{SiteID: 3, Species: "CHOL"},
		Events: events,
		Spans:  []domain.ReplicateSpan{{Start: 0, End: 10000, Step: 1000}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if !k.Insufficient() || suff.AllPass {
		t.Errorf("expected insufficient data, got flags %v", k.Flags)
	}
	if k.KOffFit != nil || k.KOffBootstrap != nil || k.DeltaKOff != nil || k.FitR2 != nil {
		t.Error("rates must be absent for insufficient sites")
	}
	if math.Abs(k.ResidenceTimeMean-2) > 1e-12 {
		t.Errorf("mean residence = %v ns, want 2", k.ResidenceTimeMean)
	}
	if math.Abs(k.Occupancy-0.4) > 1e-12 {
		t.Errorf("occupancy = %v, want 0.4", k.Occupancy)
	}
}

func TestResidueStats(t *testing.T) {
	ivs := []domain.ContactInterval{
		{ResidueID: 4, InstanceID: 0, Start: 0, End: 100},
		{ResidueID: 4, InstanceID: 1, Start: 50, End: 150},
		{ResidueID: 2, InstanceID: 0, Start: 0, End: 10},
	}
	stats := ResidueStats("POPC", ivs, []domain.ReplicateSpan{{Start: 0, End: 1000}}, domain.TimeUnitNanosecond)
	if len(stats) != 2 || stats[0].ResidueID != 2 || stats[1].ResidueID != 4 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats[1].NumContacts != 2 || math.Abs(stats[1].DurationMean-0.1) > 1e-12 || math.Abs(stats[1].Occupancy-0.15) > 1e-12 {
		t.Errorf("unexpected residue 4 stats %+v", stats[1])
	}
}
