package kinetics

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/logger"
)

// Options configures the estimator.
type Options struct {
	Unit                domain.TimeUnit
	MinClosedIntervals  int
	BootstrapIterations int
	BootstrapSeed       int64
	SurvivalPoints      int
	Workers             int
	Logger              *log.Logger
}

// Estimator computes SiteKinetics from site-level events.
type Estimator struct {
	opts Options
	log  *log.Logger
}

// NewEstimator creates an estimator.
func NewEstimator(opts Options) *Estimator {
	if opts.Unit == "" {
		opts.Unit = domain.TimeUnitMicrosecond
	}
	if opts.SurvivalPoints <= 0 {
		opts.SurvivalPoints = 200
	}
	return &Estimator{opts: opts, log: logger.Component(opts.Logger, "kinetics")}
}

// SiteInput gathers what the estimator needs for one site.
type SiteInput struct {
	Site        *domain.BindingSite
	Events      []domain.SiteEvent
	Spans       []domain.ReplicateSpan
	Instances   int     // instances of the species per replicate
	SurfaceArea float64 // nm^2, computed separately
}

// Estimate computes kinetics for one site. Fit failures never return an
// error; they are recorded as flags. Errors are returned only for
// cancellation.
func (e *Estimator) Estimate(ctx context.Context, in SiteInput) (*domain.SiteKinetics, SufficiencyResult, error) {
	unit := e.opts.Unit
	k := &domain.SiteKinetics{
		SiteID:      in.Site.SiteID,
		Species:     in.Site.Species,
		TimeUnit:    unit,
		NumEvents:   len(in.Events),
		NumClosed:   ClosedCount(in.Events),
		Occupancy:   Occupancy(in.Events, in.Spans),
		SurfaceArea: in.SurfaceArea,
	}

	durations := Durations(in.Events, unit)
	if mean, err := MeanResidence(durations); err == nil {
		k.ResidenceTimeMean = mean
	}
	step := unit.FromPicoseconds(frameStep(in.Spans))
	if mode, err := ModeResidence(durations, step); err == nil {
		k.ResidenceTimeMode = mode
	}

	suff := CheckSufficiency(in.Events, e.opts.MinClosedIntervals)
	if !suff.AllPass {
		k.Flags = append(k.Flags, domain.FlagInsufficientData)
		e.log.Debug("insufficient sampling", "species", k.Species, "site", k.SiteID, "closed", k.NumClosed)
		return k, suff, nil
	}

	censored := make([]bool, len(in.Events))
	intervals := make([]Interval, len(in.Events))
	for i, ev := range in.Events {
		censored[i] = ev.Censored
		intervals[i] = Interval{Duration: durations[i], Censored: ev.Censored}
	}
	k0, _ := RateMLE(durations, censored)

	exposures := make([]Exposure, len(in.Spans))
	for i, s := range in.Spans {
		exposures[i] = Exposure{Length: unit.FromPicoseconds(s.Length()), Instances: in.Instances}
	}
	curve := Survival(durations, exposures, step, e.opts.SurvivalPoints)

	fit, err := FitBiExponential(curve, k0)
	if err != nil {
		e.log.Debug("bi-exponential fit failed, using single exponential", "species", k.Species, "site", k.SiteID, "err", err)
		fit, err = FitMonoExponential(curve)
		if err != nil {
			// Curve too short for a regression; report the censored rate.
			fit, err = FitFixedRate(curve, k0)
		}
		if err == nil {
			k.Flags = append(k.Flags, domain.FlagFitReducedModel)
		}
	}
	if err == nil {
		k.FitModel = fit.Model
		k.KOffFit = ptr(fit.KOff)
		if !math.IsNaN(fit.R2) {
			k.FitR2 = ptr(fit.R2)
		}
		if fit.Model == domain.FitModelBiExponential {
			k.KOffFast = ptr(fit.KFast)
			k.KOffSlow = ptr(fit.KSlow)
		}
	} else {
		k.Flags = append(k.Flags, domain.FlagFitFailed)
		e.log.Warn("survival fit failed", "species", k.Species, "site", k.SiteID, "err", err)
	}

	boot, err := BootstrapRate(ctx, intervals, e.opts.BootstrapIterations, e.opts.BootstrapSeed+int64(in.Site.SiteID), e.opts.Workers)
	switch {
	case err == nil:
		k.KOffBootstrap = ptr(boot.Mean)
		k.KOffBootStd = ptr(boot.StdDev)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, suff, err
	default:
		e.log.Warn("bootstrap failed", "species", k.Species, "site", k.SiteID, "err", err)
	}

	if k.KOffFit != nil && k.KOffBootstrap != nil {
		k.DeltaKOff = ptr(math.Abs(*k.KOffFit - *k.KOffBootstrap))
	}
	return k, suff, nil
}

func frameStep(spans []domain.ReplicateSpan) float64 {
	for _, s := range spans {
		if s.Step > 0 {
			return s.Step
		}
	}
	return 1
}

func ptr(v float64) *float64 {
	return &v
}

// FormatRate renders an optional rate for logs and reports.
func FormatRate(v *float64) string {
	if v == nil {
		return "NA"
	}
	return fmt.Sprintf("%.6g", *v)
}
