// Package config holds the analysis parameters shared by every stage.
package config

import (
	"fmt"
	"runtime"

	"github.com/go-playground/validator"

	"lipid-site-lab/internal/domain"
)

// Overlap policies for the correspondence matcher.
const (
	PolicyIoU     = "iou"
	PolicyDice    = "dice"
	PolicyOverlap = "overlap"
)

// Pose file formats.
const (
	FormatGRO = "gro"
	FormatPDB = "pdb"
)

// Contact controls the dual-threshold detector.
type Contact struct {
	Lower       float64 `validate:"gt=0"`           // nm, binding threshold
	Upper       float64 `validate:"gtefield=Lower"` // nm, unbinding threshold
	GraceFrames int     `validate:"gte=0"`          // frames above Upper tolerated before closing
	FrameStep   float64 `validate:"gt=0"`           // ps, used when a replicate has one frame
	// ContactAtoms restricts the atoms of a species used for distances,
	// keyed by species name. Empty means all atoms.
	ContactAtoms map[string][]string
}

// Clustering controls the residue contact graph and community detection.
type Clustering struct {
	MinSiteSize   int     `validate:"gte=1"`
	Tolerance     float64 `validate:"gte=0"` // ps, near-overlap allowance for co-occurrence
	MinEdgeWeight int     `validate:"gte=1"`
	MaxIterations int     `validate:"gte=1"`
}

// Kinetics controls the estimator.
type Kinetics struct {
	MinClosedIntervals  int `validate:"gte=1"`
	BootstrapIterations int `validate:"gte=1"`
	BootstrapSeed       int64
	SurvivalPoints      int                `validate:"gte=4"`
	ProbeRadius         float64            `validate:"gte=0"` // nm
	SpherePoints        int                `validate:"gte=12"`
	SurfaceFrames       int                `validate:"gte=1"`
	RadiusOverrides     map[string]float64 // atom/bead name -> radius (nm)
}

// Screening controls reliability flags applied during ranking.
type Screening struct {
	MaxDeltaRatio float64 `validate:"gte=0"`
	MinR2         float64 `validate:"gte=0,lte=1"`
}

// Correspondence controls the cross-species matcher.
type Correspondence struct {
	Policy    string  `validate:"oneof=iou dice overlap"`
	Threshold float64 `validate:"gte=0,lte=1"`
}

// Export controls pose output.
type Export struct {
	TopN       int    `validate:"gte=0"`
	Format     string `validate:"oneof=gro pdb"`
	Trajectory bool   // also write a per-site multi-frame pose file
}

// Analysis is the complete parameter set of one run.
type Analysis struct {
	Species  []string        `validate:"required,min=1,dive,required"`
	TimeUnit domain.TimeUnit `validate:"oneof=ns us"`
	Workers  int             `validate:"gte=1"`

	// ReferencePath is an optional reference structure or density map. It
	// is carried into reports and never interpreted.
	ReferencePath string

	Contact        Contact
	Clustering     Clustering
	Kinetics       Kinetics
	Screening      Screening
	Correspondence Correspondence
	Export         Export
}

// Default returns the default analysis parameters with no species set.
func Default() Analysis {
	return Analysis{
		TimeUnit: domain.TimeUnitMicrosecond,
		Workers:  runtime.GOMAXPROCS(0),
		Contact: Contact{
			Lower:     0.5,
			Upper:     0.7,
			FrameStep: 1,
		},
		Clustering: Clustering{
			MinSiteSize:   4,
			MinEdgeWeight: 1,
			MaxIterations: 100,
		},
		Kinetics: Kinetics{
			MinClosedIntervals:  10,
			BootstrapIterations: 200,
			BootstrapSeed:       42,
			SurvivalPoints:      200,
			ProbeRadius:         0.14,
			SpherePoints:        96,
			SurfaceFrames:       10,
		},
		Screening: Screening{
			MaxDeltaRatio: 0.5,
			MinR2:         0.8,
		},
		Correspondence: Correspondence{
			Policy:    PolicyIoU,
			Threshold: 0.2,
		},
		Export: Export{
			TopN:   5,
			Format: FormatGRO,
		},
	}
}

var validate = validator.New()

// Validate checks the parameters. Errors wrap domain.ErrInputData.
func (a *Analysis) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("%w: config: %v", domain.ErrInputData, err)
	}
	seen := make(map[string]struct{}, len(a.Species))
	for _, s := range a.Species {
		if _, dup := seen[s]; dup {
			return fmt.Errorf("%w: config: species %s listed twice", domain.ErrInputData, s)
		}
		seen[s] = struct{}{}
	}
	for name, r := range a.Kinetics.RadiusOverrides {
		if r <= 0 {
			return fmt.Errorf("%w: config: radius for %s must be positive", domain.ErrInputData, name)
		}
	}
	return nil
}

// WithSpecies returns a copy with the species list replaced.
func (a Analysis) WithSpecies(species ...string) Analysis {
	a.Species = append([]string(nil), species...)
	return a
}

// WithCutoffs returns a copy with the contact thresholds replaced.
func (a Analysis) WithCutoffs(lower, upper float64) Analysis {
	a.Contact.Lower = lower
	a.Contact.Upper = upper
	return a
}
