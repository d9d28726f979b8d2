package domain

// Fit model identifiers.
const (
	FitModelBiExponential   = "BIEXP"
	FitModelMonoExponential = "MONOEXP"
	FitModelNone            = ""
)

// SiteKinetics holds kinetic and structural descriptors for one site.
// Rate fields are nil when not computed (insufficient data or fit absent);
// FitR2 being nil means no fit quality is available.
type SiteKinetics struct {
	SiteID            int
	Species           string
	TimeUnit          TimeUnit
	NumEvents         int     // site-level binding events
	NumClosed         int     // events not right-censored
	Occupancy         float64 // fraction of trajectory time with >=1 instance bound
	ResidenceTimeMean float64 // TimeUnit
	ResidenceTimeMode float64 // TimeUnit
	SurfaceArea       float64 // nm^2

	FitModel      string
	KOffFit       *float64 // 1/TimeUnit
	KOffFast      *float64 // 1/TimeUnit, bi-exponential only
	KOffSlow      *float64 // 1/TimeUnit, bi-exponential only
	FitR2         *float64
	KOffBootstrap *float64 // 1/TimeUnit, mean over resamples
	KOffBootStd   *float64 // spread of resampled rates
	DeltaKOff     *float64 // |KOffFit - KOffBootstrap|

	Flags []Flag
}

// Insufficient reports whether kinetics were withheld for lack of data.
func (k *SiteKinetics) Insufficient() bool {
	return HasFlag(k.Flags, FlagInsufficientData)
}

// ResidueStats summarizes contacts of one residue with one species.
type ResidueStats struct {
	ResidueID    int
	Species      string
	NumContacts  int     // intervals
	DurationMean float64 // TimeUnit, 0 when no contacts
	Occupancy    float64 // fraction of trajectory time bound by >=1 instance
}

// RankedSite is one row of a screening ranking.
type RankedSite struct {
	Rank       int // 1-based
	SiteID     int
	Species    string
	Kinetics   *SiteKinetics
	Unreliable bool
	Flags      []Flag
}
