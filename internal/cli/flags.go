package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"lipid-site-lab/internal/config"
	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/trajectory"
)

// AnalysisFlags binds the analysis parameters to a flag set. Defaults come
// from config.Default and may be overridden by environment variables.
type AnalysisFlags struct {
	composition  *string
	timeUnit     *string
	workers      *int
	reference    *string
	lower        *float64
	upper        *float64
	grace        *int
	frameStep    *float64
	contactAtoms *string
	minSite      *int
	tolerance    *float64
	minEdge      *int
	minClosed    *int
	bootstrap    *int
	seed         *int64
	probe        *float64
	radii        *string
	policy       *string
	matchMin     *float64
	maxDelta     *float64
	minR2        *float64
	topN         *int
	format       *string
	poseTraj     *bool
}

// RegisterAnalysisFlags adds the analysis flags to fs.
func RegisterAnalysisFlags(fs *flag.FlagSet) *AnalysisFlags {
	d := config.Default()
	return &AnalysisFlags{
		composition:  fs.String("species", Env("SPECIES", ""), "Mobile species or bilayer composition, e.g. \"POPC:70 CHOL:30\""),
		timeUnit:     fs.String("time-unit", Env("TIME_UNIT", string(d.TimeUnit)), "Output time unit (ns or us)"),
		workers:      fs.Int("workers", EnvInt("WORKERS", d.Workers), "Worker pool size"),
		reference:    fs.String("reference", Env("REFERENCE_PATH", ""), "Reference structure or density recorded in the report"),
		lower:        fs.Float64("lower", EnvFloat("CUTOFF_LOWER", d.Contact.Lower), "Binding cutoff (nm)"),
		upper:        fs.Float64("upper", EnvFloat("CUTOFF_UPPER", d.Contact.Upper), "Unbinding cutoff (nm)"),
		grace:        fs.Int("grace", d.Contact.GraceFrames, "Frames above the unbinding cutoff tolerated before closing"),
		frameStep:    fs.Float64("frame-step", d.Contact.FrameStep, "Frame spacing (ps) when frames carry no time"),
		contactAtoms: fs.String("contact-atoms", "", "Per-species contact atoms, e.g. \"CHOL:ROH,R1;POPC:PO4\""),
		minSite:      fs.Int("min-site", d.Clustering.MinSiteSize, "Minimum residues per binding site"),
		tolerance:    fs.Float64("tolerance", d.Clustering.Tolerance, "Co-occurrence tolerance (ps)"),
		minEdge:      fs.Int("min-edge-weight", d.Clustering.MinEdgeWeight, "Minimum shared events for a graph edge"),
		minClosed:    fs.Int("min-closed", d.Kinetics.MinClosedIntervals, "Closed intervals required for rate fits"),
		bootstrap:    fs.Int("bootstrap", d.Kinetics.BootstrapIterations, "Bootstrap iterations"),
		seed:         fs.Int64("seed", d.Kinetics.BootstrapSeed, "Bootstrap seed"),
		probe:        fs.Float64("probe", d.Kinetics.ProbeRadius, "Surface probe radius (nm)"),
		radii:        fs.String("radii", "", "File of \"name radius\" overrides for surface areas"),
		policy:       fs.String("policy", d.Correspondence.Policy, "Site similarity (iou, dice, overlap)"),
		matchMin:     fs.Float64("match-threshold", d.Correspondence.Threshold, "Minimum similarity for a cross-species match"),
		maxDelta:     fs.Float64("max-delta-ratio", d.Screening.MaxDeltaRatio, "Unreliable when delta_k_off/k_off_fit exceeds this"),
		minR2:        fs.Float64("min-r2", d.Screening.MinR2, "Unreliable when the fit R² is below this"),
		topN:         fs.Int("top-n", d.Export.TopN, "Representative poses per site"),
		format:       fs.String("format", d.Export.Format, "Pose format (gro or pdb)"),
		poseTraj:     fs.Bool("pose-trajectory", d.Export.Trajectory, "Also write a multi-frame file per site"),
	}
}

// Config builds and validates the analysis parameters.
func (f *AnalysisFlags) Config() (config.Analysis, error) {
	cfg := config.Default()
	cfg.Species = config.ParseSpecies(*f.composition)
	cfg.TimeUnit = domain.TimeUnit(*f.timeUnit)
	cfg.Workers = *f.workers
	cfg.ReferencePath = *f.reference
	cfg.Contact.Lower = *f.lower
	cfg.Contact.Upper = *f.upper
	cfg.Contact.GraceFrames = *f.grace
	cfg.Contact.FrameStep = *f.frameStep
	atoms, err := ParseContactAtoms(*f.contactAtoms)
	if err != nil {
		return cfg, err
	}
	cfg.Contact.ContactAtoms = atoms
	cfg.Clustering.MinSiteSize = *f.minSite
	cfg.Clustering.Tolerance = *f.tolerance
	cfg.Clustering.MinEdgeWeight = *f.minEdge
	cfg.Kinetics.MinClosedIntervals = *f.minClosed
	cfg.Kinetics.BootstrapIterations = *f.bootstrap
	cfg.Kinetics.BootstrapSeed = *f.seed
	cfg.Kinetics.ProbeRadius = *f.probe
	if *f.radii != "" {
		file, err := os.Open(*f.radii)
		if err != nil {
			return cfg, fmt.Errorf("%w: radii: %v", domain.ErrInputData, err)
		}
		radii, err := config.ParseRadii(file)
		file.Close()
		if err != nil {
			return cfg, err
		}
		cfg.Kinetics.RadiusOverrides = radii
	}
	cfg.Correspondence.Policy = *f.policy
	cfg.Correspondence.Threshold = *f.matchMin
	cfg.Screening.MaxDeltaRatio = *f.maxDelta
	cfg.Screening.MinR2 = *f.minR2
	cfg.Export.TopN = *f.topN
	cfg.Export.Format = *f.format
	cfg.Export.Trajectory = *f.poseTraj
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ParseContactAtoms parses "SPECIES:ATOM,ATOM;SPECIES:ATOM". Empty input
// yields nil.
func ParseContactAtoms(s string) (map[string][]string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := make(map[string][]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		sp, list, ok := strings.Cut(part, ":")
		sp = strings.TrimSpace(sp)
		if !ok || sp == "" {
			return nil, fmt.Errorf("%w: contact atoms %q: want SPECIES:ATOM,...", domain.ErrInputData, part)
		}
		for _, a := range strings.Split(list, ",") {
			if a = strings.TrimSpace(a); a != "" {
				out[sp] = append(out[sp], a)
			}
		}
		if len(out[sp]) == 0 {
			return nil, fmt.Errorf("%w: contact atoms for %s are empty", domain.ErrInputData, sp)
		}
	}
	return out, nil
}

// ReplicateFlags selects the trajectories of a run.
type ReplicateFlags struct {
	data  *string
	count *int
	file  *string
	paths *string
}

// RegisterReplicateFlags adds the replicate selection flags to fs.
func RegisterReplicateFlags(fs *flag.FlagSet) *ReplicateFlags {
	return &ReplicateFlags{
		data:  fs.String("data", Env("DATA_PATH", ""), "Directory holding run1..runN replicate directories"),
		count: fs.Int("replicates", EnvInt("REPLICATES", 0), "Number of replicates (0 uses every run<N> directory)"),
		file:  fs.String("trajectory", Env("TRAJECTORY_FILE", trajectory.DefaultTrajectoryFile), "Trajectory file name inside each replicate directory"),
		paths: fs.String("files", "", "Comma-separated trajectory files, used instead of -data"),
	}
}

// Replicates resolves the replicate list.
func (f *ReplicateFlags) Replicates() ([]trajectory.Replicate, error) {
	if *f.paths != "" {
		var paths []string
		for _, p := range strings.Split(*f.paths, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		return trajectory.FromPaths(paths), nil
	}
	if *f.data == "" {
		return nil, fmt.Errorf("%w: -data or -files is required", domain.ErrInputData)
	}
	return trajectory.Discover(*f.data, *f.count, *f.file)
}

// FrameStep returns the fallback frame spacing for file openers.
func (f *AnalysisFlags) FrameStep() float64 {
	return *f.frameStep
}
