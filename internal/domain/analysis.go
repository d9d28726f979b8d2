package domain

// CutoffResult summarizes one (lower, upper) cutoff pair in cutoff testing.
type CutoffResult struct {
	Species            string
	Lower              float64 // nm
	Upper              float64 // nm
	NumSites           int
	DurationMean       float64 // TimeUnit, mean over contacted residues of their mean contact duration
	ContactingResidues int
}

// DistanceBin is one bin of the minimum-distance probability density.
type DistanceBin struct {
	Species string
	Center  float64 // nm
	Density float64 // 1/nm
	Count   int
}

// Pose is a representative bound conformation for a site.
type Pose struct {
	Species    string
	SiteID     int
	Rank       int // 1-based among the site's poses
	Replicate  int
	Frame      int
	Time       float64 // ps
	InstanceID int
	Contacts   int     // site residues within the upper cutoff
	DistSum    float64 // sum of those residues' minimum distances (nm)
	Atoms      []Atom  // protein atoms followed by the instance atoms
	Coords     []Vec3
	Box        Box
}

// Run identifies one analysis run.
type Run struct {
	RunID      string
	CreatedAt  int64 // unix ms
	Species    []string
	Lower      float64
	Upper      float64
	MinSite    int
	TimeUnit   TimeUnit
	Replicates int
}
