package trajectory

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// DefaultTrajectoryFile is the per-replicate file name looked up by Discover.
const DefaultTrajectoryFile = "md_stride.gro"

var runDirPattern = regexp.MustCompile(`^run(\d+)$`)

// Discover lists replicates laid out as <root>/run1 ... <root>/runN, each
// holding file. With n > 0 exactly run1..runN are returned (missing files
// surface as input errors when opened). With n == 0 every run<k> directory
// under root is used, ordered by k.
func Discover(root string, n int, file string) ([]Replicate, error) {
	if file == "" {
		file = DefaultTrajectoryFile
	}
	if n > 0 {
		out := make([]Replicate, 0, n)
		for i := 1; i <= n; i++ {
			out = append(out, Replicate{Index: i - 1, Path: filepath.Join(root, fmt.Sprintf("run%d", i), file)})
		}
		return out, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("discover replicates: %w", err)
	}
	type run struct {
		num  int
		name string
	}
	var runs []run
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := runDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		num, _ := strconv.Atoi(m[1])
		runs = append(runs, run{num: num, name: e.Name()})
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].num < runs[j].num })

	out := make([]Replicate, 0, len(runs))
	for i, r := range runs {
		out = append(out, Replicate{Index: i, Path: filepath.Join(root, r.name, file)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("discover replicates: no run<N> directories under %s", root)
	}
	return out, nil
}

// FromPaths builds replicates from explicit file paths.
func FromPaths(paths []string) []Replicate {
	out := make([]Replicate, len(paths))
	for i, p := range paths {
		out[i] = Replicate{Index: i, Path: p}
	}
	return out
}
