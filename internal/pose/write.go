package pose

import (
	"fmt"
	"io"

	"lipid-site-lab/internal/domain"
	"lipid-site-lab/internal/trajectory"
)

// Formats
const (
	FormatGRO = "gro"
	FormatPDB = "pdb"
)

// FileName is the artifact name of one pose.
func FileName(p domain.Pose, format string) string {
	return fmt.Sprintf("poses/%s/site%d_pose%d.%s", p.Species, p.SiteID, p.Rank, format)
}

// TrajectoryName is the artifact name of a site's pose trajectory.
func TrajectoryName(species string, siteID int, format string) string {
	return fmt.Sprintf("poses/%s/site%d_poses.%s", species, siteID, format)
}

func title(p domain.Pose) string {
	return fmt.Sprintf("%s site %d pose %d rep %d frame %d inst %d",
		p.Species, p.SiteID, p.Rank, p.Replicate, p.Frame, p.InstanceID)
}

// Write encodes a single pose.
func Write(w io.Writer, p domain.Pose, format string) error {
	switch format {
	case FormatGRO:
		return trajectory.WriteGRO(w, trajectory.GROTitle(title(p), p.Time), p.Atoms, p.Coords, p.Box)
	case FormatPDB:
		if err := trajectory.WritePDB(w, 1, title(p), p.Atoms, p.Coords, p.Box); err != nil {
			return err
		}
		_, err := io.WriteString(w, "END\n")
		return err
	default:
		return fmt.Errorf("unknown pose format %q", format)
	}
}

// WriteTrajectory encodes the poses of one site as consecutive frames, in
// rank order. Every pose must have the same atom count.
func WriteTrajectory(w io.Writer, poses []domain.Pose, format string) error {
	for i, p := range poses {
		if i > 0 && len(p.Atoms) != len(poses[0].Atoms) {
			return fmt.Errorf("pose %d has %d atoms, first pose has %d", p.Rank, len(p.Atoms), len(poses[0].Atoms))
		}
		var err error
		switch format {
		case FormatGRO:
			err = trajectory.WriteGRO(w, trajectory.GROTitle(title(p), p.Time), p.Atoms, p.Coords, p.Box)
		case FormatPDB:
			err = trajectory.WritePDB(w, i+1, title(p), p.Atoms, p.Coords, p.Box)
		default:
			err = fmt.Errorf("unknown pose format %q", format)
		}
		if err != nil {
			return err
		}
	}
	if format == FormatPDB {
		_, err := io.WriteString(w, "END\n")
		return err
	}
	return nil
}

// BySite groups a species' poses by site id, keeping rank order.
func BySite(poses []domain.Pose) map[int][]domain.Pose {
	out := make(map[int][]domain.Pose)
	for _, p := range poses {
		out[p.SiteID] = append(out[p.SiteID], p)
	}
	return out
}
