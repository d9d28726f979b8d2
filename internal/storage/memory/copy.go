package memory

import "lipid-site-lab/internal/domain"

func copyFlags(f []domain.Flag) []domain.Flag {
	if f == nil {
		return nil
	}
	return append([]domain.Flag(nil), f...)
}

func copyFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// copySite copies a site without its intervals.
func copySite(s *domain.BindingSite) *domain.BindingSite {
	c := *s
	c.Residues = append([]int(nil), s.Residues...)
	c.Intervals = nil
	c.Flags = copyFlags(s.Flags)
	return &c
}

func copyKinetics(k *domain.SiteKinetics) *domain.SiteKinetics {
	c := *k
	c.KOffFit = copyFloat(k.KOffFit)
	c.KOffFast = copyFloat(k.KOffFast)
	c.KOffSlow = copyFloat(k.KOffSlow)
	c.FitR2 = copyFloat(k.FitR2)
	c.KOffBootstrap = copyFloat(k.KOffBootstrap)
	c.KOffBootStd = copyFloat(k.KOffBootStd)
	c.DeltaKOff = copyFloat(k.DeltaKOff)
	c.Flags = copyFlags(k.Flags)
	return &c
}

func copyEntry(e *domain.CorrespondenceEntry) *domain.CorrespondenceEntry {
	c := *e
	c.Species = append([]string(nil), e.Species...)
	c.Assignments = make(map[string][]int, len(e.Assignments))
	for sp, seq := range e.Assignments {
		c.Assignments[sp] = append([]int(nil), seq...)
	}
	c.Warnings = append([]domain.AmbiguityWarning(nil), e.Warnings...)
	return &c
}
