package correspondence

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lipid-site-lab/internal/domain"
)

// MissingToken marks NoSite in correspondence files.
const MissingToken = "NA"

// WriteCSV writes an entry as "location,<species>..." rows.
func WriteCSV(w io.Writer, e *domain.CorrespondenceEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"location"}, e.Species...)); err != nil {
		return err
	}
	for loc := 0; loc < e.Locations; loc++ {
		row := []string{strconv.Itoa(loc)}
		for _, sp := range e.Species {
			id := e.SiteAt(sp, loc)
			if id == domain.NoSite {
				row = append(row, MissingToken)
			} else {
				row = append(row, strconv.Itoa(id))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a correspondence file written by WriteCSV or by hand. The
// location column is optional; rows define location order. The result is
// marked as user supplied.
func ReadCSV(r io.Reader) (*domain.CorrespondenceEntry, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidCorrespondence, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidCorrespondence)
	}

	header := records[0]
	offset := 0
	if len(header) > 0 && strings.EqualFold(strings.TrimSpace(header[0]), "location") {
		offset = 1
	}
	species := make([]string, 0, len(header)-offset)
	for _, h := range header[offset:] {
		species = append(species, strings.TrimSpace(h))
	}
	if len(species) == 0 {
		return nil, fmt.Errorf("%w: no species columns", domain.ErrInvalidCorrespondence)
	}

	e := &domain.CorrespondenceEntry{
		Species:     species,
		Locations:   len(records) - 1,
		Assignments: make(map[string][]int, len(species)),
		Source:      domain.CorrespondenceUser,
	}
	for _, sp := range species {
		e.Assignments[sp] = make([]int, 0, e.Locations)
	}
	for li, rec := range records[1:] {
		for k, sp := range species {
			cell := strings.TrimSpace(rec[offset+k])
			if cell == "" || strings.EqualFold(cell, MissingToken) {
				e.Assignments[sp] = append(e.Assignments[sp], domain.NoSite)
				continue
			}
			id, err := strconv.Atoi(cell)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %s: %q", domain.ErrInvalidCorrespondence, li+1, sp, cell)
			}
			e.Assignments[sp] = append(e.Assignments[sp], id)
		}
	}
	if err := e.Validate(nil); err != nil {
		return nil, err
	}
	return e, nil
}
