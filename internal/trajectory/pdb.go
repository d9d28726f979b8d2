package trajectory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"lipid-site-lab/internal/domain"
)

// PDBReader streams MODEL blocks of a multi-model PDB file. Coordinates are
// converted from Å to nm.
type PDBReader struct {
	r      *bufio.Reader
	closer io.Closer
	step   float64

	atoms   []domain.Atom
	pending *domain.Frame
	index   int
	done    bool
}

// NewPDBReader parses the first model to obtain the atom table.
func NewPDBReader(r io.Reader, fallbackStep float64) (*PDBReader, error) {
	p := &PDBReader{r: bufio.NewReaderSize(r, 1<<16), step: fallbackStep}
	if c, ok := r.(io.Closer); ok {
		p.closer = c
	}
	atoms, frame, err := p.readModel(true)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("pdb: no ATOM records")
		}
		return nil, err
	}
	p.atoms = atoms
	p.pending = frame
	return p, nil
}

// Atoms implements Source.
func (p *PDBReader) Atoms() []domain.Atom {
	return p.atoms
}

// Next implements Source.
func (p *PDBReader) Next(ctx context.Context) (*domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.pending != nil {
		f := p.pending
		p.pending = nil
		return f, nil
	}
	if p.done {
		return nil, io.EOF
	}
	_, frame, err := p.readModel(false)
	if err != nil {
		if errors.Is(err, io.EOF) {
			p.done = true
		}
		return nil, err
	}
	return frame, nil
}

// Close implements Source.
func (p *PDBReader) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}

func (p *PDBReader) readModel(withAtoms bool) ([]domain.Atom, *domain.Frame, error) {
	var (
		atoms   []domain.Atom
		coords  []domain.Vec3
		box     domain.Box
		t       = float64(p.index) * p.step
		started bool
	)

	for {
		line, err := p.r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) && started {
				break
			}
			return nil, nil, err
		}
		line = strings.TrimRight(line, "\r\n")

		switch {
		case strings.HasPrefix(line, "CRYST1") && len(line) >= 33:
			for k := 0; k < 3; k++ {
				v, perr := strconv.ParseFloat(strings.TrimSpace(line[6+9*k:15+9*k]), 64)
				if perr != nil {
					return nil, nil, fmt.Errorf("pdb model %d: CRYST1: %w", p.index, perr)
				}
				box[k] = v / 10
			}
		case strings.HasPrefix(line, "TITLE") || strings.HasPrefix(line, "REMARK"):
			if m := groTimePattern.FindStringSubmatch(line); m != nil {
				if v, perr := strconv.ParseFloat(m[1], 64); perr == nil {
					t = v
				}
			}
		case strings.HasPrefix(line, "ATOM") || strings.HasPrefix(line, "HETATM"):
			started = true
			if len(line) < 54 {
				return nil, nil, fmt.Errorf("pdb model %d: atom line too short", p.index)
			}
			var c domain.Vec3
			for k := 0; k < 3; k++ {
				v, perr := strconv.ParseFloat(strings.TrimSpace(line[30+8*k:38+8*k]), 64)
				if perr != nil {
					return nil, nil, fmt.Errorf("pdb model %d: coordinate: %w", p.index, perr)
				}
				c[k] = v / 10
			}
			coords = append(coords, c)
			if withAtoms {
				resNr, _ := strconv.Atoi(strings.TrimSpace(line[22:26]))
				a := domain.Atom{
					Index:     len(atoms),
					Name:      strings.TrimSpace(line[12:16]),
					ResName:   strings.TrimSpace(line[17:21]),
					ResNumber: resNr,
				}
				if len(line) >= 78 {
					a.Element = strings.TrimSpace(line[76:78])
				}
				if a.Element == "" {
					a.Element = guessElement(a.Name)
				}
				atoms = append(atoms, a)
			}
		case strings.HasPrefix(line, "ENDMDL") || strings.HasPrefix(line, "END"):
			if started {
				return p.finish(withAtoms, atoms, coords, box, t)
			}
		}

		if errors.Is(err, io.EOF) {
			break
		}
	}

	if !started {
		return nil, nil, io.EOF
	}
	return p.finish(withAtoms, atoms, coords, box, t)
}

func (p *PDBReader) finish(withAtoms bool, atoms []domain.Atom, coords []domain.Vec3, box domain.Box, t float64) ([]domain.Atom, *domain.Frame, error) {
	if !withAtoms && len(coords) != len(p.atoms) {
		return nil, nil, fmt.Errorf("pdb model %d: %d atoms, first model had %d", p.index, len(coords), len(p.atoms))
	}
	frame := &domain.Frame{Index: p.index, Time: t, Box: box, Coords: coords}
	p.index++
	return atoms, frame, nil
}

// WritePDB writes one MODEL block. Coordinates are converted from nm to Å.
func WritePDB(w io.Writer, model int, remark string, atoms []domain.Atom, coords []domain.Vec3, box domain.Box) error {
	if len(atoms) != len(coords) {
		return fmt.Errorf("pdb: %d atoms but %d coordinates", len(atoms), len(coords))
	}
	bw := bufio.NewWriter(w)
	if remark != "" {
		fmt.Fprintf(bw, "REMARK    %s\n", remark)
	}
	fmt.Fprintf(bw, "CRYST1%9.3f%9.3f%9.3f%7.2f%7.2f%7.2f P 1           1\n",
		box[0]*10, box[1]*10, box[2]*10, 90.0, 90.0, 90.0)
	fmt.Fprintf(bw, "MODEL     %4d\n", model)
	for i, a := range atoms {
		fmt.Fprintf(bw, "ATOM  %5d %-4s %-4s%1s%4d    %8.3f%8.3f%8.3f%6.2f%6.2f          %2s\n",
			(i+1)%100000, trunc(a.Name, 4), trunc(a.ResName, 4), "A", a.ResNumber%10000,
			coords[i][0]*10, coords[i][1]*10, coords[i][2]*10, 1.0, 0.0, a.Element)
	}
	fmt.Fprintln(bw, "ENDMDL")
	return bw.Flush()
}
