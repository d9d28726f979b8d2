package trajectory

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"lipid-site-lab/internal/domain"
)

var groTimePattern = regexp.MustCompile(`t=\s*([-+0-9.eE]+)`)

// GROReader streams frames from a (possibly multi-frame) GROMACS .gro file.
type GROReader struct {
	r      *bufio.Reader
	closer io.Closer
	step   float64

	atoms   []domain.Atom
	pending *domain.Frame // first frame, parsed eagerly for the atom table
	index   int
	done    bool
}

// NewGROReader parses the first frame to obtain the atom table.
// fallbackStep (ps) is used for frame times when titles carry no "t=".
func NewGROReader(r io.Reader, fallbackStep float64) (*GROReader, error) {
	g := &GROReader{r: bufio.NewReaderSize(r, 1<<16), step: fallbackStep}
	if c, ok := r.(io.Closer); ok {
		g.closer = c
	}

	atoms, frame, err := g.readFrame(true)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("gro: empty file")
		}
		return nil, err
	}
	g.atoms = atoms
	g.pending = frame
	return g, nil
}

// Atoms implements Source.
func (g *GROReader) Atoms() []domain.Atom {
	return g.atoms
}

// Next implements Source.
func (g *GROReader) Next(ctx context.Context) (*domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.pending != nil {
		f := g.pending
		g.pending = nil
		return f, nil
	}
	if g.done {
		return nil, io.EOF
	}
	_, frame, err := g.readFrame(false)
	if err != nil {
		if errors.Is(err, io.EOF) {
			g.done = true
		}
		return nil, err
	}
	return frame, nil
}

// Close implements Source.
func (g *GROReader) Close() error {
	if g.closer != nil {
		return g.closer.Close()
	}
	return nil
}

func (g *GROReader) readLine() (string, error) {
	line, err := g.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (g *GROReader) readFrame(withAtoms bool) ([]domain.Atom, *domain.Frame, error) {
	title, err := g.readLine()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(title) == "" {
		// trailing blank lines
		for {
			title, err = g.readLine()
			if err != nil {
				return nil, nil, err
			}
			if strings.TrimSpace(title) != "" {
				break
			}
		}
	}

	countLine, err := g.readLine()
	if err != nil {
		return nil, nil, fmt.Errorf("gro frame %d: missing atom count: %w", g.index, io.ErrUnexpectedEOF)
	}
	n, err := strconv.Atoi(strings.TrimSpace(countLine))
	if err != nil || n < 0 {
		return nil, nil, fmt.Errorf("gro frame %d: bad atom count %q", g.index, countLine)
	}
	if !withAtoms && n != len(g.atoms) {
		return nil, nil, fmt.Errorf("gro frame %d: %d atoms, first frame had %d", g.index, n, len(g.atoms))
	}

	var atoms []domain.Atom
	if withAtoms {
		atoms = make([]domain.Atom, n)
	}
	coords := make([]domain.Vec3, n)
	for i := 0; i < n; i++ {
		line, err := g.readLine()
		if err != nil {
			return nil, nil, fmt.Errorf("gro frame %d: atom %d: %w", g.index, i, io.ErrUnexpectedEOF)
		}
		if len(line) < 44 {
			return nil, nil, fmt.Errorf("gro frame %d: atom line %d too short", g.index, i)
		}
		for k := 0; k < 3; k++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(line[20+8*k:28+8*k]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("gro frame %d: atom %d coordinate: %w", g.index, i, err)
			}
			coords[i][k] = v
		}
		if withAtoms {
			resNr, _ := strconv.Atoi(strings.TrimSpace(line[0:5]))
			name := strings.TrimSpace(line[10:15])
			atoms[i] = domain.Atom{
				Index:     i,
				Name:      name,
				ResName:   strings.TrimSpace(line[5:10]),
				ResNumber: resNr,
				Element:   guessElement(name),
			}
		}
	}

	boxLine, err := g.readLine()
	if err != nil {
		return nil, nil, fmt.Errorf("gro frame %d: missing box: %w", g.index, io.ErrUnexpectedEOF)
	}
	var box domain.Box
	fields := strings.Fields(boxLine)
	if len(fields) < 3 {
		return nil, nil, fmt.Errorf("gro frame %d: bad box line %q", g.index, boxLine)
	}
	for k := 0; k < 3; k++ {
		if box[k], err = strconv.ParseFloat(fields[k], 64); err != nil {
			return nil, nil, fmt.Errorf("gro frame %d: box: %w", g.index, err)
		}
	}

	t := float64(g.index) * g.step
	if m := groTimePattern.FindStringSubmatch(title); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			t = v
		}
	}

	frame := &domain.Frame{Index: g.index, Time: t, Box: box, Coords: coords}
	g.index++
	return atoms, frame, nil
}

// WriteGRO writes one frame in .gro format. Residue and atom numbers wrap
// at 100000 as GROMACS does.
func WriteGRO(w io.Writer, title string, atoms []domain.Atom, coords []domain.Vec3, box domain.Box) error {
	if len(atoms) != len(coords) {
		return fmt.Errorf("gro: %d atoms but %d coordinates", len(atoms), len(coords))
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%5d\n", title, len(atoms))
	for i, a := range atoms {
		fmt.Fprintf(bw, "%5d%-5s%5s%5d%8.3f%8.3f%8.3f\n",
			a.ResNumber%100000, trunc(a.ResName, 5), trunc(a.Name, 5), (i+1)%100000,
			coords[i][0], coords[i][1], coords[i][2])
	}
	fmt.Fprintf(bw, "%10.5f%10.5f%10.5f\n", box[0], box[1], box[2])
	return bw.Flush()
}

// GROTitle builds a frame title carrying the time in ps.
func GROTitle(name string, timePS float64) string {
	return fmt.Sprintf("%s t= %.5f", name, timePS)
}

func trunc(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func guessElement(name string) string {
	if name == "" {
		return ""
	}
	switch name[0] {
	case 'C', 'N', 'O', 'S', 'H', 'P':
		return string(name[0])
	}
	return ""
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF)
}
