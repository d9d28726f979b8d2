// Package trajectory reads replicate trajectories as forward-only frame
// streams and builds the residue/instance topology used by the detector.
package trajectory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lipid-site-lab/internal/domain"
)

// Source is a forward-only, time-ordered stream of frames for one replicate.
// Next returns io.EOF after the last frame.
type Source interface {
	// Atoms returns the atom table shared by all frames.
	Atoms() []domain.Atom

	// Next returns the next frame. The returned frame is owned by the caller.
	Next(ctx context.Context) (*domain.Frame, error)

	Close() error
}

// Replicate identifies one independent trajectory of the system.
type Replicate struct {
	Index int
	Path  string
}

// Opener opens a replicate as a Source.
type Opener interface {
	Open(ctx context.Context, r Replicate) (Source, error)
}

// FileOpener opens GRO or PDB trajectory files by extension.
type FileOpener struct {
	// FallbackStep is the frame spacing (ps) used when frames carry no time.
	FallbackStep float64
}

// Open implements Opener. Errors are *domain.InputDataError.
func (o FileOpener) Open(_ context.Context, r Replicate) (Source, error) {
	f, err := os.Open(r.Path)
	if err != nil {
		return nil, &domain.InputDataError{Replicate: r.Index, Path: r.Path, Err: err}
	}

	step := o.FallbackStep
	if step <= 0 {
		step = 1
	}

	var src Source
	switch strings.ToLower(filepath.Ext(r.Path)) {
	case ".gro":
		src, err = NewGROReader(f, step)
	case ".pdb":
		src, err = NewPDBReader(f, step)
	default:
		err = fmt.Errorf("unsupported trajectory format %q", filepath.Ext(r.Path))
	}
	if err != nil {
		f.Close()
		return nil, &domain.InputDataError{Replicate: r.Index, Path: r.Path, Err: err}
	}
	return src, nil
}

// ReadAll drains a source. Intended for small inputs and tests.
func ReadAll(ctx context.Context, src Source) ([]*domain.Frame, error) {
	var frames []*domain.Frame
	for {
		fr, err := src.Next(ctx)
		if err != nil {
			if isEOF(err) {
				return frames, nil
			}
			return frames, err
		}
		frames = append(frames, fr)
	}
}
