// Package main writes synthetic replicate trajectories with known binding
// patches, laid out as <out>/run<N>/md_stride.gro.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"lipid-site-lab/internal/cli"
	"lipid-site-lab/internal/logger"
	"lipid-site-lab/internal/trajectory"
)

func main() {
	outDir := flag.String("out", cli.Env("DATA_PATH", "data/synthetic"), "Output directory")
	replicates := flag.Int("replicates", 2, "Number of replicates")
	frames := flag.Int("frames", 2000, "Frames per replicate")
	step := flag.Float64("step", 100, "Frame spacing (ps)")
	seed := flag.Uint64("seed", 1, "Random seed")
	debug := flag.Bool("debug", false, "Debug logging")
	flag.Parse()

	log := logger.New(logger.Options{Debug: *debug})

	sys := trajectory.DefaultSyntheticSystem()
	sys.Frames = *frames
	sys.Step = *step
	sys.Seed = *seed
	if err := sys.Validate(); err != nil {
		log.Fatal("invalid system", "err", err)
	}

	ctx := context.Background()
	for i := 0; i < *replicates; i++ {
		path := filepath.Join(*outDir, fmt.Sprintf("run%d", i+1), trajectory.DefaultTrajectoryFile)
		if err := writeReplicate(ctx, sys, trajectory.Replicate{Index: i, Path: path}); err != nil {
			log.Fatal("write replicate", "path", path, "err", err)
		}
		log.Info("wrote replicate", "path", path, "frames", sys.Frames)
	}
}

func writeReplicate(ctx context.Context, sys trajectory.SyntheticSystem, rep trajectory.Replicate) error {
	if err := os.MkdirAll(filepath.Dir(rep.Path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(rep.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	src, err := sys.Open(ctx, rep)
	if err != nil {
		return err
	}
	defer src.Close()
	atoms := src.Atoms()
	for {
		fr, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		title := trajectory.GROTitle(fmt.Sprintf("synthetic replicate %d", rep.Index+1), fr.Time)
		if err := trajectory.WriteGRO(w, title, atoms, fr.Coords, fr.Box); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
