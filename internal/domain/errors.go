package domain

import (
	"errors"
	"fmt"
)

// Engine errors. Only input data errors abort a unit of work; the others
// are recorded as flags on the affected record.
var (
	// ErrInputData marks malformed or missing trajectory/topology input.
	ErrInputData = errors.New("input data error")

	// ErrInsufficientSampling marks a site with too few closed intervals for kinetics.
	ErrInsufficientSampling = errors.New("insufficient sampling")

	// ErrClusteringDegenerate marks a species with no residue passing the contact threshold.
	ErrClusteringDegenerate = errors.New("clustering degenerate: no contacted residues")

	// ErrFitConvergence marks a bi-exponential fit that did not converge.
	ErrFitConvergence = errors.New("fit did not converge")

	// ErrInvalidCorrespondence marks a correspondence entry breaking its invariants.
	ErrInvalidCorrespondence = errors.New("invalid correspondence")
)

// InputDataError describes an input failure for one replicate.
type InputDataError struct {
	Replicate int
	Path      string
	Err       error
}

func (e *InputDataError) Error() string {
	return fmt.Sprintf("replicate %d (%s): %v", e.Replicate, e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *InputDataError) Unwrap() error {
	return e.Err
}

// Is matches ErrInputData.
func (e *InputDataError) Is(target error) bool {
	return target == ErrInputData
}
