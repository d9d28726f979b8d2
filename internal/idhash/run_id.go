package idhash

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const runIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRunID returns a random run identifier such as "run-3k9x0c2m1q7b".
func NewRunID() (string, error) {
	id, err := gonanoid.Generate(runIDAlphabet, 12)
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return "run-" + id, nil
}
