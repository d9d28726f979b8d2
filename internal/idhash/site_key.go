package idhash

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mr-tron/base58"
)

// ComputeSiteKey computes a deterministic key for a binding site.
// Formula: SHA256(species|r1,r2,...,rn) over the ascending residue indices.
// Returns the base58-encoded hash, independent of residue order and of the
// site id assigned in a particular run.
func ComputeSiteKey(species string, residues []int) string {
	sorted := append([]int(nil), residues...)
	sort.Ints(sorted)

	parts := make([]string, len(sorted))
	for i, r := range sorted {
		parts[i] = strconv.Itoa(r)
	}
	data := fmt.Sprintf("%s|%s", species, strings.Join(parts, ","))

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeIntervalID computes a deterministic id for a contact interval.
// Formula: SHA256(run_id|species|replicate|residue|instance|start_frame)
// Returns the base58-encoded hash.
func ComputeIntervalID(runID, species string, replicate, residue, instance, startFrame int) string {
	data := fmt.Sprintf("%s|%s|%d|%d|%d|%d", runID, species, replicate, residue, instance, startFrame)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
