package config

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"lipid-site-lab/internal/domain"
)

var speciesPattern = regexp.MustCompile(`\w[A-Z0-9]{2,}`)

// ParseSpecies extracts mobile species names from a composition string such
// as "POPC:70 POPE:20 CHOL:10". Names keep first-appearance order.
func ParseSpecies(composition string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range speciesPattern.FindAllString(composition, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// ParseRadii reads "name radius" lines (nm). Blank lines and lines starting
// with '#' or ';' are skipped.
func ParseRadii(r io.Reader) (map[string]float64, error) {
	out := make(map[string]float64)
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: radii line %d: want \"name radius\"", domain.ErrInputData, lineNo)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("%w: radii line %d: bad radius %q", domain.ErrInputData, lineNo, fields[1])
		}
		out[fields[0]] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read radii: %w", err)
	}
	return out, nil
}

// ParseFloatList parses a comma or space separated list of numbers.
func ParseFloatList(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", f, err)
		}
		out = append(out, v)
	}
	return out, nil
}
