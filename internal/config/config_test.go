package config

import (
	"errors"
	"strings"
	"testing"

	"lipid-site-lab/internal/domain"
)

func TestDefault_Valid(t *testing.T) {
	cfg := Default().WithSpecies("POPC")
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Analysis)
	}{
		{"no species", func(a *Analysis) { a.Species = nil }},
		{"duplicate species", func(a *Analysis) { a.Species = []string{"POPC", "POPC"} }},
		{"lower above upper", func(a *Analysis) { a.Contact.Lower, a.Contact.Upper = 0.8, 0.6 }},
		{"zero lower", func(a *Analysis) { a.Contact.Lower = 0 }},
		{"bad unit", func(a *Analysis) { a.TimeUnit = "ms" }},
		{"bad policy", func(a *Analysis) { a.Correspondence.Policy = "jaccard2" }},
		{"bad format", func(a *Analysis) { a.Export.Format = "xyz" }},
		{"zero min site", func(a *Analysis) { a.Clustering.MinSiteSize = 0 }},
		{"negative radius", func(a *Analysis) { a.Kinetics.RadiusOverrides = map[string]float64{"BB": -1} }},
		{"r2 above one", func(a *Analysis) { a.Screening.MinR2 = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default().WithSpecies("POPC")
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, domain.ErrInputData) {
				t.Errorf("expected ErrInputData, got %v", err)
			}
		})
	}
}

func TestValidate_EqualCutoffs(t *testing.T) {
	cfg := Default().WithSpecies("POPC").WithCutoffs(0.6, 0.6)
	if err := cfg.Validate(); err != nil {
		t.Errorf("single-threshold config rejected: %v", err)
	}
}

func TestParseSpecies(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"POPC:70 POPE:20 CHOL:10", []string{"POPC", "POPE", "CHOL"}},
		{"POPC DOPC", []string{"POPC", "DOPC"}},
		{"CHOL CHOL PIP2", []string{"CHOL", "PIP2"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := ParseSpecies(tt.in)
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("ParseSpecies(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseRadii(t *testing.T) {
	in := "# martini\nBB 0.26\n\nSC1 0.23\n; comment\n"
	got, err := ParseRadii(strings.NewReader(in))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got["BB"] != 0.26 || got["SC1"] != 0.23 {
		t.Errorf("unexpected radii: %v", got)
	}

	if _, err := ParseRadii(strings.NewReader("BB\n")); !errors.Is(err, domain.ErrInputData) {
		t.Errorf("expected ErrInputData for short line, got %v", err)
	}
	if _, err := ParseRadii(strings.NewReader("BB zero\n")); !errors.Is(err, domain.ErrInputData) {
		t.Errorf("expected ErrInputData for bad value, got %v", err)
	}
}

func TestParseFloatList(t *testing.T) {
	got, err := ParseFloatList("0.4, 0.45 0.5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 0.4 || got[2] != 0.5 {
		t.Errorf("unexpected list: %v", got)
	}
	if _, err := ParseFloatList("a"); err == nil {
		t.Error("expected error")
	}
}
