// internal/portion/policy.go
package portion

import (
	"strings"
)

const (
	// EpsilonVolumeM3 is the volume given to an item whose mask has no measurable depth.
	EpsilonVolumeM3 = 0.0001
	// MinGrams is the smallest portion the depth path reports.
	MinGrams = 30.0
	// FallbackGrams is the nominal portion used when no depth is available.
	FallbackGrams = 150.0
	// DefaultDensity is the density, in g/cm3, of foods missing from the density table.
	DefaultDensity = 1.0

	cubicCentimetersPerCubicMeter = 1_000_000
)

// Policy decides what happens when the geometry is degenerate.
type Policy struct {
	Name            string
	EpsilonVolumeM3 float64
	MinGrams        float64
	FallbackGrams   float64
	// Strict rejects masks without valid depth instead of using EpsilonVolumeM3.
	Strict bool
}

// DefaultPolicy always produces an estimate, falling back to nominal values.
func DefaultPolicy() Policy {
	return Policy{
		Name:            "fallback",
		EpsilonVolumeM3: EpsilonVolumeM3,
		MinGrams:        MinGrams,
		FallbackGrams:   FallbackGrams,
	}
}

// StrictPolicy keeps the floors but fails an item that has no depth signal.
func StrictPolicy() Policy {
	p := DefaultPolicy()
	p.Name = "strict"
	p.Strict = true
	return p
}

// PolicyByName returns the policy called name; unknown names get the default.
func PolicyByName(name string) Policy {
	if strings.EqualFold(strings.TrimSpace(name), "strict") {
		return StrictPolicy()
	}
	return DefaultPolicy()
}

// DensityTable maps lower-cased food names to densities in g/cm3.
type DensityTable struct {
	densities map[string]float64
	fallback  float64
}

// NewDensityTable copies entries into a table. Keys are matched case-insensitively.
func NewDensityTable(entries map[string]float64, fallback float64) DensityTable {
	m := make(map[string]float64, len(entries))
	for name, d := range entries {
		m[strings.ToLower(strings.TrimSpace(name))] = d
	}
	return DensityTable{densities: m, fallback: fallback}
}

// DefaultDensities returns the density priors for the foods the recognizer knows.
func DefaultDensities() DensityTable {
	return NewDensityTable(map[string]float64{
		"white rice":       0.85,
		"salad":            0.3,
		"chicken breast":   1.05,
		"steamed broccoli": 0.35,
		"apple slices":     0.8,
		"pasta":            0.9,
		"salmon":           1.05,
		"potatoes":         0.75,
	}, DefaultDensity)
}

func (t DensityTable) Lookup(name string) float64 {
	if d, ok := t.densities[strings.ToLower(strings.TrimSpace(name))]; ok {
		return d
	}
	if t.fallback > 0 {
		return t.fallback
	}
	return DefaultDensity
}
