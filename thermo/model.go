// Package thermo defines the thermodynamic ensemble capability consumed by
// the screening engine, plus a built-in nearest-neighbor reference model.
package thermo

import (
	"context"
)

// Strand is one RNA species in a mixture with its concentration in mol/L.
type Strand struct {
	Seq  string
	Conc float64
}

// Sample is one Boltzmann-sampled secondary structure of a strand mixture,
// projected onto the switch strand: the pairing state of every switch
// position, and whether the switch's translation-blocking stem resolved
// (i.e. a trigger displaced it).
type Sample struct {
	Paired       []bool
	StemResolved bool
}

// Model is an equilibrium ensemble solver. Implementations must be
// deterministic given their seed and must never be mutated mid-run: the
// sweep layer re-parameterizes via WithTemperature, which clones.
type Model interface {
	// Sample draws n equilibrium structure samples for the mixture, with
	// complexes limited to maxComplexSize strands. strands[0] is the switch.
	Sample(ctx context.Context, strands []Strand, maxComplexSize, n int) ([]Sample, error)

	// WithTemperature returns an otherwise-identical model at the given
	// temperature in °C. The receiver is left untouched so in-flight runs
	// at the old temperature cannot observe the change.
	WithTemperature(celsius float64) Model

	// Temperature reports the model temperature in °C.
	Temperature() float64

	// Describe returns a stable, human-readable summary of the model and
	// its conditions, usable as a cache-key component.
	Describe() string
}
