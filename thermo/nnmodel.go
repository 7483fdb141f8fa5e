package thermo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"riboscreen.com/ths/utils"
)

// NNModel is the built-in reference ensemble model. It scores the switch
// hairpin against the best trigger duplex with nearest-neighbor ΔH/ΔS sums
// and draws Boltzmann-weighted state samples. Deterministic given Seed, and
// safe to share across workers: Sample never mutates the model.
type NNModel struct {
	Celsius float64
	Sodium  float64 // monovalent cations, mol/L
	Seed    uint64
}

// NewNNModel returns an NNModel at the given temperature with 1 M Na+.
func NewNNModel(celsius float64) *NNModel {
	return &NNModel{Celsius: celsius, Sodium: 1.0, Seed: 1}
}

func (m *NNModel) WithTemperature(celsius float64) Model {
	clone := *m
	clone.Celsius = celsius
	return &clone
}

func (m *NNModel) Temperature() float64 { return m.Celsius }

func (m *NNModel) Describe() string {
	return fmt.Sprintf("nn-rna/celsius=%.2f/sodium=%.3f/seed=%d", m.Celsius, m.Sodium, m.Seed)
}

// saltAdjust shifts a duplex ΔG for non-1M monovalent salt, applied over
// nBases phosphates (ΔS(Na) = ΔS(1M) + 0.368·(N/2)·ln[Na+]).
func (m *NNModel) saltAdjust(kelvin float64, nBases int) float64 {
	if m.Sodium == 1.0 || m.Sodium <= 0 {
		return 0
	}
	return -kelvin * 0.368 * (float64(nBases) / 2.0) * math.Log(m.Sodium) / 1000.0
}

func (m *NNModel) Sample(ctx context.Context, strands []Strand, maxComplexSize, n int) ([]Sample, error) {
	if len(strands) == 0 {
		return nil, errors.New("thermo: empty strand mixture")
	}
	if n < 1 {
		return nil, fmt.Errorf("thermo: sample count must be >= 1, got %d", n)
	}
	if maxComplexSize < 1 {
		return nil, fmt.Errorf("thermo: max complex size must be >= 1, got %d", maxComplexSize)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sw := normalizeRNA(strands[0].Seq)
	kelvin := m.Celsius + 273.15
	dgStem, stemPos := hairpinScan(sw, kelvin)

	// strongest trigger duplex in the mixture; bimolecular complexes only
	// exist when the size cap allows them
	dgBind := math.Inf(1)
	if maxComplexSize >= 2 {
		for _, s := range strands[1:] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			t := normalizeRNA(s.Seq)
			dg := duplexEnergy(sw, t, kelvin) + m.saltAdjust(kelvin, len(t)) + assocPenalty(kelvin, s.Conc)
			if dg < dgBind {
				dgBind = dg
			}
		}
	}

	// three-state Boltzmann weights: trigger-bound (stem displaced), stem
	// closed, fully melted (reference, ΔG = 0)
	beta := 1.0 / (rKcal * kelvin)
	eMin := math.Min(0, math.Min(dgStem, dgBind))
	wOpen := boltzmann(dgBind, eMin, beta)
	wClosed := boltzmann(dgStem, eMin, beta)
	wMelt := boltzmann(0, eMin, beta)
	total := wOpen + wClosed + wMelt
	pOpen := wOpen / total
	pClosed := wClosed / total

	rng := rand.New(rand.NewSource(int64(m.sampleSeed(strands, maxComplexSize, n, kelvin))))
	samples := make([]Sample, n)
	for i := range samples {
		paired := make([]bool, len(sw))
		smp := Sample{Paired: paired}
		switch u := rng.Float64(); {
		case u < pOpen:
			smp.StemResolved = true
		case u < pOpen+pClosed:
			for _, pos := range stemPos {
				paired[pos] = true
			}
		}
		samples[i] = smp
	}
	return samples, nil
}

func boltzmann(e, eMin, beta float64) float64 {
	if math.IsInf(e, 1) {
		return 0
	}
	return math.Exp(-(e - eMin) * beta)
}

func (m *NNModel) sampleSeed(strands []Strand, maxComplexSize, n int, kelvin float64) uint64 {
	seed := utils.HashString(m.Describe())
	for _, s := range strands {
		seed ^= utils.HashString(s.Seq) + utils.HashFloat(s.Conc)
	}
	seed ^= utils.HashFloat(kelvin)
	seed ^= uint64(maxComplexSize)<<32 | uint64(n)
	return seed ^ m.Seed
}
