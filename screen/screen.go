// Package screen runs one riboswitch sequence against a panel of trigger-RNA
// sets on a thermodynamic ensemble model and reduces the sampled structures
// into per-set activation statistics.
package screen

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"strings"

	"riboscreen.com/ths/thermo"
	"riboscreen.com/ths/trigger"
	"riboscreen.com/ths/utils"
)

const startCodon = "AUG"

// Cache is an optional store for finished per-set evaluations, keyed by the
// full evaluation configuration. A nil cache disables caching.
type Cache interface {
	Get(ctx context.Context, key string, into interface{}) (bool, error)
	Put(ctx context.Context, key string, v interface{}) error
}

// Test owns one switch, its binding site, the trigger-set matrix and a model
// handle. Running it populates the result; everything else is read-only
// during a run.
type Test struct {
	Switch      string
	SwitchConc  float64
	BindingSite trigger.Span
	TriggerSets [][]string
	ConcSets    [][]float64
	Names       [][]string // optional, aligned 1:1 with TriggerSets
	ConstRNA    map[string]float64
	Model       thermo.Model
	Cache       Cache

	result *Result
}

// NewTest builds a validated Test.
func NewTest(switchSeq string, switchConc float64, site trigger.Span,
	sets [][]string, concs [][]float64, model thermo.Model) (*Test, error) {
	t := &Test{
		Switch:      trigger.Normalize(switchSeq),
		SwitchConc:  switchConc,
		BindingSite: site,
		TriggerSets: sets,
		ConcSets:    concs,
		Model:       model,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the shape invariants shared by Run and Generate.
func (t *Test) Validate() error {
	if err := trigger.Validate(trigger.Normalize(t.Switch)); err != nil {
		return fmt.Errorf("screen: bad switch sequence: %w", err)
	}
	if t.Model == nil {
		return fmt.Errorf("screen: no thermodynamic model configured")
	}
	if len(t.TriggerSets) == 0 {
		return fmt.Errorf("screen: no trigger sets")
	}
	if len(t.ConcSets) != len(t.TriggerSets) {
		return fmt.Errorf("screen: %d concentration sets for %d trigger sets",
			len(t.ConcSets), len(t.TriggerSets))
	}
	for i := range t.TriggerSets {
		if len(t.ConcSets[i]) != len(t.TriggerSets[i]) {
			return fmt.Errorf("screen: trigger set %d has %d members but %d concentrations",
				i, len(t.TriggerSets[i]), len(t.ConcSets[i]))
		}
		for j, seq := range t.TriggerSets[i] {
			if err := trigger.Validate(trigger.Normalize(seq)); err != nil {
				return fmt.Errorf("screen: trigger set %d member %d: %w", i, j, err)
			}
		}
	}
	if t.Names != nil && len(t.Names) != len(t.TriggerSets) {
		return fmt.Errorf("screen: %d name sets for %d trigger sets",
			len(t.Names), len(t.TriggerSets))
	}
	if t.BindingSite.Start < 0 || t.BindingSite.End > len(t.Switch) ||
		t.BindingSite.Start >= t.BindingSite.End {
		return fmt.Errorf("screen: binding site %s outside switch of length %d",
			t.BindingSite, len(t.Switch))
	}
	if _, err := t.regions(); err != nil {
		return err
	}
	return nil
}

// Copy clones the test configuration. Mutable containers are copied deeply;
// the clone starts with no result. The model handle is shared: models are
// read-only during runs.
func (t *Test) Copy() *Test {
	clone := &Test{
		Switch:      t.Switch,
		SwitchConc:  t.SwitchConc,
		BindingSite: t.BindingSite,
		Model:       t.Model,
		Cache:       t.Cache,
	}
	clone.TriggerSets = make([][]string, len(t.TriggerSets))
	for i, set := range t.TriggerSets {
		clone.TriggerSets[i] = append([]string(nil), set...)
	}
	clone.ConcSets = make([][]float64, len(t.ConcSets))
	for i, row := range t.ConcSets {
		clone.ConcSets[i] = append([]float64(nil), row...)
	}
	if t.Names != nil {
		clone.Names = make([][]string, len(t.Names))
		for i, names := range t.Names {
			clone.Names[i] = append([]string(nil), names...)
		}
	}
	if t.ConstRNA != nil {
		clone.ConstRNA = make(map[string]float64, len(t.ConstRNA))
		for seq, conc := range t.ConstRNA {
			clone.ConstRNA[seq] = conc
		}
	}
	return clone
}

// Result returns the finished result of the last completed run, or nil.
func (t *Test) Result() *Result { return t.result }

// Params configures one run.
type Params struct {
	MaxComplexSize int
	NSamples       int // Boltzmann samples per evaluation; default 100
	NWorkers       int // parallel workers; default NumCPU
	NChunks        int // work chunks dispatched to the pool; default NWorkers
}

func (p Params) withDefaults(nSets int) (Params, error) {
	if p.MaxComplexSize < 1 {
		return p, fmt.Errorf("screen: max complex size must be >= 1, got %d", p.MaxComplexSize)
	}
	if p.NSamples == 0 {
		p.NSamples = 100
	}
	if p.NSamples < 2 {
		return p, fmt.Errorf("screen: need at least 2 samples for a standard error, got %d", p.NSamples)
	}
	if p.NWorkers < 1 {
		p.NWorkers = runtime.NumCPU()
	}
	if p.NChunks < 1 {
		p.NChunks = p.NWorkers
	}
	if p.NChunks > nSets {
		p.NChunks = nSets
	}
	return p, nil
}

// Run executes every chunk to completion and stores the final result. It is
// equivalent to fully draining Generate.
func (t *Test) Run(ctx context.Context, p Params) (*Result, error) {
	stream, err := t.Generate(ctx, p)
	if err != nil {
		return nil, err
	}
	defer stream.Close()
	for {
		batch, ok := stream.Next()
		if !ok {
			break
		}
		if batch.Err != nil {
			return nil, batch.Err
		}
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return t.result, nil
}

// regionSpans are the structural regions reduced from each sample.
type regionSpans struct {
	rbs     trigger.Span
	aug     trigger.Span
	postAug trigger.Span
}

func (t *Test) regions() (regionSpans, error) {
	sw := trigger.Normalize(t.Switch)
	// the start codon the stem blocks sits downstream of the binding site;
	// fall back to the first occurrence anywhere
	augStart := strings.Index(sw[min(t.BindingSite.End, len(sw)):], startCodon)
	if augStart >= 0 {
		augStart += t.BindingSite.End
	} else {
		augStart = strings.Index(sw, startCodon)
	}
	if augStart < 0 {
		return regionSpans{}, fmt.Errorf("screen: no start codon in switch")
	}
	return regionSpans{
		rbs:     t.BindingSite,
		aug:     trigger.Span{Start: augStart, End: augStart + len(startCodon)},
		postAug: trigger.Span{Start: augStart + len(startCodon), End: len(sw)},
	}, nil
}

// strandMixture forms the full strand list for one trigger set: switch
// first, then the set members, then constant background RNAs in sorted
// order so mixtures hash identically across runs.
func (t *Test) strandMixture(idx int) []thermo.Strand {
	strands := make([]thermo.Strand, 0, 1+len(t.TriggerSets[idx])+len(t.ConstRNA))
	strands = append(strands, thermo.Strand{Seq: t.Switch, Conc: t.SwitchConc})
	for j, seq := range t.TriggerSets[idx] {
		strands = append(strands, thermo.Strand{Seq: seq, Conc: t.ConcSets[idx][j]})
	}
	constSeqs := make([]string, 0, len(t.ConstRNA))
	for seq := range t.ConstRNA {
		constSeqs = append(constSeqs, seq)
	}
	sort.Strings(constSeqs)
	for _, seq := range constSeqs {
		strands = append(strands, thermo.Strand{Seq: seq, Conc: t.ConstRNA[seq]})
	}
	return strands
}

func (t *Test) cacheKey(strands []thermo.Strand, p Params) string {
	parts := make([]string, 0, 2+2*len(strands))
	parts = append(parts, t.Model.Describe(), fmt.Sprintf("%d/%d", p.MaxComplexSize, p.NSamples))
	for _, s := range strands {
		parts = append(parts, s.Seq, fmt.Sprintf("%.6g", s.Conc))
	}
	return fmt.Sprintf("eval:%016x", utils.HashStrings(parts))
}

// evaluate runs one trigger set through the model and reduces the sampled
// structures into region statistics.
func (t *Test) evaluate(ctx context.Context, p Params, spans regionSpans, idx int) (Row, error) {
	strands := t.strandMixture(idx)

	var key string
	if t.Cache != nil {
		key = t.cacheKey(strands, p)
		var row Row
		hit, err := t.Cache.Get(ctx, key, &row)
		if err == nil && hit {
			return row, nil
		}
	}

	samples, err := t.Model.Sample(ctx, strands, p.MaxComplexSize, p.NSamples)
	if err != nil {
		return Row{}, fmt.Errorf("screen: trigger set %d: %w", idx, err)
	}
	if len(samples) != p.NSamples {
		return Row{}, fmt.Errorf("screen: trigger set %d: model returned %d of %d samples",
			idx, len(samples), p.NSamples)
	}
	row := reduceSamples(samples, spans)

	if t.Cache != nil {
		// best effort; a cold cache next time is not an error
		_ = t.Cache.Put(ctx, key, row)
	}
	return row, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
