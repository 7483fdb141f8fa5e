package sweep

import (
	"fmt"
	"strings"
	"time"

	"riboscreen.com/ths/screen"
)

// keys that only make sense for a single temperature and are dropped from the
// folded metadata
var perTempMetaKeys = map[string]bool{
	"Temperature /°C": true,
	"Specificity %":   true,
	"Specificity SE":  true,
	"Runtime /s":      true,
}

// Result folds the per-temperature screen results of one sweep. The target is
// inferred by mode vote over the per-temperature winners and can be reassigned
// with Retarget; every series accessor derives from the current target.
type Result struct {
	celsius []float64
	results []*screen.Result

	targetIndex int
	meta        []screen.Meta
	date        string
	runtimeSec  float64
}

func newResult(t *Test, results []*screen.Result, elapsed time.Duration) *Result {
	r := &Result{
		celsius:     append([]float64(nil), t.Celsius...),
		results:     results,
		targetIndex: modeVote(results),
		date:        time.Now().Format("Jan 2 2006 at 15:04:05"),
		runtimeSec:  elapsed.Seconds(),
	}
	r.meta = r.buildMeta()
	return r
}

// modeVote picks the most frequent per-temperature winner; on a tie the
// winner first seen at the lowest temperature stays.
func modeVote(results []*screen.Result) int {
	counts := map[int]int{}
	first := map[int]int{}
	for i, res := range results {
		if _, seen := counts[res.TargetIndex]; !seen {
			first[res.TargetIndex] = i
		}
		counts[res.TargetIndex]++
	}
	best := results[0].TargetIndex
	for idx, c := range counts {
		if c > counts[best] || (c == counts[best] && first[idx] < first[best]) {
			best = idx
		}
	}
	return best
}

func (r *Result) buildMeta() []screen.Meta {
	var meta []screen.Meta
	last := r.results[len(r.results)-1]
	for _, m := range last.Meta {
		if !perTempMetaKeys[m.Key] {
			meta = append(meta, m)
		}
	}
	meta = append(meta,
		screen.Meta{Key: "Temperatures", Value: fmt.Sprintf("%d (%.2f–%.2f °C)",
			len(r.celsius), r.celsius[0], r.celsius[len(r.celsius)-1])},
		screen.Meta{Key: "Target name", Value: r.TargetName()},
		screen.Meta{Key: "Target sequence", Value: strings.Join(r.Target(), "+")},
		screen.Meta{Key: "Runtime /s", Value: fmt.Sprintf("%.3f", r.runtimeSec)},
	)
	return meta
}

// Len is the number of swept temperatures.
func (r *Result) Len() int { return len(r.results) }

// Celsius returns the swept temperatures in run order.
func (r *Result) Celsius() []float64 {
	return append([]float64(nil), r.celsius...)
}

// At returns the per-temperature screen result at step i.
func (r *Result) At(i int) (float64, *screen.Result) {
	return r.celsius[i], r.results[i]
}

// TargetIndex is the current target's position in the trigger-set matrix.
func (r *Result) TargetIndex() int { return r.targetIndex }

// Target returns the members of the current target set.
func (r *Result) Target() []string {
	return append([]string(nil), r.results[0].TriggerSets[r.targetIndex]...)
}

// TargetName joins the current target's member names, or "" when the sweep
// ran without names.
func (r *Result) TargetName() string {
	if r.results[0].Names == nil {
		return ""
	}
	return strings.Join(r.results[0].Names[r.targetIndex], "+")
}

// Meta returns the folded metadata in listing order.
func (r *Result) Meta() []screen.Meta {
	return append([]screen.Meta(nil), r.meta...)
}

// Retarget reassigns the sweep to an explicit trigger set: an exact member
// match, or a sole-member match for size-1 sets. On failure the result is
// left exactly as it was.
func (r *Result) Retarget(target []string) error {
	idx, ok := r.results[0].SetIndex(target)
	if !ok {
		return fmt.Errorf("sweep: target set %q not among the screened trigger sets",
			strings.Join(target, "+"))
	}
	r.targetIndex = idx
	r.meta = r.buildMeta()
	return nil
}

// RetargetName is Retarget by joined member names.
func (r *Result) RetargetName(name string) error {
	if r.results[0].Names == nil {
		return fmt.Errorf("sweep: no names recorded, retarget by sequence instead")
	}
	for i, names := range r.results[0].Names {
		if strings.Join(names, "+") == name {
			r.targetIndex = i
			r.meta = r.buildMeta()
			return nil
		}
	}
	return fmt.Errorf("sweep: no trigger set named %q", name)
}

// TargetRow returns the target set's statistics at step i.
func (r *Result) TargetRow(i int) screen.Row {
	return r.results[i].Rows[r.targetIndex]
}

// Activation is the target set's activation per temperature.
func (r *Result) Activation() []float64 {
	return r.series(func(i int) float64 { return r.TargetRow(i).Activation })
}

func (r *Result) ActivationSE() []float64 {
	return r.series(func(i int) float64 { return r.TargetRow(i).ActivationSE })
}

func (r *Result) RbsUnbinding() []float64 {
	return r.series(func(i int) float64 { return r.TargetRow(i).RbsUnbinding })
}

func (r *Result) AugUnbinding() []float64 {
	return r.series(func(i int) float64 { return r.TargetRow(i).AugUnbinding })
}

func (r *Result) PostAugUnbinding() []float64 {
	return r.series(func(i int) float64 { return r.TargetRow(i).PostAugUnbinding })
}

// Specificity is the per-temperature specificity toward the current target.
// Where a temperature's own winner is a different set, the switch is not
// specific for the target there and the value is zero.
func (r *Result) Specificity() []float64 {
	return r.series(func(i int) float64 {
		if r.results[i].TargetIndex != r.targetIndex {
			return 0
		}
		return r.results[i].Specificity
	})
}

func (r *Result) SpecificitySE() []float64 {
	return r.series(func(i int) float64 {
		if r.results[i].TargetIndex != r.targetIndex {
			return 0
		}
		return r.results[i].SpecificitySE
	})
}

func (r *Result) series(f func(i int) float64) []float64 {
	out := make([]float64, len(r.results))
	for i := range out {
		out[i] = f(i)
	}
	return out
}

// Slice returns the sweep restricted to steps [a, b). The slice re-infers its
// own default target from the temperatures it keeps.
func (r *Result) Slice(a, b int) (*Result, error) {
	if a < 0 || b > len(r.results) || a >= b {
		return nil, fmt.Errorf("sweep: slice [%d:%d) outside %d steps", a, b, len(r.results))
	}
	sub := &Result{
		celsius:    append([]float64(nil), r.celsius[a:b]...),
		results:    append([]*screen.Result(nil), r.results[a:b]...),
		date:       r.date,
		runtimeSec: r.runtimeSec,
	}
	sub.targetIndex = modeVote(sub.results)
	sub.meta = sub.buildMeta()
	return sub, nil
}

// SliceCelsius returns the sweep restricted to the temperatures in [lo, hi].
// Temperatures are matched in run order, so for the usual ascending sweep this
// keeps exactly the steps whose temperature falls inside the range.
func (r *Result) SliceCelsius(lo, hi float64) (*Result, error) {
	a := 0
	for a < len(r.celsius) && (r.celsius[a] < lo || r.celsius[a] > hi) {
		a++
	}
	b := a
	for b < len(r.celsius) && r.celsius[b] >= lo && r.celsius[b] <= hi {
		b++
	}
	if a == b {
		return nil, fmt.Errorf("sweep: no swept temperatures in [%.2f, %.2f] °C", lo, hi)
	}
	return r.Slice(a, b)
}

// Equal reports value equality of temperatures, target and per-temperature
// results; dates and runtimes are ignored.
func (r *Result) Equal(other *Result) bool {
	if other == nil || len(r.results) != len(other.results) ||
		r.targetIndex != other.targetIndex {
		return false
	}
	for i := range r.celsius {
		if r.celsius[i] != other.celsius[i] {
			return false
		}
	}
	for i := range r.results {
		if !r.results[i].Equal(other.results[i]) {
			return false
		}
	}
	return true
}
