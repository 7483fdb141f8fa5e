package screen

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"

	"riboscreen.com/ths/thermo"
	"riboscreen.com/ths/trigger"
)

// Row is the reduced sample statistics for one trigger set. Every value is a
// decimal probability; SEs are sampling standard errors (sd/√n, Bessel).
type Row struct {
	Activation         float64 `json:"activation"`
	ActivationSE       float64 `json:"activation_se"`
	RbsUnbinding       float64 `json:"rbs_unbinding"`
	RbsUnbindingSE     float64 `json:"rbs_unbinding_se"`
	AugUnbinding       float64 `json:"aug_unbinding"`
	AugUnbindingSE     float64 `json:"aug_unbinding_se"`
	PostAugUnbinding   float64 `json:"post_aug_unbinding"`
	PostAugUnbindingSE float64 `json:"post_aug_unbinding_se"`
}

// Meta is one ordered metadata entry; renderings preserve listing order.
type Meta struct {
	Key   string
	Value string
}

// Result is the immutable aggregate of one finished screen.
type Result struct {
	TriggerSets [][]string
	Names       [][]string
	Rows        []Row

	TargetIndex   int
	Target        []string // members of the winning set
	TargetName    string
	Specificity   float64
	SpecificitySE float64

	Temperature float64 // °C
	Meta        []Meta
	Date        string
}

func reduceSamples(samples []thermo.Sample, spans regionSpans) Row {
	n := len(samples)
	activated := make([]float64, n)
	rbs := make([]float64, n)
	aug := make([]float64, n)
	postAug := make([]float64, n)
	for i, smp := range samples {
		rbsFree := regionUnbound(smp, spans.rbs)
		rbs[i] = indicator(rbsFree)
		aug[i] = indicator(regionUnbound(smp, spans.aug))
		postAug[i] = indicator(regionUnbound(smp, spans.postAug))
		activated[i] = indicator(rbsFree && smp.StemResolved)
	}
	return Row{
		Activation:         stat.Mean(activated, nil),
		ActivationSE:       standardError(activated),
		RbsUnbinding:       stat.Mean(rbs, nil),
		RbsUnbindingSE:     standardError(rbs),
		AugUnbinding:       stat.Mean(aug, nil),
		AugUnbindingSE:     standardError(aug),
		PostAugUnbinding:   stat.Mean(postAug, nil),
		PostAugUnbindingSE: standardError(postAug),
	}
}

func regionUnbound(smp thermo.Sample, span trigger.Span) bool {
	for pos := span.Start; pos < span.End && pos < len(smp.Paired); pos++ {
		if smp.Paired[pos] {
			return false
		}
	}
	return true
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func standardError(vals []float64) float64 {
	return stat.StdDev(vals, nil) / math.Sqrt(float64(len(vals)))
}

func newResult(t *Test, p Params, rows []Row, elapsed time.Duration) *Result {
	// arg max over sets; strict > keeps the earlier-inserted set on ties
	targetIdx := 0
	for i, row := range rows {
		if row.Activation > rows[targetIdx].Activation {
			targetIdx = i
		}
	}

	specificity, specificitySE := specificityOf(rows, targetIdx)

	res := &Result{
		TriggerSets:   t.TriggerSets,
		Names:         t.Names,
		Rows:          rows,
		TargetIndex:   targetIdx,
		Target:        append([]string(nil), t.TriggerSets[targetIdx]...),
		Specificity:   specificity,
		SpecificitySE: specificitySE,
		Temperature:   t.Model.Temperature(),
		Date:          time.Now().Format("Jan 2 2006 at 15:04:05"),
	}
	if t.Names != nil {
		res.TargetName = strings.Join(t.Names[targetIdx], "+")
	}
	res.Meta = []Meta{
		{"Switch", t.Switch},
		{"Binding site", fmt.Sprintf("%s %s", t.Switch[t.BindingSite.Start:t.BindingSite.End], t.BindingSite)},
		{"Model", t.Model.Describe()},
		{"Max complex size", fmt.Sprintf("%d", p.MaxComplexSize)},
		{"Sample number", fmt.Sprintf("%d", p.NSamples)},
		{"Trigger sets", fmt.Sprintf("%d", len(rows))},
		{"Temperature /°C", fmt.Sprintf("%.2f", res.Temperature)},
		{"Specificity %", fmt.Sprintf("%.4f", specificity*100)},
		{"Specificity SE", fmt.Sprintf("%.4f", specificitySE*100)},
		{"Runtime /s", fmt.Sprintf("%.3f", elapsed.Seconds())},
	}
	return res
}

// specificityOf is the target's share of total activation, with its standard
// error propagated for a ratio of one term to the sum of all terms.
func specificityOf(rows []Row, targetIdx int) (float64, float64) {
	var sum float64
	for _, row := range rows {
		sum += row.Activation
	}
	if sum == 0 {
		return 0, 0
	}
	at := rows[targetIdx].Activation
	spec := at / sum

	var variance float64
	for i, row := range rows {
		var partial float64
		if i == targetIdx {
			partial = (sum - at) / (sum * sum)
		} else {
			partial = -at / (sum * sum)
		}
		variance += partial * partial * row.ActivationSE * row.ActivationSE
	}
	return spec, math.Sqrt(variance)
}

// Activation returns the per-set activation series in insertion order.
func (r *Result) Activation() []float64 {
	out := make([]float64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Activation
	}
	return out
}

// SetIndex locates a target inside this result's trigger sets: either an
// exact set match or, for a size-1 set, a single-element match.
func (r *Result) SetIndex(target []string) (int, bool) {
	for i, set := range r.TriggerSets {
		if setsEqual(set, target) {
			return i, true
		}
		if len(set) == 1 && len(target) == 1 && set[0] == target[0] {
			return i, true
		}
	}
	return 0, false
}

func setsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal reports full value equality with another result, ignoring creation
// date and runtime metadata.
func (r *Result) Equal(other *Result) bool {
	if other == nil || len(r.Rows) != len(other.Rows) ||
		r.TargetIndex != other.TargetIndex ||
		r.Specificity != other.Specificity ||
		r.Temperature != other.Temperature {
		return false
	}
	for i := range r.Rows {
		if r.Rows[i] != other.Rows[i] {
			return false
		}
	}
	for i := range r.TriggerSets {
		if !setsEqual(r.TriggerSets[i], other.TriggerSets[i]) {
			return false
		}
	}
	return true
}

var resultHeader = []string{
	"Trigger set", "Name", "Activation %", "Activation SE",
	"RBS unbinding %", "AUG unbinding %", "Post-AUG unbinding %",
}

// Table renders one row per trigger set, values in percent.
func (r *Result) Table() [][]string {
	rows := make([][]string, 0, len(r.Rows)+1)
	rows = append(rows, resultHeader)
	for i, row := range r.Rows {
		name := ""
		if r.Names != nil {
			name = strings.Join(r.Names[i], "+")
		}
		rows = append(rows, []string{
			strings.Join(r.TriggerSets[i], "+"),
			name,
			pct(row.Activation),
			pct(row.ActivationSE),
			pct(row.RbsUnbinding),
			pct(row.AugUnbinding),
			pct(row.PostAugUnbinding),
		})
	}
	return rows
}

// PrettyMeta renders the ordered metadata as "key: value" lines.
func (r *Result) PrettyMeta() string {
	lines := make([]string, len(r.Meta))
	for i, m := range r.Meta {
		lines[i] = fmt.Sprintf("%s: %s", m.Key, m.Value)
	}
	return strings.Join(lines, "\n")
}

// Prettify renders the date, metadata preamble and aligned table as text.
func (r *Result) Prettify() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n%s\n\n", r.Date, r.PrettyMeta())
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, row := range r.Table() {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	return buf.String()
}

// CSV renders the result with the metadata preamble comma-joined.
func (r *Result) CSV() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", r.Date)
	for _, m := range r.Meta {
		fmt.Fprintf(&buf, "%s,%s\n", m.Key, m.Value)
	}
	buf.WriteByte('\n')
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(r.Table())
	w.Flush()
	return buf.String()
}

func pct(v float64) string {
	return fmt.Sprintf("%g", v*100)
}
