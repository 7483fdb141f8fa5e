package sweep

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"riboscreen.com/ths/screen"
)

var sweepHeader = []string{
	"Temperature /°C", "Target name", "Target sequence",
	"Activation %", "Activation SE",
	"Specificity %", "Specificity SE",
	"RBS unbinding %", "AUG unbinding %", "Post-AUG unbinding %",
}

// Table renders one row per swept temperature, values in percent. The target
// name and sequence columns carry each temperature's own winning set, which
// can differ from the sweep-wide target the numeric columns track.
func (r *Result) Table() [][]string {
	spec := r.Specificity()
	specSE := r.SpecificitySE()
	rows := make([][]string, 0, len(r.results)+1)
	rows = append(rows, sweepHeader)
	for i := range r.results {
		row := r.TargetRow(i)
		res := r.results[i]
		rows = append(rows, []string{
			fmt.Sprintf("%.2f", r.celsius[i]),
			res.TargetName,
			strings.Join(res.Target, "+"),
			pct(row.Activation),
			pct(row.ActivationSE),
			pct(spec[i]),
			pct(specSE[i]),
			pct(row.RbsUnbinding),
			pct(row.AugUnbinding),
			pct(row.PostAugUnbinding),
		})
	}
	return rows
}

// Prettify renders the date, folded metadata and aligned table as text.
func (r *Result) Prettify() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", r.date)
	for _, m := range r.meta {
		fmt.Fprintf(&buf, "%s: %s\n", m.Key, m.Value)
	}
	buf.WriteByte('\n')
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	for _, row := range r.Table() {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
	return buf.String()
}

// CSV renders the sweep with the metadata preamble comma-joined.
func (r *Result) CSV() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\n", r.date)
	for _, m := range r.meta {
		fmt.Fprintf(&buf, "%s,%s\n", m.Key, m.Value)
	}
	buf.WriteByte('\n')
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(r.Table())
	w.Flush()
	return buf.String()
}

type sweepDocument struct {
	Date        string       `json:"date"`
	Meta        []metaEntry  `json:"meta"`
	Target      []string     `json:"target"`
	TargetName  string       `json:"target_name,omitempty"`
	Celsius     []float64    `json:"celsius"`
	Rows        []screen.Row `json:"rows"`
	Specificity []float64    `json:"specificity"`
	SpecSE      []float64    `json:"specificity_se"`
}

type metaEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// JSON renders the sweep as a single document.
func (r *Result) JSON() ([]byte, error) {
	doc := sweepDocument{
		Date:        r.date,
		Target:      r.Target(),
		TargetName:  r.TargetName(),
		Celsius:     r.Celsius(),
		Rows:        make([]screen.Row, len(r.results)),
		Specificity: r.Specificity(),
		SpecSE:      r.SpecificitySE(),
	}
	for _, m := range r.meta {
		doc.Meta = append(doc.Meta, metaEntry{Key: m.Key, Value: m.Value})
	}
	for i := range r.results {
		doc.Rows[i] = r.TargetRow(i)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func pct(v float64) string {
	return fmt.Sprintf("%g", v*100)
}
