// Package fasta holds trigger panels in memory so they can be handed to
// screening tests, with a small FASTA parser and remote panel sources.
package fasta

import (
	"fmt"
	"os"
	"strings"
)

const lineLength = 70

// Record is one named sequence from a panel.
type Record struct {
	ID          string
	Description string
	Seq         string
}

// Panel is an ordered collection of named RNA sequences. Order is
// significant: screening statistics index results by position.
type Panel struct {
	records []Record
}

// Parse reads FASTA text into a Panel. Headers may start with '>' or the
// legacy ';'. The ID is the header token before the first space, the
// description is the remainder.
func Parse(text string) (*Panel, error) {
	var (
		records []Record
		cur     *Record
		seq     strings.Builder
	)
	flush := func() {
		if cur != nil {
			cur.Seq = seq.String()
			records = append(records, *cur)
			seq.Reset()
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' || line[0] == ';' {
			flush()
			header := strings.TrimLeft(line, ">;")
			id, desc := header, ""
			if i := strings.IndexByte(header, ' '); i >= 0 {
				id, desc = header[:i], strings.TrimSpace(header[i+1:])
			}
			cur = &Record{ID: id, Description: desc}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("fasta: sequence data before first header: %q", line)
		}
		seq.WriteString(line)
	}
	flush()
	for i, rec := range records {
		if len(rec.Seq) == 0 {
			return nil, fmt.Errorf("fasta: record %q (#%d) has no sequence", rec.ID, i)
		}
	}
	return &Panel{records: records}, nil
}

// FromFile parses the FASTA file at path.
func FromFile(path string) (*Panel, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	panel, err := Parse(string(buf))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return panel, nil
}

func (p *Panel) Len() int { return len(p.records) }

// Record returns the i-th record.
func (p *Panel) Record(i int) Record { return p.records[i] }

// IDs returns the record IDs in panel order.
func (p *Panel) IDs() []string {
	out := make([]string, len(p.records))
	for i, rec := range p.records {
		out[i] = rec.ID
	}
	return out
}

// Seqs returns the sequences in panel order.
func (p *Panel) Seqs() []string {
	out := make([]string, len(p.records))
	for i, rec := range p.records {
		out[i] = rec.Seq
	}
	return out
}

// Descriptions returns the record descriptions in panel order.
func (p *Panel) Descriptions() []string {
	out := make([]string, len(p.records))
	for i, rec := range p.records {
		out[i] = rec.Description
	}
	return out
}

// ByID returns the first record with the given ID.
func (p *Panel) ByID(id string) (Record, bool) {
	for _, rec := range p.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

// BySequence returns the first record with the given sequence.
func (p *Panel) BySequence(seq string) (Record, bool) {
	for _, rec := range p.records {
		if rec.Seq == seq {
			return rec, true
		}
	}
	return Record{}, false
}

// ByDescription returns the first record with the given description.
func (p *Panel) ByDescription(desc string) (Record, bool) {
	for _, rec := range p.records {
		if rec.Description == desc {
			return rec, true
		}
	}
	return Record{}, false
}

// Slice returns a new Panel over records [a, b).
func (p *Panel) Slice(a, b int) *Panel {
	sub := make([]Record, b-a)
	copy(sub, p.records[a:b])
	return &Panel{records: sub}
}

// Append returns a new Panel holding this panel's records followed by
// other's. Neither input is modified.
func (p *Panel) Append(other *Panel) *Panel {
	merged := make([]Record, 0, len(p.records)+len(other.records))
	merged = append(merged, p.records...)
	merged = append(merged, other.records...)
	return &Panel{records: merged}
}

// Equal reports whether both panels hold identical records in the same order.
func (p *Panel) Equal(other *Panel) bool {
	if len(p.records) != len(other.records) {
		return false
	}
	for i := range p.records {
		if p.records[i] != other.records[i] {
			return false
		}
	}
	return true
}

// Format renders the panel back to FASTA text with sequences wrapped to 70
// characters per line.
func (p *Panel) Format() string {
	var b strings.Builder
	for _, rec := range p.records {
		b.WriteByte('>')
		b.WriteString(rec.ID)
		if len(rec.Description) > 0 {
			b.WriteByte(' ')
			b.WriteString(rec.Description)
		}
		b.WriteByte('\n')
		for start := 0; start < len(rec.Seq); start += lineLength {
			end := start + lineLength
			if end > len(rec.Seq) {
				end = len(rec.Seq)
			}
			b.WriteString(rec.Seq[start:end])
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
