// Package trigger builds the trigger-set matrix a screening test runs over:
// fixed-size combinations of candidate trigger RNAs, their concentration
// vectors, and the binding-site location inside the switch.
package trigger

import (
	"fmt"
	"strings"
)

// Span is a half-open index range into the switch sequence.
type Span struct {
	Start int
	End   int
}

func (s Span) Len() int { return s.End - s.Start }

func (s Span) String() string { return fmt.Sprintf("[%d:%d)", s.Start, s.End) }

// Combinations returns all C(n, r) r-length combinations of items, in the
// order of the standard lexicographic-by-index enumeration. Order inside a
// set follows input order.
func Combinations(items []string, r int) ([][]string, error) {
	n := len(items)
	if r < 1 {
		return nil, fmt.Errorf("trigger: set size must be >= 1, got %d", r)
	}
	if r > n {
		return nil, fmt.Errorf("trigger: set size %d exceeds trigger count %d", r, n)
	}
	idx := make([]int, r)
	for i := range idx {
		idx[i] = i
	}
	var out [][]string
	for {
		set := make([]string, r)
		for i, j := range idx {
			set[i] = items[j]
		}
		out = append(out, set)

		// advance to the next index combination
		i := r - 1
		for i >= 0 && idx[i] == n-r+i {
			i--
		}
		if i < 0 {
			break
		}
		idx[i]++
		for j := i + 1; j < r; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
	return out, nil
}

// GroupNames regroups a name collection through the identical combination
// enumeration so names stay aligned to their trigger sets index-for-index.
func GroupNames(names []string, triggerCount, r int) ([][]string, error) {
	if len(names) != triggerCount {
		return nil, fmt.Errorf("trigger: %d names for %d triggers; each name must match a trigger",
			len(names), triggerCount)
	}
	return Combinations(names, r)
}

// UniformConcs builds a concentration matrix of the same shape as sets with
// every entry equal to conc (molarity).
func UniformConcs(sets [][]string, conc float64) [][]float64 {
	out := make([][]float64, len(sets))
	for i, set := range sets {
		row := make([]float64, len(set))
		for j := range row {
			row[j] = conc
		}
		out[i] = row
	}
	return out
}

// FindBindingSite locates the binding-site subsequence inside the switch,
// case normalized. The LAST occurrence wins: the literal subsequence can
// recur earlier in the switch by coincidence, and the true site is the
// right-most placement.
func FindBindingSite(switchSeq, site string) (Span, error) {
	return findSite(switchSeq, site, false)
}

// FindBindingSiteStrict is FindBindingSite but rejects switches where the
// subsequence occurs more than once.
func FindBindingSiteStrict(switchSeq, site string) (Span, error) {
	return findSite(switchSeq, site, true)
}

func findSite(switchSeq, site string, strict bool) (Span, error) {
	ths := strings.ToUpper(switchSeq)
	sub := strings.ToUpper(site)
	if len(sub) == 0 {
		return Span{}, fmt.Errorf("trigger: empty binding site")
	}
	if strict && strings.Count(ths, sub) > 1 {
		return Span{}, fmt.Errorf("trigger: binding site %q found more than once in switch", site)
	}
	i := strings.LastIndex(ths, sub)
	if i < 0 {
		return Span{}, fmt.Errorf("trigger: binding site %q not found in switch", site)
	}
	return Span{Start: i, End: i + len(sub)}, nil
}

// Normalize upper-cases a sequence and converts DNA thymine to uracil.
func Normalize(seq string) string {
	return strings.Map(func(r rune) rune {
		if r == 'T' {
			return 'U'
		}
		return r
	}, strings.ToUpper(seq))
}

// Validate rejects sequences containing anything outside the RNA alphabet
// after Normalize.
func Validate(seq string) error {
	for i := 0; i < len(seq); i++ {
		switch seq[i] {
		case 'A', 'C', 'G', 'U':
		default:
			return fmt.Errorf("trigger: invalid base %q at position %d", seq[i], i)
		}
	}
	return nil
}
