// RNA nearest-neighbor parameters (Xia et al. 1998 style set).
// Units: ΔH in kcal/mol, ΔS in cal/(K·mol). ΔG(T) = ΔH − T·ΔS/1000.

package thermo

import (
	"math"
	"strings"
)

// Gas constant in kcal/(K·mol).
const rKcal = 0.0019872

// NNParams holds nearest-neighbor propagation parameters.
type NNParams struct {
	DH float64 // kcal/mol
	DS float64 // cal/(K·mol)
}

// Watson–Crick propagation parameters keyed by the 5'→3' dinucleotide on the
// switch-side strand, assuming a WC partner.
var stackParams = map[string]NNParams{
	"AA": {-6.82, -19.0},
	"AU": {-9.38, -26.7},
	"AG": {-10.48, -27.1},
	"AC": {-10.44, -26.9},
	"UA": {-7.69, -20.5},
	"UU": {-6.82, -19.0},
	"UG": {-10.44, -26.9},
	"UC": {-12.44, -32.5},
	"GA": {-12.44, -32.5},
	"GU": {-11.40, -29.5},
	"GG": {-13.39, -32.7},
	"GC": {-14.88, -36.9},
	"CA": {-10.44, -26.9},
	"CU": {-10.48, -27.1},
	"CG": {-10.64, -26.7},
	"CC": {-13.39, -32.7},
}

var (
	initParams   = NNParams{+3.61, -1.5}  // duplex initiation
	wobbleStack  = NNParams{-4.00, -13.0} // any stack touching a GU pair
	hairpinLoop  = NNParams{0.0, -16.0}   // loop closure entropy
	minStemRun   = 4                      // shortest pairing run worth scoring
	minLoopBases = 3
)

// wcPair reports canonical RNA base pairing, gu reports a wobble pair.
func wcPair(a, b byte) bool {
	switch a {
	case 'A':
		return b == 'U'
	case 'U':
		return b == 'A'
	case 'G':
		return b == 'C'
	case 'C':
		return b == 'G'
	}
	return false
}

func guPair(a, b byte) bool {
	return (a == 'G' && b == 'U') || (a == 'U' && b == 'G')
}

func pairs(a, b byte) bool { return wcPair(a, b) || guPair(a, b) }

// runEnergy sums stack parameters along a contiguous pairing run of the
// switch-side bases top[0:n] against partner bases bot[0:n] (bot aligned so
// bot[i] pairs top[i]).
func runEnergy(top, bot []byte, kelvin float64) float64 {
	dh, ds := initParams.DH, initParams.DS
	for i := 0; i+1 < len(top); i++ {
		if guPair(top[i], bot[i]) || guPair(top[i+1], bot[i+1]) {
			dh += wobbleStack.DH
			ds += wobbleStack.DS
			continue
		}
		prm, ok := stackParams[string(top[i:i+2])]
		if !ok {
			continue
		}
		dh += prm.DH
		ds += prm.DS
	}
	return dh - kelvin*ds/1000.0
}

// duplexEnergy finds the most stable contiguous intermolecular duplex between
// the switch s and a trigger t (t binds antiparallel: s[i+k] pairs t[j-k]).
// Returns the minimum ΔG(T); +Inf if no run of minStemRun pairs exists.
func duplexEnergy(s, t string, kelvin float64) float64 {
	best := math.Inf(1)
	n, m := len(s), len(t)
	// walk every antiparallel diagonal i+j = d
	for d := 0; d < n+m-1; d++ {
		iStart := 0
		if d >= m {
			iStart = d - m + 1
		}
		i := iStart
		for i < n && d-i >= 0 {
			j := d - i
			if j >= m || !pairs(s[i], t[j]) {
				i++
				continue
			}
			// extend the run
			start := i
			for i < n && d-i >= 0 && pairs(s[i], t[d-i]) {
				i++
			}
			runLen := i - start
			if runLen >= minStemRun {
				top := []byte(s[start : start+runLen])
				bot := make([]byte, runLen)
				for k := 0; k < runLen; k++ {
					bot[k] = t[d-(start+k)]
				}
				if dg := runEnergy(top, bot, kelvin); dg < best {
					best = dg
				}
			}
		}
	}
	return best
}

// hairpinScan finds the most stable intramolecular stem of the switch:
// s[i+k] pairing s[j-k] with a loop of at least minLoopBases. It returns the
// stem ΔG(T) (including loop closure) and the paired position runs.
func hairpinScan(s string, kelvin float64) (float64, []int) {
	best := math.Inf(1)
	var bestPos []int
	n := len(s)
	for i := 0; i < n; i++ {
		for j := n - 1; j > i+minLoopBases; j-- {
			if !pairs(s[i], s[j]) {
				continue
			}
			runLen := 0
			for i+runLen < j-runLen-minLoopBases && pairs(s[i+runLen], s[j-runLen]) {
				runLen++
			}
			if runLen < minStemRun {
				continue
			}
			top := []byte(s[i : i+runLen])
			bot := make([]byte, runLen)
			for k := 0; k < runLen; k++ {
				bot[k] = s[j-k]
			}
			dg := runEnergy(top, bot, kelvin) + (hairpinLoop.DH - kelvin*hairpinLoop.DS/1000.0)
			if dg < best {
				best = dg
				bestPos = bestPos[:0]
				for k := 0; k < runLen; k++ {
					bestPos = append(bestPos, i+k, j-k)
				}
			}
		}
	}
	return best, bestPos
}

// assocPenalty is the translational-entropy cost of bimolecular association
// at strand concentration conc (mol/L, standard state 1 M).
func assocPenalty(kelvin, conc float64) float64 {
	if conc <= 0 {
		return math.Inf(1)
	}
	return -rKcal * kelvin * math.Log(conc)
}

func normalizeRNA(seq string) string {
	return strings.Map(func(r rune) rune {
		if r == 'T' {
			return 'U'
		}
		return r
	}, strings.ToUpper(seq))
}
