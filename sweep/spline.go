package sweep

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Spline is a fitted natural cubic smoothing spline. With lambda 0 it
// interpolates the points exactly; larger lambda trades fidelity for
// curvature. Linear data is reproduced exactly at any lambda, since straight
// lines carry no curvature to penalize.
type Spline struct {
	x, y, m []float64 // knots, smoothed knot values, second derivatives
}

// FitSpline fits min Σ wᵢ(yᵢ−f(xᵢ))² + λ∫f″² over natural cubics. x must be
// strictly increasing, weights positive and aligned with x.
func FitSpline(x, y, w []float64, lambda float64) (*Spline, error) {
	n := len(x)
	if n < 2 {
		return nil, fmt.Errorf("sweep: spline needs at least 2 points, got %d", n)
	}
	if len(y) != n || len(w) != n {
		return nil, fmt.Errorf("sweep: spline inputs misaligned: %d x, %d y, %d w", n, len(y), len(w))
	}
	for i := 0; i+1 < n; i++ {
		if x[i+1] <= x[i] {
			return nil, fmt.Errorf("sweep: spline x values must strictly increase at index %d", i+1)
		}
	}
	if lambda < 0 {
		return nil, fmt.Errorf("sweep: negative smoothing factor %g", lambda)
	}

	s := &Spline{
		x: append([]float64(nil), x...),
		m: make([]float64, n),
	}
	if n == 2 {
		s.y = append([]float64(nil), y...)
		return s, nil
	}

	h := make([]float64, n-1)
	for i := range h {
		h[i] = x[i+1] - x[i]
	}

	// second-difference operator and its Gram matrix over the knots
	delta := mat.NewDense(n-2, n, nil)
	c := mat.NewSymDense(n-2, nil)
	for i := 0; i < n-2; i++ {
		delta.Set(i, i, 1/h[i])
		delta.Set(i, i+1, -(1/h[i] + 1/h[i+1]))
		delta.Set(i, i+2, 1/h[i+1])
		c.SetSym(i, i, (h[i]+h[i+1])/3)
		if i+1 < n-2 {
			c.SetSym(i, i+1, h[i+1]/6)
		}
	}

	// X = C⁻¹Δ, so the penalty is ΔᵀX and the curvatures are Xŷ
	var xMat mat.Dense
	if err := xMat.Solve(c, delta); err != nil {
		return nil, fmt.Errorf("sweep: spline system is singular: %w", err)
	}
	var penalty mat.Dense
	penalty.Mul(delta.T(), &xMat)

	a := mat.NewDense(n, n, nil)
	wy := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a.Set(i, j, lambda*penalty.At(i, j))
		}
		a.Set(i, i, a.At(i, i)+w[i])
		wy.SetVec(i, w[i]*y[i])
	}
	var fit mat.VecDense
	if err := fit.SolveVec(a, wy); err != nil {
		return nil, fmt.Errorf("sweep: spline system is singular: %w", err)
	}

	var gamma mat.VecDense
	gamma.MulVec(&xMat, &fit)

	s.y = make([]float64, n)
	for i := 0; i < n; i++ {
		s.y[i] = fit.AtVec(i)
	}
	for i := 0; i < n-2; i++ {
		s.m[i+1] = gamma.AtVec(i)
	}
	return s, nil
}

// Eval evaluates the spline; arguments outside the knot range clamp to the
// boundary segments.
func (s *Spline) Eval(t float64) float64 {
	n := len(s.x)
	i := sort.SearchFloat64s(s.x, t) - 1
	if i < 0 {
		i = 0
	}
	if i > n-2 {
		i = n - 2
	}
	h := s.x[i+1] - s.x[i]
	a := (s.x[i+1] - t) / h
	b := (t - s.x[i]) / h
	return a*s.y[i] + b*s.y[i+1] +
		((a*a*a-a)*s.m[i]+(b*b*b-b)*s.m[i+1])*h*h/6
}

// Curve samples the spline at count evenly spaced points across the knot
// range.
func (s *Spline) Curve(count int) (xs, ys []float64) {
	if count < 2 {
		count = 2
	}
	lo, hi := s.x[0], s.x[len(s.x)-1]
	xs = make([]float64, count)
	ys = make([]float64, count)
	for i := range xs {
		xs[i] = lo + (hi-lo)*float64(i)/float64(count-1)
		ys[i] = s.Eval(xs[i])
	}
	return xs, ys
}

// splineWeights turns standard errors into fit weights. Zero-SE points are
// effectively exact and get pinned with a large weight.
func splineWeights(se []float64) []float64 {
	w := make([]float64, len(se))
	for i, e := range se {
		if e == 0 || math.IsNaN(e) {
			w[i] = 100
		} else {
			w[i] = 1 / e
		}
	}
	return w
}
