package sweep

const (
	curvePoints      = 500
	defaultSmoothing = 1.0
)

// Plot is a render-ready view of one sweep series: percent data points with
// z-scaled error bars plus a smoothed curve through them. The companion series
// rides along as the per-point color channel, so one plot always carries both
// activation and specificity.
type Plot struct {
	Title      string
	XLabel     string
	YLabel     string
	ColorLabel string

	X     []float64 // °C
	Y     []float64 // percent
	YErr  []float64 // z·SE, percent
	Color []float64 // companion series, percent

	CurveX []float64
	CurveY []float64
}

// PlotActivation builds the target activation series with error bars at z
// standard errors; point color encodes the specificity per temperature.
func (r *Result) PlotActivation(z float64) (*Plot, error) {
	return r.plot("Activation", r.Activation(), r.ActivationSE(),
		"Specificity", r.Specificity(), z)
}

// PlotSpecificity is the swapped rendering of PlotActivation: specificity on
// the y axis with activation as the color channel.
func (r *Result) PlotSpecificity(z float64) (*Plot, error) {
	return r.plot("Specificity", r.Specificity(), r.SpecificitySE(),
		"Activation", r.Activation(), z)
}

func (r *Result) plot(series string, vals, ses []float64, colorSeries string, colorVals []float64, z float64) (*Plot, error) {
	p := &Plot{
		Title:      series + " of " + r.titleTarget(),
		XLabel:     "Temperature /°C",
		YLabel:     series + " %",
		ColorLabel: colorSeries + " %",
		X:          r.Celsius(),
		Y:          make([]float64, len(vals)),
		YErr:       make([]float64, len(vals)),
		Color:      make([]float64, len(vals)),
	}
	for i := range vals {
		p.Y[i] = vals[i] * 100
		p.YErr[i] = z * ses[i] * 100
		p.Color[i] = colorVals[i] * 100
	}
	spline, err := FitSpline(p.X, p.Y, splineWeights(p.YErr), defaultSmoothing)
	if err != nil {
		return nil, err
	}
	p.CurveX, p.CurveY = spline.Curve(curvePoints)
	return p, nil
}

func (r *Result) titleTarget() string {
	if name := r.TargetName(); name != "" {
		return name
	}
	return "target set"
}
