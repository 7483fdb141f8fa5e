package sweep

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"riboscreen.com/ths/screen"
	"riboscreen.com/ths/thermo"
	"riboscreen.com/ths/trigger"
)

const (
	testSwitch   = "GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA"
	testTriggerA = "AAAACCCCGGGG"
	testTriggerB = "UUUUGGGGCCCC"
)

// sweepFakeModel activates each trigger with a probability fixed per
// temperature, so per-temperature winners are scripted exactly.
type sweepFakeModel struct {
	celsius float64
	probs   map[string]map[float64]float64
	failAt  float64
}

func (m *sweepFakeModel) Sample(ctx context.Context, strands []thermo.Strand, maxComplexSize, n int) ([]thermo.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.failAt != 0 && m.celsius == m.failAt {
		return nil, errors.New("fake model failure")
	}
	active := int(math.Round(m.probs[strands[1].Seq][m.celsius] * float64(n)))
	samples := make([]thermo.Sample, n)
	for i := range samples {
		paired := make([]bool, len(strands[0].Seq))
		if i < active {
			samples[i] = thermo.Sample{Paired: paired, StemResolved: true}
			continue
		}
		for pos := range paired {
			paired[pos] = true
		}
		samples[i] = thermo.Sample{Paired: paired}
	}
	return samples, nil
}

func (m *sweepFakeModel) WithTemperature(celsius float64) thermo.Model {
	clone := *m
	clone.celsius = celsius
	return &clone
}

func (m *sweepFakeModel) Temperature() float64 { return m.celsius }

func (m *sweepFakeModel) Describe() string { return fmt.Sprintf("fake/celsius=%.2f", m.celsius) }

// triggerA wins at 30 and 40 °C, triggerB at 50 °C
func scriptedProbs() map[string]map[float64]float64 {
	return map[string]map[float64]float64{
		testTriggerA: {30: 0.9, 40: 0.8, 50: 0.2},
		testTriggerB: {30: 0.1, 40: 0.4, 50: 0.6},
	}
}

func newScriptedSweep(t *testing.T, celsius []float64) *Test {
	t.Helper()
	site, err := trigger.FindBindingSite(testSwitch, "AGAGGAGA")
	require.NoError(t, err)
	sets := [][]string{{testTriggerA}, {testTriggerB}}
	base, err := screen.NewTest(testSwitch, 1e-7, site, sets,
		trigger.UniformConcs(sets, 1e-7),
		&sweepFakeModel{celsius: celsius[0], probs: scriptedProbs()})
	require.NoError(t, err)
	base.Names = [][]string{{"trig_a"}, {"trig_b"}}
	test, err := NewTest(base, celsius)
	require.NoError(t, err)
	return test
}

func sweepParams() screen.Params {
	return screen.Params{MaxComplexSize: 2, NSamples: 10, NWorkers: 2}
}

func TestSweepInfersModeTarget(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	require.Equal(t, 0, res.TargetIndex())
	require.Equal(t, []string{testTriggerA}, res.Target())
	require.Equal(t, "trig_a", res.TargetName())
	require.Equal(t, []float64{30, 40, 50}, res.Celsius())

	require.InDeltaSlice(t, []float64{0.9, 0.8, 0.2}, res.Activation(), 1e-9)

	// 50 °C picked the other set, so the switch is not specific there
	spec := res.Specificity()
	require.Greater(t, spec[0], 0.0)
	require.Greater(t, spec[1], 0.0)
	require.Zero(t, spec[2])
	require.Zero(t, res.SpecificitySE()[2])
}

func TestSweepModeTieBreaksOnFirstTemperature(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)
	// one win each; 30 °C came first and picked set A
	require.Equal(t, 0, res.TargetIndex())
}

func TestRetargetRoundTrip(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	before := res.Specificity()
	beforeAct := res.Activation()

	require.NoError(t, res.Retarget([]string{testTriggerB}))
	require.Equal(t, 1, res.TargetIndex())
	require.Equal(t, "trig_b", res.TargetName())
	require.InDeltaSlice(t, []float64{0.1, 0.4, 0.6}, res.Activation(), 1e-9)
	spec := res.Specificity()
	require.Zero(t, spec[0])
	require.Zero(t, spec[1])
	require.Greater(t, spec[2], 0.0)

	require.NoError(t, res.Retarget([]string{testTriggerA}))
	require.Equal(t, 0, res.TargetIndex())
	require.InDeltaSlice(t, before, res.Specificity(), 1e-12)
	require.InDeltaSlice(t, beforeAct, res.Activation(), 1e-12)
}

func TestRetargetUnknownSetLeavesStateIntact(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	metaBefore := res.Meta()
	require.Error(t, res.Retarget([]string{"GGGG"}))
	require.Equal(t, 0, res.TargetIndex())
	require.Equal(t, metaBefore, res.Meta())

	require.Error(t, res.RetargetName("no_such_name"))
	require.Equal(t, 0, res.TargetIndex())
}

func TestRetargetByName(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	require.NoError(t, res.RetargetName("trig_b"))
	require.Equal(t, 1, res.TargetIndex())
}

func TestSliceComposesAndReinfers(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	// slicing twice equals slicing once with composed bounds
	mid, err := res.Slice(1, 3)
	require.NoError(t, err)
	tail, err := mid.Slice(1, 2)
	require.NoError(t, err)
	direct, err := res.Slice(2, 3)
	require.NoError(t, err)
	require.True(t, tail.Equal(direct))

	// the 50 °C-only slice re-infers set B as its target
	require.Equal(t, []float64{50}, direct.Celsius())
	require.Equal(t, 1, direct.TargetIndex())

	_, err = res.Slice(2, 2)
	require.Error(t, err)
	_, err = res.Slice(-1, 2)
	require.Error(t, err)
	_, err = res.Slice(0, 4)
	require.Error(t, err)
}

func TestSliceCelsiusMatchesIndexSlice(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	sub, err := res.SliceCelsius(35, 55)
	require.NoError(t, err)
	require.Equal(t, []float64{40, 50}, sub.Celsius())
	direct, err := res.Slice(1, 3)
	require.NoError(t, err)
	require.True(t, sub.Equal(direct))

	// bounds are inclusive
	all, err := res.SliceCelsius(30, 50)
	require.NoError(t, err)
	require.Equal(t, []float64{30, 40, 50}, all.Celsius())

	only, err := res.SliceCelsius(50, 50)
	require.NoError(t, err)
	require.Equal(t, []float64{50}, only.Celsius())
	require.Equal(t, 1, only.TargetIndex())

	_, err = res.SliceCelsius(60, 70)
	require.Error(t, err)
}

func TestSweepStepFailureStopsRun(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	test.Base.Model.(*sweepFakeModel).failAt = 40

	_, err := test.Run(context.Background(), sweepParams())
	require.Error(t, err)
	require.Contains(t, err.Error(), "40.00")

	stream, err := test.Generate(context.Background(), sweepParams())
	require.NoError(t, err)
	steps := 0
	for {
		step, ok := stream.Next()
		if !ok {
			break
		}
		steps++
		if steps == 2 {
			require.Error(t, step.Err)
		}
	}
	require.Equal(t, 2, steps)
	require.Error(t, stream.Err())
	require.Nil(t, stream.Result())
}

func TestSweepCanceledContextFails(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := test.Run(ctx, sweepParams())
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, res)
}

func TestSweepMetaFoldsPerTempKeys(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	keys := map[string]bool{}
	for _, m := range res.Meta() {
		keys[m.Key] = true
	}
	require.True(t, keys["Switch"])
	require.True(t, keys["Target name"])
	require.True(t, keys["Temperatures"])
	require.False(t, keys["Temperature /°C"])
	require.False(t, keys["Specificity %"])
	require.False(t, keys["Specificity SE"])

	csv := res.CSV()
	require.Contains(t, csv, "Target name,trig_a")
	require.Contains(t, csv, "Temperature /°C")
}

func TestSweepTableAndJSON(t *testing.T) {
	test := newScriptedSweep(t, []float64{30, 40, 50})
	res, err := test.Run(context.Background(), sweepParams())
	require.NoError(t, err)

	table := res.Table()
	require.Len(t, table, 4)
	require.Equal(t, sweepHeader, table[0])
	require.Equal(t, "30.00", table[1][0])
	require.Equal(t, "90", table[1][3]) // 0.9 as percent

	// the name and sequence columns follow each temperature's own winner
	require.Equal(t, "trig_a", table[1][1])
	require.Equal(t, testTriggerA, table[1][2])
	require.Equal(t, "trig_a", table[2][1])
	require.Equal(t, "trig_b", table[3][1])
	require.Equal(t, testTriggerB, table[3][2])

	doc, err := res.JSON()
	require.NoError(t, err)
	require.Contains(t, string(doc), `"target_name": "trig_a"`)

	pretty := res.Prettify()
	require.Contains(t, pretty, "Activation %")
}
