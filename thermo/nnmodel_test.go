package thermo

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const nnSwitch = "ACAUUCAUUGCAAGU" + "GGCUUCGG" + "AAAGAGGAGAAA" + "CCGAAGCC" + "ACAAUGCAGCAGCAA"

func nnComplement(seq string) string {
	var b strings.Builder
	for i := len(seq) - 1; i >= 0; i-- {
		switch seq[i] {
		case 'A':
			b.WriteByte('U')
		case 'U':
			b.WriteByte('A')
		case 'G':
			b.WriteByte('C')
		case 'C':
			b.WriteByte('G')
		}
	}
	return b.String()
}

func nnStrands() []Strand {
	return []Strand{
		{Seq: nnSwitch, Conc: 1e-7},
		{Seq: nnComplement(nnSwitch[:23]), Conc: 1e-7},
	}
}

func TestNNModelSampleDeterministic(t *testing.T) {
	m := NewNNModel(37.0)
	a, err := m.Sample(context.Background(), nnStrands(), 2, 50)
	require.NoError(t, err)
	b, err := m.Sample(context.Background(), nnStrands(), 2, 50)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Len(t, a, 50)
	for _, smp := range a {
		require.Len(t, smp.Paired, len(nnSwitch))
	}
}

func TestNNModelComplementDisplacesStem(t *testing.T) {
	m := NewNNModel(37.0)
	samples, err := m.Sample(context.Background(), nnStrands(), 2, 200)
	require.NoError(t, err)

	resolved := 0
	for _, smp := range samples {
		if smp.StemResolved {
			resolved++
		}
	}
	require.Greater(t, resolved, 180)
}

func TestNNModelMonomolecularNeverResolves(t *testing.T) {
	// without bimolecular complexes no trigger can displace the stem
	m := NewNNModel(37.0)
	samples, err := m.Sample(context.Background(), nnStrands(), 1, 100)
	require.NoError(t, err)
	for _, smp := range samples {
		require.False(t, smp.StemResolved)
	}
}

func TestNNModelSampleValidation(t *testing.T) {
	m := NewNNModel(37.0)

	_, err := m.Sample(context.Background(), nil, 2, 10)
	require.Error(t, err)

	_, err = m.Sample(context.Background(), nnStrands(), 2, 0)
	require.Error(t, err)

	_, err = m.Sample(context.Background(), nnStrands(), 0, 10)
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Sample(ctx, nnStrands(), 2, 10)
	require.Error(t, err)
}

func TestNNModelWithTemperatureClones(t *testing.T) {
	m := NewNNModel(37.0)
	hot := m.WithTemperature(95.0)

	require.Equal(t, 37.0, m.Temperature())
	require.Equal(t, 95.0, hot.Temperature())
	require.NotEqual(t, m.Describe(), hot.Describe())
	require.Equal(t, 1.0, hot.(*NNModel).Sodium)
}

func TestNNModelSaltAdjust(t *testing.T) {
	standard := NewNNModel(37.0)
	require.Zero(t, standard.saltAdjust(310.15, 20))

	physiological := &NNModel{Celsius: 37.0, Sodium: 0.15, Seed: 1}
	// low salt destabilizes duplexes
	require.Greater(t, physiological.saltAdjust(310.15, 20), 0.0)
}

func TestNNModelDescribeEncodesConditions(t *testing.T) {
	m := &NNModel{Celsius: 42.0, Sodium: 0.5, Seed: 7}
	desc := m.Describe()
	require.Contains(t, desc, "42.00")
	require.Contains(t, desc, "0.500")
	require.Contains(t, desc, "seed=7")
}
