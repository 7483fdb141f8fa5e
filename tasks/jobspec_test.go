package tasks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJobSpecDefaults(t *testing.T) {
	spec, err := ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
binding_site: AGAGGAGA
triggers:
  - UUUUCUCCUCUUU
  - CAGCAGCCAUUAG
temperatures: [37]
`))
	require.NoError(t, err)
	require.Equal(t, 1, spec.SetSize)
	require.Equal(t, 2, spec.MaxComplexSize)
	require.Equal(t, []float64{37}, spec.Celsius)
	require.Len(t, spec.Triggers, 2)
}

func TestParseJobSpecFullyPopulated(t *testing.T) {
	spec, err := ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
binding_site: AGAGGAGA
panel_key: panels/test.fasta
set_size: 2
temperatures: [30, 37, 42]
n_samples: 500
max_complex_size: 3
const_rna:
  AAAA: 1.0e-8
`))
	require.NoError(t, err)
	require.Equal(t, "panels/test.fasta", spec.PanelKey)
	require.Equal(t, 2, spec.SetSize)
	require.Equal(t, 3, spec.MaxComplexSize)
	require.Equal(t, 500, spec.NSamples)
	require.Equal(t, map[string]float64{"AAAA": 1e-8}, spec.ConstRNA)
}

func TestParseJobSpecExactlyOneSource(t *testing.T) {
	_, err := ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
binding_site: AGAGGAGA
temperatures: [37]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "got 0")

	_, err = ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
binding_site: AGAGGAGA
panel_key: panels/test.fasta
registry_parts: [BBa_B0034]
temperatures: [37]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "got 2")
}

func TestParseJobSpecMissingFields(t *testing.T) {
	_, err := ParseJobSpec([]byte(`
binding_site: AGAGGAGA
triggers: [UUUUCUCCUCUUU]
temperatures: [37]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "switch")

	_, err = ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
triggers: [UUUUCUCCUCUUU]
temperatures: [37]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "binding site")

	_, err = ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
binding_site: AGAGGAGA
triggers: [UUUUCUCCUCUUU]
`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "temperatures")
}

func TestParseJobSpecRejectsBadValues(t *testing.T) {
	_, err := ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
binding_site: AGAGGAGA
triggers: [UUUUCUCCUCUUU]
temperatures: [37]
set_size: -1
`))
	require.Error(t, err)

	_, err = ParseJobSpec([]byte(`
switch: GGGAAAGAGGAGAAAACUAAUGGCUGCUAAA
binding_site: AGAGGAGA
triggers: [UUUUCUCCUCUUU]
temperatures: [37]
max_complex_size: -1
`))
	require.Error(t, err)

	_, err = ParseJobSpec([]byte("switch: [not, a, string"))
	require.Error(t, err)
}
