package tasks

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// JobSpec is the YAML description of one sweep job as submitted by clients.
// The trigger panel comes from exactly one source: a stored FASTA file
// (panel_key), inline sequences (triggers) or iGEM registry part names
// (registry_parts).
type JobSpec struct {
	Switch         string             `yaml:"switch"`
	BindingSite    string             `yaml:"binding_site"`
	PanelKey       string             `yaml:"panel_key"`
	Triggers       []string           `yaml:"triggers"`
	RegistryParts  []string           `yaml:"registry_parts"`
	SetSize        int                `yaml:"set_size"`
	Celsius        []float64          `yaml:"temperatures"`
	NSamples       int                `yaml:"n_samples"`
	MaxComplexSize int                `yaml:"max_complex_size"`
	ConstRNA       map[string]float64 `yaml:"const_rna"`
}

// ParseJobSpec decodes and validates a job spec, filling defaults.
func ParseJobSpec(b []byte) (*JobSpec, error) {
	var spec JobSpec
	if err := yaml.Unmarshal(b, &spec); err != nil {
		return nil, fmt.Errorf("tasks: bad job spec: %w", err)
	}
	if spec.SetSize == 0 {
		spec.SetSize = 1
	}
	if spec.MaxComplexSize == 0 {
		spec.MaxComplexSize = 2
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

func (s *JobSpec) Validate() error {
	if s.Switch == "" {
		return fmt.Errorf("tasks: job spec has no switch sequence")
	}
	if s.BindingSite == "" {
		return fmt.Errorf("tasks: job spec has no binding site")
	}
	sources := 0
	if s.PanelKey != "" {
		sources++
	}
	if len(s.Triggers) > 0 {
		sources++
	}
	if len(s.RegistryParts) > 0 {
		sources++
	}
	if sources != 1 {
		return fmt.Errorf("tasks: job spec needs exactly one of panel_key, triggers or registry_parts, got %d", sources)
	}
	if len(s.Celsius) == 0 {
		return fmt.Errorf("tasks: job spec has no temperatures")
	}
	if s.SetSize < 1 {
		return fmt.Errorf("tasks: job spec set size must be >= 1, got %d", s.SetSize)
	}
	if s.MaxComplexSize < 1 {
		return fmt.Errorf("tasks: job spec max complex size must be >= 1, got %d", s.MaxComplexSize)
	}
	return nil
}
