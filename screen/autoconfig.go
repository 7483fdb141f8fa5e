package screen

import (
	"fmt"

	"riboscreen.com/ths/thermo"
	"riboscreen.com/ths/trigger"
)

// AssumedStrandConc is the default molarity assigned to every strand when no
// measured concentrations are available.
const AssumedStrandConc = 1e-7

// AutoconfigOpts tunes Autoconfig beyond its required arguments. The zero
// value gives singleton sets at 37 °C with no names or background RNAs.
type AutoconfigOpts struct {
	SetSize  int // members per trigger set; default 1
	Model    thermo.Model
	Names    []string // aligned 1:1 with the trigger list
	ConstRNA map[string]float64
}

// Autoconfig assembles a ready-to-run Test from a switch and a flat trigger
// panel: it locates the binding site inside the switch, expands the panel
// into every size-r combination and assigns every strand the assumed
// concentration.
func Autoconfig(switchSeq, bindingSite string, triggers []string, opts AutoconfigOpts) (*Test, error) {
	sw := trigger.Normalize(switchSeq)
	site, err := trigger.FindBindingSite(sw, trigger.Normalize(bindingSite))
	if err != nil {
		return nil, err
	}

	setSize := opts.SetSize
	if setSize == 0 {
		setSize = 1
	}
	normalized := make([]string, len(triggers))
	for i, seq := range triggers {
		normalized[i] = trigger.Normalize(seq)
	}
	sets, err := trigger.Combinations(normalized, setSize)
	if err != nil {
		return nil, err
	}

	model := opts.Model
	if model == nil {
		model = thermo.NewNNModel(37.0)
	}

	t := &Test{
		Switch:      sw,
		SwitchConc:  AssumedStrandConc,
		BindingSite: site,
		TriggerSets: sets,
		ConcSets:    trigger.UniformConcs(sets, AssumedStrandConc),
		ConstRNA:    opts.ConstRNA,
		Model:       model,
	}
	if opts.Names != nil {
		if len(opts.Names) != len(triggers) {
			return nil, fmt.Errorf("screen: %d names for %d triggers", len(opts.Names), len(triggers))
		}
		t.Names, err = trigger.GroupNames(opts.Names, len(triggers), setSize)
		if err != nil {
			return nil, err
		}
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
