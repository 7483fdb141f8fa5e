// Package api exposes a direct sweep endpoint for ad-hoc runs: POST a YAML
// job spec, get the result table back without queueing a task.
package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"riboscreen.com/ths/fasta"
	"riboscreen.com/ths/screen"
	"riboscreen.com/ths/sweep"
	"riboscreen.com/ths/tasks"
	"riboscreen.com/ths/thermo"
)

const registryRetries = 3

// Request handles direct sweep submissions. Cache is optional.
type Request struct {
	Cache screen.Cache
}

func (req *Request) RunSweep(w http.ResponseWriter, r *http.Request) {
	logger := makeRequestLogger(r)

	if r.Method != "POST" {
		logger.Err(nil).Int("status", http.StatusMethodNotAllowed).Msg("Only 'POST' method is allowed here")
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not read request body")
		http.Error(w, "", http.StatusBadRequest)
		return
	}
	spec, err := tasks.ParseJobSpec(body)
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not parse job spec")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if spec.PanelKey != "" {
		logger.Error().Int("status", http.StatusBadRequest).Msg("Stored panels are not available on the direct endpoint")
		http.Error(w, "panel_key is not supported here, inline the triggers or use registry_parts", http.StatusBadRequest)
		return
	}

	panel, err := resolvePanel(r, spec)
	if err != nil {
		logger.Err(err).Int("status", http.StatusBadRequest).Msg("Could not resolve trigger panel")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Info().Msg("Starting sweep for request from API")
	result, err := runSweep(r, req.Cache, spec, panel)
	if err != nil {
		logger.Err(err).Int("status", http.StatusInternalServerError).Msg("Sweep failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	_, _ = w.Write([]byte(result.CSV()))
	logger.Info().Int("status", http.StatusOK).Msg("Finished processing request")
}

func resolvePanel(r *http.Request, spec *tasks.JobSpec) (*fasta.Panel, error) {
	if len(spec.RegistryParts) > 0 {
		registry := fasta.RegistryClient{Retries: registryRetries}
		return registry.FromRegistry(r.Context(), spec.RegistryParts)
	}
	records := make([]string, 0, len(spec.Triggers))
	for i, seq := range spec.Triggers {
		records = append(records, fmt.Sprintf(">trigger_%d\n%s", i+1, seq))
	}
	return fasta.Parse(strings.Join(records, "\n"))
}

func runSweep(r *http.Request, cache screen.Cache, spec *tasks.JobSpec, panel *fasta.Panel) (*sweep.Result, error) {
	base, err := screen.Autoconfig(spec.Switch, spec.BindingSite, panel.Seqs(), screen.AutoconfigOpts{
		SetSize:  spec.SetSize,
		Model:    thermo.NewNNModel(spec.Celsius[0]),
		Names:    panel.IDs(),
		ConstRNA: spec.ConstRNA,
	})
	if err != nil {
		return nil, err
	}
	base.Cache = cache
	test, err := sweep.NewTest(base, spec.Celsius)
	if err != nil {
		return nil, err
	}
	return test.Run(r.Context(), screen.Params{
		MaxComplexSize: spec.MaxComplexSize,
		NSamples:       spec.NSamples,
	})
}
