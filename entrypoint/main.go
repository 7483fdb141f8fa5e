package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"riboscreen.com/ths/api"
	"riboscreen.com/ths/fasta"
	"riboscreen.com/ths/logger"
	"riboscreen.com/ths/screen"
	"riboscreen.com/ths/sweep"
	"riboscreen.com/ths/tasks"
	"riboscreen.com/ths/thermo"
	"riboscreen.com/ths/worker"
)

type Config struct {
	RestAPIActive bool   `envconfig:"THS_REST_API_ACTIVE" default:"false"`
	RestAPIPort   string `envconfig:"THS_REST_API_PORT" default:"10000"`
}

const registryRetries = 3

func main() {
	logger.SetupLogging()
	thsLogger := logger.NewLogger("Main")
	fatalErrLogger := thsLogger.Fatal().Caller()
	specPath := flag.String("spec", "", "run a single sweep from a local YAML job spec and exit")
	outPath := flag.String("out", "", "CSV output path for -spec runs (default stdout table)")
	flag.Parse()
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		fatalErrLogger.Err(err).Msg("Failed to read environment")
		os.Exit(1)
	}

	// one-shot local mode
	if *specPath != "" {
		if err := runLocalSweep(*specPath, *outPath); err != nil {
			fatalErrLogger.Err(err).Msg("Local sweep failed")
			os.Exit(1)
		}
		return
	}

	if config.RestAPIActive {
		go func() {
			thsLogger.Info().Msg("Starting API service")
			apiRequest := &api.Request{}
			http.HandleFunc("/", apiRequest.RunSweep)
			host := fmt.Sprintf(":%s", config.RestAPIPort)
			thsLogger.Info().Msgf("REST API on %s", host)
			err := http.ListenAndServe(host, nil)
			fatalErrLogger.Err(err).Msg("REST API stopped with error")
		}()
	}

	thsLogger.Info().Msg("Start sweep worker")
	for {
		rmqWorker, err := worker.New()
		if err != nil {
			thsLogger.Fatal().Err(err).Msg("Could not initialize RMQ worker")
			os.Exit(1)
		}
		err = rmqWorker.StartWorker()
		if err != nil {
			thsLogger.Err(err).Msg("Worker returned with error. Launching new in 5 seconds")
			time.Sleep(5 * time.Second)
		}
	}
}

func runLocalSweep(specPath, outPath string) error {
	data, err := os.ReadFile(specPath)
	if err != nil {
		return err
	}
	spec, err := tasks.ParseJobSpec(data)
	if err != nil {
		return err
	}
	panel, err := localPanel(spec)
	if err != nil {
		return err
	}
	base, err := screen.Autoconfig(spec.Switch, spec.BindingSite, panel.Seqs(), screen.AutoconfigOpts{
		SetSize:  spec.SetSize,
		Model:    thermo.NewNNModel(spec.Celsius[0]),
		Names:    panel.IDs(),
		ConstRNA: spec.ConstRNA,
	})
	if err != nil {
		return err
	}
	test, err := sweep.NewTest(base, spec.Celsius)
	if err != nil {
		return err
	}
	result, err := test.Run(context.Background(), screen.Params{
		MaxComplexSize: spec.MaxComplexSize,
		NSamples:       spec.NSamples,
	})
	if err != nil {
		return err
	}
	if outPath != "" {
		return os.WriteFile(outPath, []byte(result.CSV()), 0o644)
	}
	fmt.Println(result.Prettify())
	return nil
}

// localPanel resolves the trigger panel without any cloud storage: panel_key
// is a local FASTA path in this mode.
func localPanel(spec *tasks.JobSpec) (*fasta.Panel, error) {
	switch {
	case spec.PanelKey != "":
		return fasta.FromFile(spec.PanelKey)
	case len(spec.RegistryParts) > 0:
		registry := fasta.RegistryClient{Retries: registryRetries}
		return registry.FromRegistry(context.Background(), spec.RegistryParts)
	default:
		records := make([]string, 0, len(spec.Triggers))
		for i, seq := range spec.Triggers {
			records = append(records, fmt.Sprintf(">trigger_%d\n%s", i+1, seq))
		}
		return fasta.Parse(strings.Join(records, "\n"))
	}
}
