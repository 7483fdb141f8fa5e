package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"riboscreen.com/ths/fasta"
	"riboscreen.com/ths/screen"
	"riboscreen.com/ths/sweep"
	"riboscreen.com/ths/tasks"
	"riboscreen.com/ths/thermo"
	"riboscreen.com/ths/utils"
)

const registryRetries = 3

type Message struct {
	WorkType string `json:"work_type"`
	TaskID   string `json:"task_id"`
	Sender   string `json:"sender"`
	Version  string `json:"version"`
}

type Task struct {
	delivery  *amqp.Delivery
	sweepTask *tasks.SweepTask
	message   *Message
	taskID    string
	thsLogger *zerolog.Logger
}

func (worker *Worker) processMessage(delivery *amqp.Delivery) {
	task, err := worker.createTask(delivery)
	rejectLogger := worker.thsLogger.With().Str("message_id", delivery.MessageId).Logger()
	if err != nil {
		worker.thsLogger.Err(err).
			Str("message_id", delivery.MessageId).
			Str("tid", string(delivery.Body)).
			Msg("Failed to create task for delivery")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.processTask(task); err != nil {
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.publishResult(task, *task.message); err != nil {
		task.thsLogger.Err(err).Msg("Got error while publishing to results queue")
		worker.rmq.rejectDelivery(delivery, &rejectLogger)
		return
	}
	if err = worker.rmq.acknowledgeDelivery(delivery); err != nil {
		task.thsLogger.Err(err).Msg("Failed to acknowledge delivery")
	}
	task.thsLogger.Info().Msg("Finished processing RMQ message")
}

func (worker *Worker) createTask(delivery *amqp.Delivery) (*Task, error) {
	var message Message
	err := json.Unmarshal(delivery.Body, &message)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal message, got error %w", err)
	}
	sweepTask, err := worker.redis.getSweepTask(message.TaskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sweep task for message, got error %w", err)
	}
	taskLogger := worker.thsLogger.With().Str("tid", message.TaskID).Logger()
	task := Task{
		delivery:  delivery,
		sweepTask: sweepTask,
		taskID:    message.TaskID,
		message:   &message,
		thsLogger: &taskLogger,
	}
	return &task, nil
}

func (worker *Worker) processTask(task *Task) error {
	shouldPerform, err := worker.shouldPerformTask(task)
	if err != nil {
		task.thsLogger.Err(err).
			Msg("Got error while trying to decide whether to run task")
		return err
	}
	if !shouldPerform {
		return nil
	}
	if err = worker.redis.onTaskStarted(task); err != nil {
		task.thsLogger.Err(err).Msg("Failed to update task info")
		return fmt.Errorf("failed to update task info: %w", err)
	}
	if err = worker.runSweep(task); err != nil {
		task.thsLogger.Err(err).Msg("Got error while running sweep")
		if err = worker.redis.onTaskFailedWithError(task, err); err != nil {
			return err
		}
		return nil
	}
	task.thsLogger.Info().Msg("Saved results, marking task as complete")
	if err = worker.redis.onTaskComplete(task); err != nil {
		task.thsLogger.Err(err).Msg("Got error while trying to mark task as complete")
		return err
	}
	return nil
}

func (worker *Worker) runSweep(task *Task) (err error) {
	defer utils.RecoverWithError(&err)
	task.thsLogger.Info().Msgf("Processing message from RMQ, attempt # %d", task.sweepTask.Attempts)

	specData, err := worker.s3.getJobSpec(task)
	if err != nil {
		task.thsLogger.Err(err).Caller().Msg("Could not fetch job spec from s3")
		return fmt.Errorf("failed to fetch job spec from s3: %w", err)
	}
	spec, err := tasks.ParseJobSpec(specData)
	if err != nil {
		return err
	}
	panel, err := worker.resolvePanel(task, spec)
	if err != nil {
		return err
	}

	result, err := worker.sweepFromSpec(spec, panel)
	if err != nil {
		return err
	}
	task.thsLogger.Info().Msg("Finished sweep, saving results to s3")
	if err = worker.s3.saveResultsFile(task, result.CSV()); err != nil {
		task.thsLogger.Err(err).Msg("Got error while trying to save results")
		return err
	}
	return nil
}

// resolvePanel materializes the job's trigger panel from whichever source the
// spec names: stored FASTA, inline sequences or the parts registry.
func (worker *Worker) resolvePanel(task *Task, spec *tasks.JobSpec) (*fasta.Panel, error) {
	switch {
	case spec.PanelKey != "":
		panelData, err := worker.s3.getPanel(spec.PanelKey)
		if err != nil {
			task.thsLogger.Err(err).Caller().Msg("Could not fetch trigger panel from s3")
			return nil, fmt.Errorf("failed to fetch trigger panel from s3: %w", err)
		}
		return fasta.Parse(string(panelData))
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

func (worker *Worker) sweepFromSpec(spec *tasks.JobSpec, panel *fasta.Panel) (*sweep.Result, error) {
	base, err := screen.Autoconfig(spec.Switch, spec.BindingSite, panel.Seqs(), screen.AutoconfigOpts{
		SetSize:  spec.SetSize,
		Model:    thermo.NewNNModel(spec.Celsius[0]),
		Names:    panel.IDs(),
		ConstRNA: spec.ConstRNA,
	})
	if err != nil {
		return nil, err
	}
	base.Cache = worker.evalCache
	test, err := sweep.NewTest(base, spec.Celsius)
	if err != nil {
		return nil, err
	}
	return test.Run(context.Background(), screen.Params{
		MaxComplexSize: spec.MaxComplexSize,
		NSamples:       spec.NSamples,
	})
}

func (worker *Worker) shouldPerformTask(task *Task) (bool, error) {
	taskLogger := task.thsLogger

	if task.sweepTask.Status.Complete() {
		taskLogger.Info().Msg("Task is already done (might indicate issue acking message with RMQ)")
		return false, nil
	}
	if task.sweepTask.Attempts >= worker.config.TaskMaxRetries {
		taskLogger.Info().Msg("Sweep task has exceeded retries")
		err := worker.redis.onTaskExceededRetries(task, worker.config.TaskMaxRetries)
		return false, err
	}
	return true, nil
}
