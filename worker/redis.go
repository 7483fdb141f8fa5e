package worker

import (
	"context"
	"fmt"

	"riboscreen.com/ths/tasks"
)

var ctx = context.Background()

type redisTransactions interface {
	getSweepTask(taskID string) (*tasks.SweepTask, error)
	onTaskStarted(task *Task) error
	onTaskExceededRetries(task *Task, maxRetries int) error
	onTaskFailedWithError(task *Task, err error) error
	onTaskComplete(task *Task) error
	close()
}

type redisClientWrapper struct {
	tasksClient *tasks.Client
}

func (wrapper *redisClientWrapper) close() {
	wrapper.tasksClient.Close()
}

func (wrapper *redisClientWrapper) getSweepTask(taskID string) (*tasks.SweepTask, error) {
	return wrapper.tasksClient.Sweeps.Get(ctx, taskID)
}

func (wrapper *redisClientWrapper) onTaskStarted(task *Task) error {
	return wrapper.tasksClient.Sweeps.Update(ctx, task.taskID, func(sweepTask *tasks.SweepTask) {
		sweepTask.Status = tasks.TaskStatusStarted
		sweepTask.Attempts += 1
		sweepTask.StartedAt = getFormattedNow()
		sweepTask.CompletedAt = nil
	})
}

func (wrapper *redisClientWrapper) onTaskExceededRetries(task *Task, maxRetries int) error {
	return wrapper.tasksClient.Sweeps.Update(ctx, task.taskID, func(sweepTask *tasks.SweepTask) {
		sweepTask.Status = tasks.TaskStatusCompletedFailure
		sweepTask.StartedAt = getFormattedNow()
		sweepTask.CompletedAt = getFormattedNow()
		sweepTask.Attempts += 1
		sweepTask.ErrorMessages = append(
			sweepTask.ErrorMessages,
			fmt.Sprintf(
				"Task has exceeded retries. (Attempts: %d, max retries: %d )",
				sweepTask.Attempts,
				maxRetries,
			),
		)
	})
}

func (wrapper *redisClientWrapper) onTaskFailedWithError(task *Task, err error) error {
	return wrapper.tasksClient.Sweeps.Update(ctx, task.taskID, func(sweepTask *tasks.SweepTask) {
		sweepTask.Status = tasks.TaskStatusFailed
		sweepTask.CompletedAt = getFormattedNow()
		sweepTask.ErrorMessages = append(sweepTask.ErrorMessages, err.Error())
	})
}

func (wrapper *redisClientWrapper) onTaskComplete(task *Task) error {
	return wrapper.tasksClient.Sweeps.Update(ctx, task.taskID, func(sweepTask *tasks.SweepTask) {
		if !sweepTask.Status.Complete() {
			sweepTask.Status = tasks.TaskStatusCompletedSuccess
		}
		sweepTask.CompletedAt = getFormattedNow()
		sweepTask.ResultsFileKey = getResultsFileKey(task)
	})
}
