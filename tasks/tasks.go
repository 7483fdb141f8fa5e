// Package tasks tracks sweep jobs through their lifecycle in Redis.
package tasks

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"riboscreen.com/ths/cache"
)

type TaskStatus string

const (
	TaskStatusProcessing       TaskStatus = "processing"
	TaskStatusSubmitted        TaskStatus = "submitted"
	TaskStatusStarted          TaskStatus = "started"
	TaskStatusFailed           TaskStatus = "failed"
	TaskStatusCompletedSuccess TaskStatus = "completed - success"
	TaskStatusCompletedFailure TaskStatus = "completed - failure"
	TaskStatusCanceled         TaskStatus = "canceled"
)

func (s TaskStatus) Complete() bool {
	return s == TaskStatusCompletedSuccess || s == TaskStatusCompletedFailure || s == TaskStatusCanceled
}

func (s TaskStatus) Submitted() bool {
	return s == TaskStatusSubmitted || s == TaskStatusStarted || s == TaskStatusProcessing
}

// SweepTask is the stored state of one sweep job.
type SweepTask struct {
	ID             string     `json:"id"`
	JobSpecKey     string     `json:"job_spec_key"`
	PanelKey       string     `json:"panel_key"`
	ResultsFileKey string     `json:"results_file_key"`
	StartedAt      *string    `json:"started_at"`
	CompletedAt    *string    `json:"completed_at"`
	Attempts       int        `json:"attempts"`
	Status         TaskStatus `json:"status"`
	ErrorMessages  []string   `json:"error_messages"`
}

type SweepTasks struct {
	client cache.Client
}

type Client struct {
	Sweeps SweepTasks
}

// NewClient is the preferred way of working with sweep tasks.
func NewClient() (Client, error) {
	redisClient, err := cache.NewClient(cache.TasksDB)
	if err != nil {
		return Client{}, err
	}
	return Client{Sweeps: SweepTasks{client: redisClient}}, nil
}

func (client *Client) Close() {
	_ = client.Sweeps.client.Close()
}

// NewTaskID mints a fresh sweep task identifier.
func NewTaskID() string {
	return uuid.New().String()
}

func TaskKey(taskID string) string {
	return fmt.Sprintf("sweep:%s", taskID)
}

func (tasks SweepTasks) Get(ctx context.Context, taskID string) (*SweepTask, error) {
	var task SweepTask
	if err := tasks.client.GetDoc(ctx, TaskKey(taskID), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

func (tasks SweepTasks) Save(ctx context.Context, task *SweepTask) error {
	return tasks.client.SaveDoc(ctx, TaskKey(task.ID), task)
}

// Update applies updateFunc to the stored task under a lock.
func (tasks SweepTasks) Update(ctx context.Context, taskID string, updateFunc func(task *SweepTask)) error {
	var task SweepTask
	return tasks.client.UpdateDoc(ctx, TaskKey(taskID), &task, func() {
		updateFunc(&task)
	})
}
