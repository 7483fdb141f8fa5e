package tasks

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskStatusLifecycle(t *testing.T) {
	require.True(t, TaskStatusCompletedSuccess.Complete())
	require.True(t, TaskStatusCompletedFailure.Complete())
	require.True(t, TaskStatusCanceled.Complete())
	require.False(t, TaskStatusSubmitted.Complete())
	require.False(t, TaskStatusStarted.Complete())

	require.True(t, TaskStatusSubmitted.Submitted())
	require.True(t, TaskStatusProcessing.Submitted())
	require.False(t, TaskStatusFailed.Submitted())
}

func TestTaskKey(t *testing.T) {
	require.Equal(t, "sweep:abc-123", TaskKey("abc-123"))
}

func TestNewTaskIDUnique(t *testing.T) {
	a, b := NewTaskID(), NewTaskID()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
