package worker

import (
	"reflect"
	"testing"

	"github.com/streadway/amqp"

	"riboscreen.com/ths/logger"
	"riboscreen.com/ths/tasks"
)

type mockedClientsConfig struct {
	rmqMockConfig
	redisMockConfig
	s3MockConfig
}

type mockedClients struct {
	redis *redisMock
	rmq   *rmqMock
	s3    *s3Mock
}

type methodsCalls struct {
	redis redisMockCalls
	rmq   rmqMockCalls
	s3    s3MockCalls
}

func testConfiguration(t *testing.T, config mockedClientsConfig, expectedCalls methodsCalls) {
	worker, mocks := configureWorker(config)
	worker.processMessage(&amqp.Delivery{
		Body: []byte(`{"task_id":"test-task"}`),
	})
	calls := methodsCalls{
		redis: mocks.redis.calls,
		rmq:   mocks.rmq.calls,
		s3:    mocks.s3.calls,
	}
	if !reflect.DeepEqual(calls, expectedCalls) {
		t.Errorf("Got unexpected called methods set.\nExpected:\n%+v\nGot:\n%+v", expectedCalls, calls)
	}
}

func configureWorker(config mockedClientsConfig) (*Worker, *mockedClients) {
	redis := &redisMock{config: config.redisMockConfig}
	s3 := &s3Mock{config: config.s3MockConfig}
	rmq := &rmqMock{config: config.rmqMockConfig}

	thsLogger := logger.NewLogger("Test Worker")

	return &Worker{
			config:    Config{3},
			redis:     redis,
			s3:        s3,
			rmq:       rmq,
			thsLogger: &thsLogger,
		}, &mockedClients{
			redis: redis,
			rmq:   rmq,
			s3:    s3,
		}
}

func TestWorker(t *testing.T) {
	t.Run("Successful", testSuccessfulTask)
	t.Run("Failed to get sweep task", testGetSweepTaskFailed)
	t.Run("Already complete with success", testAlreadyCompletedSuccessfully)
	t.Run("Already complete with failure", testAlreadyCompletedWithFailure)
	t.Run("Exceeded attempts", testExceededAttempts)
	t.Run("Failed to update task in onTaskStarted", testFailedToUpdateOnTaskStarted)
	t.Run("Failed to load job spec from S3", testFailedToFetchJobSpec)
	t.Run("Failed to load panel from S3", testFailedToFetchPanel)
	t.Run("Failed due to invalid job spec", testInvalidJobSpec)
	t.Run("Failed to update task in onTaskFailedWithError", testFailedToUpdateOnTaskFailedWithError)
	t.Run("Failed to update task in onTaskComplete", testFailedToUpdateOnTaskComplete)
	t.Run("Failed to save result to S3", testFailedToSaveToS3)
	t.Run("Failed to acknowledge delivery", testFailedAckDelivery)
	t.Run("Failed to publish result", testFailedPublishResult)
}

func testSuccessfulTask(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{},
		methodsCalls{
			redis: redisMockCalls{
				getSweepTask: true, onTaskStarted: true, onTaskComplete: true,
			},
			rmq: rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3: s3MockCalls{
				getJobSpec:      true,
				getPanel:        true,
				saveResultsFile: true,
			},
		},
	)
}

func testGetSweepTaskFailed(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getSweepTask: withValue{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testAlreadyCompletedSuccessfully(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getSweepTask: withValue{
					returnedValue: tasks.SweepTask{Status: tasks.TaskStatusCompletedSuccess},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testAlreadyCompletedWithFailure(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getSweepTask: withValue{
					returnedValue: tasks.SweepTask{Status: tasks.TaskStatusCompletedFailure},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testExceededAttempts(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				getSweepTask: withValue{
					returnedValue: tasks.SweepTask{Attempts: 3},
				},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskExceededRetries: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
		},
	)
}

func testFailedToUpdateOnTaskStarted(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				onTaskStarted: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
		},
	)
}

func testFailedToFetchJobSpec(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{
				getJobSpec: withValue{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3:    s3MockCalls{getJobSpec: true},
		},
	)
}

func testFailedToFetchPanel(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{
				getPanel: withValue{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3:    s3MockCalls{getJobSpec: true, getPanel: true},
		},
	)
}

func testInvalidJobSpec(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{
				getJobSpec: withValue{returnedValue: []byte("switch: ''\n")},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3:    s3MockCalls{getJobSpec: true},
		},
	)
}

func testFailedToUpdateOnTaskFailedWithError(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				onTaskFailedWithError: failingMethod{fail: true},
			},
			s3MockConfig: s3MockConfig{
				getJobSpec: withValue{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
			s3:    s3MockCalls{getJobSpec: true},
		},
	)
}

func testFailedToUpdateOnTaskComplete(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			redisMockConfig: redisMockConfig{
				onTaskComplete: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskComplete: true},
			rmq:   rmqMockCalls{rejectDelivery: true},
			s3:    s3MockCalls{getJobSpec: true, getPanel: true, saveResultsFile: true},
		},
	)
}

func testFailedToSaveToS3(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			s3MockConfig: s3MockConfig{
				saveResultsFile: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskFailedWithError: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3:    s3MockCalls{getJobSpec: true, getPanel: true, saveResultsFile: true},
		},
	)
}

func testFailedAckDelivery(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{
				acknowledgeDelivery: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskComplete: true},
			rmq:   rmqMockCalls{publishResult: true, acknowledgeDelivery: true},
			s3:    s3MockCalls{getJobSpec: true, getPanel: true, saveResultsFile: true},
		},
	)
}

func testFailedPublishResult(t *testing.T) {
	testConfiguration(
		t,
		mockedClientsConfig{
			rmqMockConfig: rmqMockConfig{
				publishResult: failingMethod{fail: true},
			},
		},
		methodsCalls{
			redis: redisMockCalls{getSweepTask: true, onTaskStarted: true, onTaskComplete: true},
			rmq:   rmqMockCalls{publishResult: true, rejectDelivery: true},
			s3:    s3MockCalls{getJobSpec: true, getPanel: true, saveResultsFile: true},
		},
	)
}
