package worker

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"

	"riboscreen.com/ths/tasks"
)

type failingMethod struct {
	fail bool
}

type withValue struct {
	fail          bool
	returnedValue interface{}
}

type redisMock struct {
	config redisMockConfig
	calls  redisMockCalls
}

type redisMockConfig struct {
	getSweepTask          withValue
	onTaskStarted         failingMethod
	onTaskExceededRetries failingMethod
	onTaskFailedWithError failingMethod
	onTaskComplete        failingMethod
}

type redisMockCalls struct {
	getSweepTask          bool
	onTaskStarted         bool
	onTaskExceededRetries bool
	onTaskFailedWithError bool
	onTaskComplete        bool
}

type rmqMock struct {
	config rmqMockConfig
	calls  rmqMockCalls
}

type rmqMockConfig struct {
	publishResult       failingMethod
	acknowledgeDelivery failingMethod
}

type rmqMockCalls struct {
	publishResult       bool
	acknowledgeDelivery bool
	rejectDelivery      bool
}

type s3Mock struct {
	config s3MockConfig
	calls  s3MockCalls
}

type s3MockConfig struct {
	getJobSpec      withValue
	getPanel        withValue
	saveResultsFile failingMethod
}

type s3MockCalls struct {
	getJobSpec      bool
	getPanel        bool
	saveResultsFile bool
}

func (mock *s3Mock) close() {}

func (mock *rmqMock) close() {}

func (mock *redisMock) close() {}

const testJobSpecYAML = `switch: GGGACUGACUAUUCUGUGCAAAGAGGAGAAAUACUAAUGAAAGCAACCUGG
binding_site: AGAGGAGA
panel_key: panels/test.fasta
temperatures: [37]
n_samples: 10
max_complex_size: 2
`

const testPanelFASTA = `>trigger_a first candidate
CUUUGCACAGAAUAGUCAGU
>trigger_b second candidate
GGAGCCAAGGACUCAAGGUU
`

func (mock *redisMock) getSweepTask(taskID string) (*tasks.SweepTask, error) {
	mock.calls.getSweepTask = true
	if mock.config.getSweepTask.fail {
		return nil, errors.New("failed to get sweep task")
	}
	switch task := mock.config.getSweepTask.returnedValue.(type) {
	case tasks.SweepTask:
		return &task, nil
	default:
		return &tasks.SweepTask{}, nil
	}
}

func (mock *redisMock) onTaskStarted(task *Task) error {
	mock.calls.onTaskStarted = true
	if mock.config.onTaskStarted.fail {
		return errors.New("failed to update sweep task on start")
	}
	return nil
}

func (mock *redisMock) onTaskExceededRetries(task *Task, maxRetries int) error {
	mock.calls.onTaskExceededRetries = true
	if mock.config.onTaskExceededRetries.fail {
		return errors.New("failed to update sweep task on exceeded retries")
	}
	return nil
}

func (mock *redisMock) onTaskFailedWithError(task *Task, err error) error {
	mock.calls.onTaskFailedWithError = true
	if mock.config.onTaskFailedWithError.fail {
		return errors.New("failed to update sweep task on fail with error")
	}
	return nil
}

func (mock *redisMock) onTaskComplete(task *Task) error {
	mock.calls.onTaskComplete = true
	if mock.config.onTaskComplete.fail {
		return errors.New("failed to update sweep task on complete")
	}
	return nil
}

func (mock *rmqMock) rejectDelivery(delivery *amqp.Delivery, thsLogger *zerolog.Logger) {
	mock.calls.rejectDelivery = true
}

func (mock *rmqMock) getDeliveriesCh() <-chan amqp.Delivery {
	return nil
}

func (mock *rmqMock) getReqChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) getRespChanErrorsCh() <-chan *amqp.Error {
	return nil
}

func (mock *rmqMock) publishResult(task *Task, message Message) error {
	mock.calls.publishResult = true
	if mock.config.publishResult.fail {
		return errors.New("failed to publish result")
	}
	return nil
}

func (mock *rmqMock) acknowledgeDelivery(delivery *amqp.Delivery) error {
	mock.calls.acknowledgeDelivery = true
	if mock.config.acknowledgeDelivery.fail {
		return errors.New("failed to acknowledge delivery")
	}
	return nil
}

func (mock *s3Mock) getJobSpec(task *Task) ([]byte, error) {
	mock.calls.getJobSpec = true
	if mock.config.getJobSpec.fail {
		return nil, errors.New("mock: failed to load job spec from s3")
	}
	switch data := mock.config.getJobSpec.returnedValue.(type) {
	case []byte:
		return data, nil
	default:
		return []byte(testJobSpecYAML), nil
	}
}

func (mock *s3Mock) getPanel(panelKey string) ([]byte, error) {
	mock.calls.getPanel = true
	if mock.config.getPanel.fail {
		return nil, errors.New("mock: failed to load panel from s3")
	}
	switch data := mock.config.getPanel.returnedValue.(type) {
	case []byte:
		return data, nil
	default:
		return []byte(testPanelFASTA), nil
	}
}

func (mock *s3Mock) saveResultsFile(task *Task, result string) error {
	mock.calls.saveResultsFile = true
	if mock.config.saveResultsFile.fail {
		return errors.New("failed to upload results")
	}
	return nil
}
