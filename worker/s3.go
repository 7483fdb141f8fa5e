package worker

import (
	"riboscreen.com/ths/s3client"
)

type s3Transactions interface {
	getJobSpec(task *Task) ([]byte, error)
	getPanel(panelKey string) ([]byte, error)
	saveResultsFile(task *Task, result string) error
	close()
}

type s3ClientWrapper struct {
	s3Client *s3client.Client
}

func (wrapper *s3ClientWrapper) close() {
	wrapper.s3Client.Close()
}

func (wrapper *s3ClientWrapper) getJobSpec(task *Task) ([]byte, error) {
	return wrapper.s3Client.Download(task.sweepTask.JobSpecKey)
}

func (wrapper *s3ClientWrapper) getPanel(panelKey string) ([]byte, error) {
	return wrapper.s3Client.Download(panelKey)
}

func (wrapper *s3ClientWrapper) saveResultsFile(task *Task, result string) error {
	resultsFileKey := getResultsFileKey(task)
	_, err := wrapper.s3Client.Upload(result, resultsFileKey)
	return err
}
