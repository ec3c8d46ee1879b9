package taskQueue

import "fmt"

// RunQueue persists merge runs that have been accepted but not finished, so
// they survive a restart.
var RunQueue *DBQueue

func OpenRunQueueDB(dataFile string) error {
	q, err := OpenQueue(dataFile)
	if err != nil {
		return err
	}
	RunQueue = q
	return nil
}

func CloseRunQueueDB() error {
	if RunQueue == nil {
		return nil
	}
	err := RunQueue.Close()
	RunQueue = nil
	return err
}

func AddToRunQueue(id string, value []byte) error {
	if RunQueue == nil {
		return fmt.Errorf("run queue not initialized")
	}
	return RunQueue.Add(id, value)
}

func GetFromRunQueue(id string) ([]byte, error) {
	if RunQueue == nil {
		return nil, fmt.Errorf("run queue not initialized")
	}
	return RunQueue.Get(id)
}

func DeleteFromRunQueue(id string) error {
	if RunQueue == nil {
		return fmt.Errorf("run queue not initialized")
	}
	return RunQueue.Delete(id)
}

// EachInRunQueue visits every queued run in id order.
func EachInRunQueue(fn func(id string, value []byte) error) error {
	if RunQueue == nil {
		return fmt.Errorf("run queue not initialized")
	}
	return RunQueue.Each(fn)
}
