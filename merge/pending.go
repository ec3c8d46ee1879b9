package merge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"layercast/logger"
	"layercast/models"
	"layercast/taskQueue"
)

// RunState is the lifecycle state of a submitted run.
type RunState int

const (
	RunStatePending RunState = iota
	RunStateProcessing
	RunStateCompleted
	RunStateFailed
	RunStateCancelled
)

func (s RunState) String() string {
	switch s {
	case RunStatePending:
		return "pending"
	case RunStateProcessing:
		return "processing"
	case RunStateCompleted:
		return "completed"
	case RunStateFailed:
		return "failed"
	case RunStateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

var (
	ErrRunNotFound       = errors.New("run not found")
	ErrRunNotCancellable = errors.New("run cannot be cancelled")
)

// Status is a snapshot of a run for status queries.
type Status struct {
	ID          string    `json:"id"`
	State       string    `json:"state"`
	Progress    float64   `json:"progress"` // percent
	Error       string    `json:"error,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	Output      string    `json:"output,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// queuedRun is what the durable queue stores per run.
type queuedRun struct {
	ID          string           `json:"id"`
	Spec        models.MergeSpec `json:"spec"`
	SubmittedAt time.Time        `json:"submitted_at"`
}

type runEntry struct {
	queuedRun
	state    RunState
	progress float64
	err      string
	errKind  string
	output   string
}

var (
	pendingRuns []string // ids in submission order
	runs        = map[string]*runEntry{}
	mu          sync.RWMutex
	wake        = make(chan struct{}, 1)
)

// Submit validates spec, stores it in the durable queue when one is open,
// and schedules it. It returns the new run id.
func Submit(spec models.MergeSpec) (string, error) {
	spec = withDefaults(spec)
	if err := Validate(&spec); err != nil {
		return "", err
	}

	qr := queuedRun{ID: uuid.NewString(), Spec: spec, SubmittedAt: time.Now()}
	if taskQueue.RunQueue != nil {
		data, err := json.Marshal(qr)
		if err != nil {
			return "", fmt.Errorf("failed to encode run: %w", err)
		}
		if err := taskQueue.AddToRunQueue(qr.ID, data); err != nil {
			return "", fmt.Errorf("failed to queue run: %w", err)
		}
	}
	addPendingRun(qr)
	logger.Infof("Run %s queued: %d layers -> %s", qr.ID, len(spec.Layers), spec.Output)
	return qr.ID, nil
}

func addPendingRun(qr queuedRun) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := runs[qr.ID]; exists {
		return
	}
	runs[qr.ID] = &runEntry{queuedRun: qr, state: RunStatePending}
	pendingRuns = append(pendingRuns, qr.ID)
	select {
	case wake <- struct{}{}:
	default:
	}
}

// removePending drops id from the pending list. Callers hold mu.
func removePending(id string) {
	for i, p := range pendingRuns {
		if p == id {
			pendingRuns = append(pendingRuns[:i], pendingRuns[i+1:]...)
			return
		}
	}
}

// GetRunStatus returns the current state of a run.
func GetRunStatus(id string) (Status, bool) {
	mu.RLock()
	defer mu.RUnlock()
	e, ok := runs[id]
	if !ok {
		return Status{}, false
	}
	return Status{
		ID:          e.ID,
		State:       e.state.String(),
		Progress:    e.progress,
		Error:       e.err,
		ErrorKind:   e.errKind,
		Output:      e.output,
		SubmittedAt: e.SubmittedAt,
	}, true
}

// CancelRun cancels a run that has not started yet. Runs that are
// processing or finished cannot be cancelled.
func CancelRun(id string) error {
	mu.Lock()
	defer mu.Unlock()

	e, ok := runs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if e.state != RunStatePending {
		return fmt.Errorf("%w: %s is %s", ErrRunNotCancellable, id, e.state)
	}
	e.state = RunStateCancelled
	removePending(id)
	if taskQueue.RunQueue != nil {
		if err := taskQueue.DeleteFromRunQueue(id); err != nil {
			logger.Errorf("Failed to remove cancelled run %s from queue: %v", id, err)
		}
	}
	logger.Infof("Run %s cancelled", id)
	return nil
}

// ScanForPendingRuns loads runs left in the durable queue by a previous
// process.
func ScanForPendingRuns() error {
	n := 0
	err := taskQueue.EachInRunQueue(func(id string, value []byte) error {
		var qr queuedRun
		if err := json.Unmarshal(value, &qr); err != nil {
			logger.Warnf("Skipping unreadable queued run %s: %v", id, err)
			return nil
		}
		addPendingRun(qr)
		n++
		return nil
	})
	if err != nil {
		return err
	}
	logger.Infof("Recovered %d queued runs", n)
	return nil
}

// nextPending moves the oldest pending run to processing.
func nextPending() (queuedRun, bool) {
	mu.Lock()
	defer mu.Unlock()
	if len(pendingRuns) == 0 {
		return queuedRun{}, false
	}
	id := pendingRuns[0]
	pendingRuns = pendingRuns[1:]
	e := runs[id]
	e.state = RunStateProcessing
	return e.queuedRun, true
}

func setProgress(id string, percent float64) {
	mu.Lock()
	if e, ok := runs[id]; ok {
		e.progress = percent
	}
	mu.Unlock()
}

func finishRun(id string, state RunState, output string, err error) {
	mu.Lock()
	defer mu.Unlock()
	e, ok := runs[id]
	if !ok {
		return
	}
	e.state = state
	e.output = output
	if err != nil {
		e.err = err.Error()
		e.errKind = models.ErrorKind(err)
	}
}

// requeue puts an interrupted run back at the front of the pending list.
func requeue(id string) {
	mu.Lock()
	defer mu.Unlock()
	if e, ok := runs[id]; ok {
		e.state = RunStatePending
		e.progress = 0
		pendingRuns = append([]string{id}, pendingRuns...)
	}
}

// ProcessPendingRuns processes queued runs one at a time until ctx is done.
// A run interrupted by ctx stays in the durable queue for the next start.
func ProcessPendingRuns(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		for {
			qr, ok := nextPending()
			if !ok {
				break
			}
			if err := processRun(ctx, qr); err != nil {
				logger.Errorf("Failed to process run %s: %v", qr.ID, err)
			}
			if ctx.Err() != nil {
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-wake:
		case <-ticker.C:
		}
	}
}
