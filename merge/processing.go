package merge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"layercast/config"
	"layercast/credentials"
	"layercast/failures"
	"layercast/logger"
	"layercast/models"
	"layercast/preview"
	"layercast/success"
	"layercast/taskQueue"
	writerbackends "layercast/writerBackends"
)

// processRun renders one queued run and publishes the result.
func processRun(ctx context.Context, qr queuedRun) error {
	spec := qr.Spec
	// server renders always land in the render directory
	spec.Output = filepath.Join(config.GetRenderDir(), qr.ID, filepath.Base(spec.Output))

	logger.Infof("Processing run %s", qr.ID)
	res, err := Run(ctx, spec, Options{
		Progress:  func(p float64) { setProgress(qr.ID, p) },
		PreviewID: qr.ID,
	})
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			logger.Warnf("Run %s interrupted, left in queue", qr.ID)
			requeue(qr.ID)
			return err
		}
		return failRun(qr, err)
	}
	if res.Preview != nil {
		preview.Default.Set(res.Preview)
	}

	published, err := publish(ctx, qr.ID, spec, res.Output)
	if err != nil {
		return failRun(qr, err)
	}

	if err := success.StoreSuccess(qr.ID, qr.Spec, res.Output, res.Frames, res.RenderTime, published); err != nil {
		logger.Errorf("Failed to store success record for %s: %v", qr.ID, err)
	}
	finishRun(qr.ID, RunStateCompleted, res.Output, nil)
	dequeue(qr.ID)

	if err := sendCallback(qr, "completed", res, nil); err != nil {
		logger.Errorf("Failed to send callback for %s: %v", qr.ID, err)
	}
	logger.Infof("Run %s completed in %v", qr.ID, res.RenderTime.Round(time.Millisecond))
	return nil
}

// failRun records a failed run and notifies the callback.
func failRun(qr queuedRun, err error) error {
	if storeErr := failures.StoreFailure(qr.ID, err, qr.Spec); storeErr != nil {
		logger.Errorf("Failed to store failure for run %s: %v", qr.ID, storeErr)
	}
	finishRun(qr.ID, RunStateFailed, "", err)
	dequeue(qr.ID)
	if cbErr := sendCallback(qr, "failed", nil, err); cbErr != nil {
		logger.Errorf("Failed to send callback for %s: %v", qr.ID, cbErr)
	}
	return err
}

func dequeue(id string) {
	if taskQueue.RunQueue == nil {
		return
	}
	if err := taskQueue.DeleteFromRunQueue(id); err != nil {
		logger.Errorf("Failed to remove run %s from queue: %v", id, err)
	}
}

// writerJobs builds the publish destinations for spec. Credentials are
// looked up in the credentials store by key.
func writerJobs(spec models.MergeSpec) ([]models.WriterJob, error) {
	var jobs []models.WriterJob
	if spec.DirectHost {
		jobs = append(jobs, models.WriterJob{Type: writerbackends.BackendDirectServe})
	}

	backends := make([]string, 0, len(spec.StorageKeys))
	for b := range spec.StorageKeys {
		backends = append(backends, b)
	}
	sort.Strings(backends)
	for _, backend := range backends {
		creds, err := credentials.GetCredentials(spec.StorageKeys[backend])
		if err != nil {
			return nil, fmt.Errorf("credentials for %s: %w", backend, err)
		}
		jobs = append(jobs, models.WriterJob{Type: backend, Credentials: creds})
	}
	return jobs, nil
}

// publish writes the finished video to every configured backend and
// returns the backend types it reached.
func publish(ctx context.Context, id string, spec models.MergeSpec, output string) ([]string, error) {
	jobs, err := writerJobs(spec)
	if err != nil {
		return nil, err
	}

	var published []string
	for _, wj := range jobs {
		if err := ctx.Err(); err != nil {
			return published, fmt.Errorf("run cancelled during publishing: %w", err)
		}

		reader, err := os.Open(output)
		if err != nil {
			return published, fmt.Errorf("failed to open %s: %w", output, err)
		}
		accessInfo := prepareAccessInfo(wj, id, filepath.Base(output), spec.SubDir)
		err = writerbackends.WriteVideo(ctx, accessInfo, reader, wj.Type)
		reader.Close()
		if err != nil {
			return published, fmt.Errorf("failed to write %s to %s: %w", output, wj.Type, err)
		}
		published = append(published, wj.Type)
	}
	return published, nil
}

// prepareAccessInfo prepares the access info map for the writer backend
func prepareAccessInfo(wj models.WriterJob, id, filename, subDir string) map[string]string {
	accessInfo := make(map[string]string, len(wj.Credentials)+3)
	for k, v := range wj.Credentials {
		accessInfo[k] = v
	}

	accessInfo["filename"] = id + "_" + filename
	accessInfo["folder"] = subDir

	switch wj.Type {
	case writerbackends.BackendDirectServe:
		accessInfo["baseDir"] = config.GetDirectServeBaseDir()
	}
	return accessInfo
}

// callbackPayload is POSTed to the completion callback.
type callbackPayload struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Output       string           `json:"output,omitempty"`
	Frames       int              `json:"frames,omitempty"`
	RenderTimeMS int64            `json:"render_time_ms,omitempty"`
	Error        string           `json:"error,omitempty"`
	ErrorKind    string           `json:"error_kind,omitempty"`
	Timestamp    int64            `json:"timestamp"`
	Spec         models.MergeSpec `json:"spec"`
}

// sendCallback sends completion callback if configured
func sendCallback(qr queuedRun, status string, res *Result, runErr error) error {
	url := qr.Spec.CompletionCallback
	if url == "" {
		return nil
	}

	payload := callbackPayload{
		ID:        qr.ID,
		Status:    status,
		Timestamp: time.Now().Unix(),
		Spec:      qr.Spec,
	}
	if res != nil {
		payload.Output = filepath.Base(res.Output)
		payload.Frames = res.Frames
		payload.RenderTimeMS = res.RenderTime.Milliseconds()
	}
	if runErr != nil {
		payload.Error = runErr.Error()
		payload.ErrorKind = models.ErrorKind(runErr)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create callback request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "layercast/1.0")
	for key, value := range qr.Spec.CallbackHeaders {
		req.Header.Set(key, value)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("callback request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned non-2xx status: %d", resp.StatusCode)
	}

	logger.Infof("Successfully sent callback to %s", url)
	return nil
}
