package pipeline_test

import (
	"context"
	"errors"
	"image"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"layercast/layers"
	"layercast/pipeline"
)

func makeJobs(n int) []layers.Job {
	jobs := make([]layers.Job, n)
	for i := range jobs {
		jobs[i] = layers.Job{Index: i, Paths: []string{"x.png"}}
	}
	return jobs
}

// tagged returns a 1x1 frame whose red channel carries the frame index.
func tagged(i int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Pix[0] = uint8(i)
	return img
}

func TestRunEmitsInOrder(t *testing.T) {
	const n = 50
	delays := make([]time.Duration, n)
	r := rand.New(rand.NewSource(1))
	for i := range delays {
		delays[i] = time.Duration(r.Intn(3000)) * time.Microsecond
	}

	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		time.Sleep(delays[job.Index])
		return tagged(job.Index), nil
	}

	var got []int
	err := pipeline.Run(context.Background(), makeJobs(n), fn, pipeline.Options{Workers: 8}, func(cf pipeline.CompositedFrame) error {
		if int(cf.Image.Pix[0]) != cf.Index {
			t.Errorf("frame %d carries image for %d", cf.Index, cf.Image.Pix[0])
		}
		got = append(got, cf.Index)
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(got) != n {
		t.Fatalf("expected %d frames, got %d", n, len(got))
	}
	for i, idx := range got {
		if idx != i {
			t.Fatalf("position %d holds frame %d", i, idx)
		}
	}
}

func TestRunReversedCompletion(t *testing.T) {
	const n = 16
	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		time.Sleep(time.Duration(n-job.Index) * time.Millisecond)
		return tagged(job.Index), nil
	}
	next := 0
	err := pipeline.Run(context.Background(), makeJobs(n), fn, pipeline.Options{Workers: 4, Window: 8}, func(cf pipeline.CompositedFrame) error {
		if cf.Index != next {
			t.Fatalf("got frame %d, want %d", cf.Index, next)
		}
		next++
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if next != n {
		t.Errorf("emitted %d frames", next)
	}
}

func TestProgressMonotonic(t *testing.T) {
	const n = 30
	var mu sync.Mutex
	var values []float64
	opts := pipeline.Options{
		Workers: 6,
		Progress: func(f float64) {
			mu.Lock()
			values = append(values, f)
			mu.Unlock()
		},
	}
	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		time.Sleep(time.Duration(job.Index%5) * time.Millisecond)
		return tagged(job.Index), nil
	}
	if err := pipeline.Run(context.Background(), makeJobs(n), fn, opts, func(pipeline.CompositedFrame) error { return nil }); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(values) != n {
		t.Fatalf("expected %d progress reports, got %d", n, len(values))
	}
	for i := 1; i < len(values); i++ {
		if values[i] < values[i-1] {
			t.Fatalf("progress went backwards: %v then %v", values[i-1], values[i])
		}
	}
	if values[len(values)-1] != 1 {
		t.Errorf("final progress = %v, want 1", values[len(values)-1])
	}
}

func TestFailureStopsEmission(t *testing.T) {
	const n = 20
	boom := errors.New("boom")
	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		if job.Index == 7 {
			return nil, boom
		}
		return tagged(job.Index), nil
	}

	var written []int
	err := pipeline.Run(context.Background(), makeJobs(n), fn, pipeline.Options{Workers: 4}, func(cf pipeline.CompositedFrame) error {
		written = append(written, cf.Index)
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected worker error, got %v", err)
	}
	if len(written) > 7 {
		t.Errorf("wrote %d frames past the failure: %v", len(written), written)
	}
	for i, idx := range written {
		if idx != i {
			t.Errorf("position %d holds frame %d", i, idx)
		}
	}
}

func TestSinkErrorStopsRun(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		calls.Add(1)
		return tagged(job.Index), nil
	}
	stop := errors.New("disk full")
	err := pipeline.Run(context.Background(), makeJobs(100), fn, pipeline.Options{Workers: 2, Window: 2}, func(cf pipeline.CompositedFrame) error {
		if cf.Index == 3 {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Fatalf("expected sink error, got %v", err)
	}
	if c := calls.Load(); c >= 100 {
		t.Errorf("all %d frames composited after sink failure", c)
	}
}

func TestCancelContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		if job.Index == 5 {
			cancel()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
		return tagged(job.Index), nil
	}
	err := pipeline.Run(ctx, makeJobs(1000), fn, pipeline.Options{Workers: 3}, func(pipeline.CompositedFrame) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWindowBoundsLookahead(t *testing.T) {
	const window = 4
	var started atomic.Int32
	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		started.Add(1)
		return tagged(job.Index), nil
	}

	s := pipeline.Start(context.Background(), makeJobs(40), fn, pipeline.Options{Workers: 2, Window: window})
	defer s.Close()

	// nothing consumed yet, so dispatch must stall at the window
	time.Sleep(50 * time.Millisecond)
	if got := started.Load(); got > window {
		t.Fatalf("%d frames started with window %d and no consumer", got, window)
	}
	if !s.Next() || s.Frame().Index != 0 {
		t.Fatalf("expected frame 0 first")
	}
	count := 1
	for s.Next() {
		count++
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if count != 40 {
		t.Errorf("consumed %d frames, want 40", count)
	}
}

func TestEmptyJobs(t *testing.T) {
	fn := func(ctx context.Context, job layers.Job) (*image.RGBA, error) {
		t.Fatal("compose called with no jobs")
		return nil, nil
	}
	if err := pipeline.Run(context.Background(), nil, fn, pipeline.Options{}, func(pipeline.CompositedFrame) error { return nil }); err != nil {
		t.Errorf("empty run failed: %v", err)
	}
}
