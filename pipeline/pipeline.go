// Package pipeline composites frames on a fixed pool of workers and hands
// the results back strictly in frame order.
//
// Jobs are dispatched in ascending frame order. Workers finish in any order;
// a single collector goroutine counts completions, reports progress, and
// holds early frames in a reorder buffer until their predecessors have been
// emitted. The dispatcher may run at most Window frames ahead of the
// consumer, which bounds the buffer.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"layercast/layers"
	"layercast/logger"
)

// CompositedFrame is a finished frame. Ownership passes to whoever receives it.
type CompositedFrame struct {
	Index int
	Image *image.RGBA
}

// ComposeFunc produces the frame for one job. It must honor ctx.
type ComposeFunc func(ctx context.Context, job layers.Job) (*image.RGBA, error)

// ProgressFunc receives completed/total after every frame completion.
// Calls come from a single goroutine with non-decreasing values.
type ProgressFunc func(fraction float64)

// Options tunes a run. The zero value uses one worker per CPU.
type Options struct {
	Workers  int
	Window   int // frames in flight or buffered; default 2*Workers
	Progress ProgressFunc
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.Window < o.Workers {
		if o.Window <= 0 {
			o.Window = 2 * o.Workers
		} else {
			// a smaller window would leave workers idle
			o.Window = o.Workers
		}
	}
	return o
}

// Stream yields composited frames in ascending index order. It is finite
// and cannot be restarted. Callers must call Close.
type Stream struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	total  int

	sem     *semaphore.Weighted
	results chan CompositedFrame
	ordered chan CompositedFrame

	errOnce   sync.Once
	err       error
	completed atomic.Int64

	cur CompositedFrame
}

// Start launches the dispatcher, workers and collector for jobs, which must
// be in ascending frame order with indices 0..len(jobs)-1.
func Start(ctx context.Context, jobs []layers.Job, fn ComposeFunc, opts Options) *Stream {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancel(ctx)
	s := &Stream{
		ctx:     ctx,
		cancel:  cancel,
		opts:    opts,
		total:   len(jobs),
		sem:     semaphore.NewWeighted(int64(opts.Window)),
		results: make(chan CompositedFrame, opts.Workers),
		ordered: make(chan CompositedFrame),
	}

	logger.Debugf("pipeline: %d frames, %d workers, window %d", s.total, opts.Workers, opts.Window)

	var g errgroup.Group
	queue := make(chan layers.Job)

	g.Go(func() error {
		defer close(queue)
		for _, job := range jobs {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				s.fail(err)
				return err
			}
			select {
			case queue <- job:
			case <-ctx.Done():
				s.fail(ctx.Err())
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < opts.Workers; w++ {
		g.Go(func() error {
			for job := range queue {
				img, err := fn(ctx, job)
				if err != nil {
					s.fail(err)
					return err
				}
				select {
				case s.results <- CompositedFrame{Index: job.Index, Image: img}:
				case <-ctx.Done():
					s.fail(ctx.Err())
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(s.results)
	}()
	go s.collect()

	return s
}

// fail records the first error and stops all remaining work.
func (s *Stream) fail(err error) {
	s.errOnce.Do(func() { s.err = err })
	s.cancel()
}

// collect re-sequences completions into s.ordered.
func (s *Stream) collect() {
	defer close(s.ordered)

	pending := make(map[int]*image.RGBA, s.opts.Window)
	next := 0
	in := s.results

	for in != nil || pending[next] != nil {
		if s.ctx.Err() != nil {
			s.abort(in)
			return
		}

		var out chan CompositedFrame
		var ready CompositedFrame
		if img, ok := pending[next]; ok {
			out = s.ordered
			ready = CompositedFrame{Index: next, Image: img}
		}

		select {
		case cf, ok := <-in:
			if !ok {
				in = nil
				continue
			}
			pending[cf.Index] = cf.Image
			done := s.completed.Add(1)
			if s.opts.Progress != nil {
				s.opts.Progress(float64(done) / float64(s.total))
			}
		case out <- ready:
			delete(pending, next)
			next++
			s.sem.Release(1)
		case <-s.ctx.Done():
			s.abort(in)
			return
		}
	}

	if s.err == nil && next != s.total {
		s.err = fmt.Errorf("pipeline: emitted %d of %d frames", next, s.total)
	}
}

// abort drops buffered frames and waits for every worker to exit so the
// recorded error is final.
func (s *Stream) abort(in <-chan CompositedFrame) {
	if in != nil {
		for range in {
		}
	}
	s.errOnce.Do(func() { s.err = s.ctx.Err() })
}

// Next advances to the next frame in index order. It blocks until that
// frame is complete and returns false when the stream is exhausted or failed.
func (s *Stream) Next() bool {
	cf, ok := <-s.ordered
	if !ok {
		return false
	}
	s.cur = cf
	return true
}

// Frame returns the frame produced by the last successful Next.
func (s *Stream) Frame() CompositedFrame { return s.cur }

// Err returns the first error observed, once Next has returned false.
func (s *Stream) Err() error { return s.err }

// Completed returns how many frames workers have finished so far.
func (s *Stream) Completed() int { return int(s.completed.Load()) }

// Close cancels outstanding work and waits for the collector to exit.
// Frames not yet emitted are discarded.
func (s *Stream) Close() {
	s.cancel()
	for range s.ordered {
	}
}

// Run drives a stream to completion, handing each frame to sink in index
// order. The first error from a worker, the sink or ctx ends the run.
func Run(ctx context.Context, jobs []layers.Job, fn ComposeFunc, opts Options, sink func(CompositedFrame) error) error {
	s := Start(ctx, jobs, fn, opts)
	defer s.Close()

	for s.Next() {
		if err := sink(s.Frame()); err != nil {
			return err
		}
	}
	return s.Err()
}
