package raster

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/twpayne/go-geom"
)

// ErrSuperseded is returned by Runner.Run when a newer run started before
// this one finished. Its partial grid is discarded.
var ErrSuperseded = errors.New("raster: superseded by a newer run")

// Drive steps job to completion, yielding between steps and stopping early
// when ctx is done.
func Drive(ctx context.Context, job *Job) (*Result, error) {
	for !job.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if job.Step() {
			break
		}
		runtime.Gosched()
	}
	return job.Result()
}

// Rasterize builds and drives a job in one call.
func Rasterize(ctx context.Context, polys []*geom.Polygon, opts Options) (*Result, error) {
	job, err := NewJob(polys, opts)
	if err != nil {
		return nil, err
	}
	return Drive(ctx, job)
}

// Runner serialises interactive rasterizations: starting a run cancels the
// one in flight, and only the latest run may publish its result.
type Runner struct {
	mu      sync.Mutex
	gen     uint64
	cancel  context.CancelFunc
	current *Result
}

// Run drives job as the newest generation. Earlier runs still in flight stop
// at their next step and return ErrSuperseded.
func (r *Runner) Run(ctx context.Context, job *Job) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.gen++
	gen := r.gen
	if r.cancel != nil {
		r.cancel()
	}
	r.cancel = cancel
	r.mu.Unlock()

	res, err := Drive(ctx, job)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return nil, ErrSuperseded
	}
	r.cancel = nil
	if err != nil {
		return nil, err
	}
	r.current = res
	return res, nil
}

// Current returns the last published result, or nil.
func (r *Runner) Current() *Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Generation returns the number of runs started so far.
func (r *Runner) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen
}
