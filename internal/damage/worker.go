package damage

import (
	"context"
	"runtime"

	"github.com/wayvnc-go/wayvnc/internal/buffer"
	"github.com/wayvnc-go/wayvnc/internal/region"
)

// Job is a self-contained damage-check task: its inputs (an owned buffer
// and a hint region) are moved in, and its output is delivered on Done.
// The caller must not touch
// Buf concurrently while a Job is outstanding.
type Job struct {
	Refinery *Refinery
	Hint     region.Rect
	Buf      *buffer.Buffer
	Done     chan<- Result
}

// Result is what a Worker reports back on a Job's Done channel.
type Result struct {
	Job    Job
	Region region.Region
	Err    error
}

// Worker is the bounded pool of background goroutines the main loop
// submits damage-check work to when a capture backend doesn't report
// damage itself. No state is shared between jobs beyond each Job's own
// inputs/outputs.
type Worker struct {
	jobs   chan Job
	cancel context.CancelFunc
}

// NewWorker starts runtime.GOMAXPROCS(0) background goroutines pulling
// from a shared job queue, stopped by canceling ctx or calling Close.
func NewWorker(ctx context.Context) *Worker {
	ctx, cancel := context.WithCancel(ctx)
	w := &Worker{
		jobs:   make(chan Job),
		cancel: cancel,
	}

	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go w.run(ctx)
	}
	return w
}

func (w *Worker) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-w.jobs:
			if !ok {
				return
			}
			refined, err := j.Refinery.Refine(j.Hint, j.Buf)
			j.Done <- Result{Job: j, Region: refined, Err: err}
		}
	}
}

// Submit enqueues a job, blocking until a worker goroutine accepts it or
// ctx is canceled.
func (w *Worker) Submit(ctx context.Context, j Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case w.jobs <- j:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops all worker goroutines. Jobs already accepted run to
// completion; Submit must not be called afterward.
func (w *Worker) Close() {
	w.cancel()
}
