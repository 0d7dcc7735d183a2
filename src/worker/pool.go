package worker

import (
	"context"
	"log"
	"sync"

	"screen-capture-ocr/src/delivery"
	"screen-capture-ocr/src/pipeline"
)

// ResultCallback is invoked from a worker goroutine when a job finishes.
// The event loop passes a closure that posts back into its own goroutine.
type ResultCallback func(res pipeline.Result, err error)

// Pool runs pipeline invocations on a fixed set of workers behind a 1-slot
// queue. A full queue drops new submissions.
type Pool struct {
	p    pipeline.Pipeline
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx    context.Context
	router *delivery.Router
	cb     ResultCallback
}

// New creates a pool running p. Size defaults to 1 when size<=0, which
// serializes invocations so two captures never race for the output file.
func New(p pipeline.Pipeline, size int) *Pool {
	if size <= 0 {
		size = 1
	}
	pool := &Pool{p: p, jobs: make(chan job, 1)}
	pool.start(size)
	return pool
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("Worker: starting %s pipeline", p.p.Name())
				res, err := runJob(j, p.p)
				log.Printf("Worker: %s pipeline done, err=%v", p.p.Name(), err)
				if j.cb != nil {
					j.cb(res, err)
				}
			}
		}()
	}
}

func runJob(j job, p pipeline.Pipeline) (pipeline.Result, error) {
	if err := j.ctx.Err(); err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.CaptureOrRecognize(j.ctx, p, j.router)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, router *delivery.Router, cb ResultCallback) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case p.jobs <- job{ctx: ctx, router: router, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining queued work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
