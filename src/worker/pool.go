package worker

import (
	"context"
	"log"
	"sync"
)

// Task is one unit of pipeline work (a highlight run or a guidance step
// request). It must honor ctx and return promptly once ctx is done.
type Task func(ctx context.Context)

// Pool runs pipeline tasks off the event loop with a 1-slot input queue.
// A second submission while one is queued is rejected, which is how the
// event loop avoids overlapping analysis calls.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup
}

type job struct {
	ctx  context.Context
	task Task
}

// New creates a pool of size workers. Size defaults to 1; the pipeline is
// serial by design, more workers only help when a caller wants parallel
// independent tasks.
func New(size int) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for j := range p.jobs {
				if err := j.ctx.Err(); err != nil {
					log.Printf("Worker: Skipping task, context done: %v", err)
					continue
				}
				runTask(j.ctx, j.task)
			}
		}()
	}
}

// runTask isolates panics so one bad pipeline run cannot kill the worker.
func runTask(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Worker: Task panicked: %v", r)
		}
	}()
	task(ctx)
}

// Submit enqueues a task if the single-slot queue is free. Returns false if
// the queue is occupied and the task was dropped.
func (p *Pool) Submit(ctx context.Context, task Task) bool {
	select {
	case p.jobs <- job{ctx: ctx, task: task}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
