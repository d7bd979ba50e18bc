package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andi/docconvert/backend/converter"
	"github.com/sirupsen/logrus"
)

// Request describes one conversion to perform
type Request struct {
	InputPath    string
	OutputDir    string
	TargetFormat string
}

// Result is delivered on the channel returned by Submit
type Result struct {
	Path string
	Err  error
}

type job struct {
	req    Request
	result chan Result
}

// Pool bounds concurrent engine invocations to a fixed capacity. Jobs beyond
// capacity queue in submission order; each worker owns one engine.
type Pool struct {
	engines []*converter.Engine
	jobs    chan job
	wg      sync.WaitGroup
	busy    int32
	mu      sync.Mutex
	closed  bool
	log     *logrus.Logger
}

// Stats reports the pool's occupancy
type Stats struct {
	Capacity int `json:"capacity"`
	Busy     int `json:"busy"`
	Queued   int `json:"queued"`
}

// New creates a pool with the given capacity and starts its workers.
func New(capacity, queueSize int, sofficePath string, timeout time.Duration, log *logrus.Logger) *Pool {
	if capacity <= 0 {
		capacity = 3
	}
	if queueSize <= 0 {
		queueSize = 64
	}

	p := &Pool{
		engines: make([]*converter.Engine, capacity),
		jobs:    make(chan job, queueSize),
		log:     log,
	}

	for i := 0; i < capacity; i++ {
		p.engines[i] = converter.NewEngine(i+1, sofficePath, timeout)
		p.wg.Add(1)
		go p.run(p.engines[i])
	}

	log.Infof("Worker pool created with %d engines, queue size %d", capacity, queueSize)
	return p
}

// Submit enqueues a conversion and returns the channel its result will be
// delivered on. The channel is buffered, so a result is never lost to a slow
// reader. Submit fails if the pool is closed or the queue is full.
func (p *Pool) Submit(req Request) (<-chan Result, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, fmt.Errorf("worker pool is closed")
	}

	j := job{req: req, result: make(chan Result, 1)}
	select {
	case p.jobs <- j:
		p.mu.Unlock()
		return j.result, nil
	default:
		p.mu.Unlock()
		return nil, fmt.Errorf("worker pool queue is full")
	}
}

// run is a worker loop bound to a single engine
func (p *Pool) run(engine *converter.Engine) {
	defer p.wg.Done()

	for j := range p.jobs {
		atomic.AddInt32(&p.busy, 1)
		path, err := p.convert(engine, j.req)
		atomic.AddInt32(&p.busy, -1)

		j.result <- Result{Path: path, Err: err}
	}
}

// convert runs one conversion; a panicking conversion must not kill the
// worker or leak the pool slot.
func (p *Pool) convert(engine *converter.Engine, req Request) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorf("Engine-%d panicked: %v", engine.ID(), r)
			err = fmt.Errorf("conversion panicked: %v", r)
		}
	}()

	p.log.Infof("Engine-%d converting %s to %s", engine.ID(), req.InputPath, req.TargetFormat)
	return engine.Convert(context.Background(), req.InputPath, req.OutputDir, req.TargetFormat)
}

// Stats returns the current pool occupancy
func (p *Pool) Stats() Stats {
	return Stats{
		Capacity: len(p.engines),
		Busy:     int(atomic.LoadInt32(&p.busy)),
		Queued:   len(p.jobs),
	}
}

// Close stops accepting work, drains queued jobs and joins the workers.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)
	p.wg.Wait()
	p.log.Info("Worker pool closed")
}
