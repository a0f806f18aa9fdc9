package crawl

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/askthws/harvester/internal/harvest"
	"github.com/askthws/harvester/internal/metrics"
)

// parseJob carries a fetched response to a parse worker.
type parseJob struct {
	kind harvest.Kind
	resp harvest.FetchedResponse
}

// parsePool decouples fetching from parsing so slow PDF probes do not
// stall the network loop. Submit blocks when the queue is full, which
// backpressures the collector.
type parsePool struct {
	jobs        chan parseJob
	handler     func(parseJob)
	wg          sync.WaitGroup
	outstanding sync.WaitGroup
	submitted   atomic.Int64
	closeOnce   sync.Once
}

func newParsePool(workers, depth int, handler func(parseJob)) *parsePool {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = workers * 4
	}
	p := &parsePool{
		jobs:    make(chan parseJob, depth),
		handler: handler,
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.work()
	}
	return p
}

func (p *parsePool) work() {
	defer p.wg.Done()
	for job := range p.jobs {
		p.handler(job)
		p.outstanding.Done()
		metrics.SetParseQueueDepth(len(p.jobs))
	}
}

// Submit queues a job, blocking until a worker frees up or ctx ends.
func (p *parsePool) Submit(ctx context.Context, job parseJob) error {
	p.outstanding.Add(1)
	p.submitted.Add(1)
	select {
	case p.jobs <- job:
		metrics.SetParseQueueDepth(len(p.jobs))
		return nil
	case <-ctx.Done():
		p.outstanding.Done()
		return ctx.Err()
	}
}

// WaitIdle blocks until every submitted job has been handled.
func (p *parsePool) WaitIdle() {
	p.outstanding.Wait()
}

// Submitted returns the number of jobs ever submitted. The drain loop
// compares it across wait cycles to detect a quiet crawl.
func (p *parsePool) Submitted() int64 {
	return p.submitted.Load()
}

// Close stops the workers after the queue drains.
func (p *parsePool) Close() {
	p.closeOnce.Do(func() {
		close(p.jobs)
	})
	p.wg.Wait()
}
