package docstore

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var ErrPoolClosed = errors.New("async pool closed")

// Pool runs file I/O off the dispatch path on a fixed set of workers. Jobs
// are sharded by key, so jobs for one key run in submission order.
type Pool struct {
	mu     sync.RWMutex
	queues []chan func()
	closed bool
	wg     sync.WaitGroup
	logger *log.Logger
}

// NewPool starts workers goroutines, each with a queue of the given depth.
func NewPool(workers, queue int, logger *log.Logger) *Pool {
	if logger == nil {
		logger = log.Default()
	}
	if workers < 1 {
		workers = 1
	}
	p := &Pool{queues: make([]chan func(), workers), logger: logger}
	for i := range p.queues {
		q := make(chan func(), queue)
		p.queues[i] = q
		p.wg.Add(1)
		go p.work(q)
	}
	return p
}

func (p *Pool) work(q chan func()) {
	defer p.wg.Done()
	for job := range q {
		job()
	}
}

// Submit enqueues job on the worker owning key. It blocks while that queue
// is full, until ctx is done.
func (p *Pool) Submit(ctx context.Context, key string, job func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	q := p.queues[xxhash.Sum64String(key)%uint64(len(p.queues))]
	select {
	case q <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting jobs and waits for queued ones to finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()
	p.wg.Wait()
	p.logger.Println("docstore: async pool drained")
}

// LoadResult is delivered by Async.Load.
type LoadResult struct {
	Doc []byte
	Err error
}

// Async dispatches Store calls onto a Pool. Each call returns a channel
// that receives exactly one value.
type Async struct {
	store Store
	pool  *Pool
}

func NewAsync(store Store, pool *Pool) *Async {
	return &Async{store: store, pool: pool}
}

// Load reads the document on a worker.
func (a *Async) Load(ctx context.Context, namespace, key string) <-chan LoadResult {
	out := make(chan LoadResult, 1)
	err := a.pool.Submit(ctx, LockKey(namespace, key), func() {
		doc, err := a.store.Load(ctx, namespace, key)
		out <- LoadResult{Doc: doc, Err: err}
	})
	if err != nil {
		out <- LoadResult{Err: err}
	}
	return out
}

// Save writes a copy of doc on a worker.
func (a *Async) Save(ctx context.Context, namespace, key string, doc []byte) <-chan error {
	out := make(chan error, 1)
	doc = append([]byte(nil), doc...)
	err := a.pool.Submit(ctx, LockKey(namespace, key), func() {
		out <- a.store.Save(ctx, namespace, key, doc)
	})
	if err != nil {
		out <- err
	}
	return out
}
