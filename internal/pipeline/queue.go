package pipeline

import (
	"context"
	"log/slog"
	"sync"
)

// Queue fans documents out to a bounded worker pool. Each worker runs one
// document to its terminal Result and hands it to the sink; one document's
// failure never affects another's.
type Queue struct {
	proc    *Processor
	sink    func(Result)
	logger  *slog.Logger
	workers int

	ctx    context.Context
	cancel context.CancelFunc

	ch   chan Document
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type QueueOption func(*Queue)

func WithWorkers(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.ch = make(chan Document, n)
		}
	}
}

// NewQueue starts the workers immediately. Cancelling ctx stops workers from
// starting any further documents; the one in flight finishes its attempt.
// sink receives every Result, including failures; it is called from worker
// goroutines and must be safe for concurrent use.
func NewQueue(ctx context.Context, proc *Processor, sink func(Result), logger *slog.Logger, opts ...QueueOption) *Queue {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	q := &Queue{
		proc:    proc,
		sink:    sink,
		logger:  logger,
		workers: 4,
		ch:      make(chan Document, 256),
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *Queue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Info("worker started", "worker_id", workerID)

				for doc := range q.ch {
					// Cancellation granularity is "do not start a new
					// document"; the backlog is drained without processing.
					if q.ctx.Err() != nil {
						q.logger.Warn("document not started: shutdown requested", "worker_id", workerID, "file", doc.FileRef)
						continue
					}

					result := q.proc.Process(q.ctx, doc)
					if q.sink != nil {
						q.sink(result)
					}
					if result.Success {
						q.logger.Info("document processed", "worker_id", workerID, "file", doc.FileRef)
					} else {
						q.logger.Error("document failed", "worker_id", workerID, "file", doc.FileRef, "stage", result.Stage)
					}
				}

				q.logger.Info("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// Enqueue blocks when the queue is full; backpressure is the throttle for
// large batch runs. After Shutdown has begun, documents are dropped with a
// warning instead of panicking on a closed channel.
func (q *Queue) Enqueue(doc Document) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.logger.Warn("cannot enqueue: queue is shutting down", "file", doc.FileRef)
		return
	}
	select {
	case q.ch <- doc:
	default:
		q.logger.Warn("queue full, applying backpressure", "file", doc.FileRef)
		q.ch <- doc
	}
}

// Shutdown stops intake and waits for in-flight documents to reach terminal
// state. If ctx expires first, the queue is cancelled so workers stop
// starting documents and the remaining backlog drains unprocessed; nothing
// is torn down mid-attempt.
func (q *Queue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown deadline reached, abandoning queued documents")
		q.cancel()
		<-done
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
	q.cancel()
}
