// Package dispatch serializes state-changing work onto one consumer.
package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned by Do after Close
var ErrClosed = errors.New("dispatch: queue closed")

type task struct {
	name string
	run  func() error
	done chan error
}

// Queue runs submitted tasks one at a time in submission order
type Queue struct {
	tasks  chan task
	once   sync.Once
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	logger *zap.Logger
}

// NewQueue starts the worker. size bounds pending tasks; callers block
// while the buffer is full.
func NewQueue(size int, logger *zap.Logger) *Queue {
	if size <= 0 {
		size = 64
	}
	q := &Queue{
		tasks:  make(chan task, size),
		logger: logger,
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// Do enqueues fn and waits for the worker to run it. Tasks must not call Do.
func (q *Queue) Do(name string, fn func() error) error {
	if fn == nil {
		return errors.New("dispatch: nil task")
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrClosed
	}
	t := task{name: name, run: fn, done: make(chan error, 1)}
	q.tasks <- t
	q.mu.RUnlock()

	return <-t.done
}

// Close stops accepting tasks, runs the queued ones and waits for the worker
func (q *Queue) Close() {
	q.once.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.tasks)
		q.mu.Unlock()
		q.wg.Wait()
	})
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for t := range q.tasks {
		t.done <- q.run(t)
	}
}

func (q *Queue) run(t task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("Task panicked", zap.String("task", t.name), zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
	}()
	return t.run()
}
