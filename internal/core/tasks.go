package core

import (
	"context"
	"sync"

	"github.com/xivdev/Penumbra-sub003/internal/domain"
)

// Task is a handle to submitted background work
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Wait blocks until the task finishes and returns its error
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Done is closed when the task finishes
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Cancel asks the task to stop
func (t *Task) Cancel() {
	t.cancel()
}

// TaskQueue runs background work keyed by name. Submitting under a key cancels
// the task already running under it; the new task starts once the old one returns.
type TaskQueue struct {
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	tasks  map[string]*Task
	wg     sync.WaitGroup
	closed bool
}

// NewTaskQueue creates an empty queue
func NewTaskQueue() *TaskQueue {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskQueue{
		ctx:    ctx,
		cancel: cancel,
		tasks:  make(map[string]*Task),
	}
}

// Submit starts fn under key, superseding any task with the same key
func (q *TaskQueue) Submit(key string, fn func(ctx context.Context) error) *Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		t := &Task{cancel: func() {}, done: make(chan struct{}), err: domain.ErrQueueClosed}
		close(t.done)
		return t
	}

	ctx, cancel := context.WithCancel(q.ctx)
	task := &Task{cancel: cancel, done: make(chan struct{})}
	prior := q.tasks[key]
	q.tasks[key] = task
	if prior != nil {
		prior.cancel()
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer cancel()

		if prior != nil {
			<-prior.done
		}
		if err := ctx.Err(); err != nil {
			task.err = err
		} else {
			task.err = fn(ctx)
		}

		q.mu.Lock()
		if q.tasks[key] == task {
			delete(q.tasks, key)
		}
		q.mu.Unlock()
		close(task.done)
	}()

	return task
}

// Pending returns the number of tasks not yet finished
func (q *TaskQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Close cancels every task and waits for them to return
func (q *TaskQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
}
