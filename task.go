package rtqueue

import (
	"context"
	"sync"
)

// Task is the identity of a goroutine acting as a real-time task. Blocking
// operations require a Task in their context; its priority orders waiters
// on Prio queues.
//
// A Task waits in at most one call at a time.
type Task struct {
	name     string
	priority int

	mu      sync.Mutex
	unblock chan struct{}
}

// NewTask returns a task identity. Higher priorities are served first.
func NewTask(name string, priority int) *Task {
	return &Task{name: name, priority: priority}
}

// Name returns the task's name.
func (t *Task) Name() string { return t.name }

// Priority returns the task's priority.
func (t *Task) Priority() int { return t.priority }

// Unblock interrupts the task's current wait, which then fails with
// ErrInterrupted. It reports false if the task is not waiting.
func (t *Task) Unblock() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.unblock == nil {
		return false
	}
	close(t.unblock)
	t.unblock = nil
	return true
}

// arm opens the window in which Unblock takes effect. Every arm must be
// paired with a disarm.
func (t *Task) arm() <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unblock = make(chan struct{})
	return t.unblock
}

func (t *Task) disarm() {
	t.mu.Lock()
	t.unblock = nil
	t.mu.Unlock()
}

type (
	taskKey  struct{}
	asyncKey struct{}
)

// WithTask returns a context carrying t as the calling task.
func WithTask(ctx context.Context, t *Task) context.Context {
	return context.WithValue(ctx, taskKey{}, t)
}

// TaskFromContext returns the task carried by ctx. Interrupt-like contexts
// never carry a task.
func TaskFromContext(ctx context.Context) (*Task, bool) {
	if isAsync(ctx) {
		return nil, false
	}
	t, ok := ctx.Value(taskKey{}).(*Task)
	return t, ok && t != nil
}

// WithAsync marks ctx as an interrupt-like caller: it may never block,
// create or delete queues.
func WithAsync(ctx context.Context) context.Context {
	return context.WithValue(ctx, asyncKey{}, true)
}

func isAsync(ctx context.Context) bool {
	async, _ := ctx.Value(asyncKey{}).(bool)
	return async
}
