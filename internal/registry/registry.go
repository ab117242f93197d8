// Package registry indexes shared objects by name. A Cluster has its own
// lock, independent of the objects it references, and lets callers block
// until a name is registered.
package registry

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

var (
	ErrExists      = errors.New("registry: name already registered")
	ErrWouldBlock  = errors.New("registry: name not registered")
	ErrTimedOut    = errors.New("registry: lookup timed out")
	ErrInterrupted = errors.New("registry: lookup interrupted")
)

// Cluster maps names to objects. It holds non-owning references: removing a
// name never touches the object.
type Cluster[T any] struct {
	mu      sync.Mutex
	objs    map[string]T
	changed chan struct{}
}

// New returns an empty cluster.
func New[T any]() *Cluster[T] {
	return &Cluster[T]{
		objs:    make(map[string]T),
		changed: make(chan struct{}),
	}
}

// Add registers obj under name and wakes binders waiting for it.
func (c *Cluster[T]) Add(name string, obj T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.objs[name]; ok {
		return ErrExists
	}
	c.objs[name] = obj

	close(c.changed)
	c.changed = make(chan struct{})
	return nil
}

// Remove unregisters name, reporting whether it was present.
func (c *Cluster[T]) Remove(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.objs[name]; !ok {
		return false
	}
	delete(c.objs, name)
	return true
}

// Lookup returns the object registered under name.
func (c *Cluster[T]) Lookup(name string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	obj, ok := c.objs[name]
	return obj, ok
}

// Names returns the registered names in sorted order.
func (c *Cluster[T]) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.objs))
}

// Wait returns the object registered under name, blocking until it appears
// unless poll is set. A zero deadline waits forever.
func (c *Cluster[T]) Wait(ctx context.Context, name string, deadline time.Time, poll bool, interrupt <-chan struct{}) (zero T, _ error) {
	var expired <-chan time.Time
	if !poll && !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		c.mu.Lock()
		obj, ok := c.objs[name]
		changed := c.changed
		c.mu.Unlock()

		if ok {
			return obj, nil
		}
		if poll {
			return zero, ErrWouldBlock
		}

		select {
		case <-changed:
		case <-expired:
			return zero, ErrTimedOut
		case <-interrupt:
			return zero, ErrInterrupted
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return zero, ErrTimedOut
			}
			return zero, ErrInterrupted
		}
	}
}
