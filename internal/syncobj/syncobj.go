// Package syncobj implements the wait queue embedded in every message
// queue. Waiters park until another task grants them, their deadline
// passes, they are interrupted, or the object is destroyed.
//
// An Object is guarded by the lock of its owner: every method must be
// called with that lock held. Wait releases the lock while parked and
// reacquires it before returning, in the manner of sync.Cond.
package syncobj

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/exp/slices"
)

// Order selects how waiters are granted.
type Order int

const (
	// FIFO grants waiters in arrival order.
	FIFO Order = iota
	// Priority grants the highest priority first, arrival order among equals.
	Priority
)

var (
	ErrTimedOut    = errors.New("syncobj: wait timed out")
	ErrInterrupted = errors.New("syncobj: wait interrupted")
	ErrRemoved     = errors.New("syncobj: object removed")
)

type waitState int

const (
	stateIdle waitState = iota
	statePending
	stateGranted
	stateRemoved
)

// Waiter is one parked call. Data is the caller's wait descriptor, which
// granting tasks fill in before calling Grant*.
type Waiter[W any] struct {
	Data  W
	prio  int
	seq   uint64
	state waitState
	wake  chan struct{}
}

// NewWaiter prepares a waiter of the given priority.
func NewWaiter[W any](prio int, data W) *Waiter[W] {
	return &Waiter[W]{Data: data, prio: prio}
}

// Object is a wait queue.
type Object[W any] struct {
	order     Order
	waiters   []*Waiter[W]
	seq       uint64
	destroyed bool
}

// New returns an empty wait queue with the given ordering.
func New[W any](order Order) *Object[W] {
	return &Object[W]{order: order}
}

// CountGrant returns the number of parked waiters.
func (o *Object[W]) CountGrant() int { return len(o.waiters) }

// PeekGrant returns the waiter GrantOne would pick, without granting it.
func (o *Object[W]) PeekGrant() *Waiter[W] {
	if len(o.waiters) == 0 {
		return nil
	}
	return o.waiters[0]
}

// GrantOne wakes the head waiter and returns it, or nil if none is parked.
func (o *Object[W]) GrantOne() *Waiter[W] {
	w := o.PeekGrant()
	if w != nil {
		o.release(0, stateGranted)
	}
	return w
}

// GrantTo wakes a specific parked waiter. It reports false if w is not
// parked on o.
func (o *Object[W]) GrantTo(w *Waiter[W]) bool {
	i := slices.Index(o.waiters, w)
	if i < 0 {
		return false
	}
	o.release(i, stateGranted)
	return true
}

// Destroy wakes every waiter with ErrRemoved and makes later waits fail
// immediately. It returns the number of waiters released.
func (o *Object[W]) Destroy() int {
	n := len(o.waiters)
	for len(o.waiters) > 0 {
		o.release(len(o.waiters)-1, stateRemoved)
	}
	o.destroyed = true
	return n
}

// Wait parks w until granted, the deadline passes (zero means none), the
// interrupt channel is closed, ctx is done, or o is destroyed. mu must be
// held on entry and is held again on return. A grant racing with any other
// wakeup wins.
func (o *Object[W]) Wait(ctx context.Context, mu sync.Locker, w *Waiter[W], deadline time.Time, interrupt <-chan struct{}) error {
	if o.destroyed {
		return ErrRemoved
	}

	w.state = statePending
	w.wake = make(chan struct{}, 1)
	w.seq = o.seq
	o.seq++
	o.insert(w)

	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}

	mu.Unlock()

	var cause error
	select {
	case <-w.wake:
	case <-expired:
		cause = ErrTimedOut
	case <-interrupt:
		cause = ErrInterrupted
	case <-ctx.Done():
		cause = ErrInterrupted
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			cause = ErrTimedOut
		}
	}

	mu.Lock()

	switch w.state {
	case stateGranted:
		w.state = stateIdle
		return nil
	case stateRemoved:
		w.state = stateIdle
		return ErrRemoved
	}

	if i := slices.Index(o.waiters, w); i >= 0 {
		o.waiters = slices.Delete(o.waiters, i, i+1)
	}
	w.state = stateIdle
	return cause
}

func (o *Object[W]) insert(w *Waiter[W]) {
	if o.order != Priority {
		o.waiters = append(o.waiters, w)
		return
	}
	i := slices.IndexFunc(o.waiters, func(x *Waiter[W]) bool { return x.prio < w.prio })
	if i < 0 {
		o.waiters = append(o.waiters, w)
		return
	}
	o.waiters = slices.Insert(o.waiters, i, w)
}

func (o *Object[W]) release(i int, state waitState) {
	w := o.waiters[i]
	o.waiters = slices.Delete(o.waiters, i, i+1)
	w.state = state
	select {
	case w.wake <- struct{}{}:
	default:
	}
}
