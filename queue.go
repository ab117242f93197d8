package rtqueue

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/timzifer/rtqueue/internal/list"
	"github.com/timzifer/rtqueue/internal/pool"
	"github.com/timzifer/rtqueue/internal/syncobj"
	"github.com/timzifer/rtqueue/internal/telemetry"
)

const qcbMagic = 0x8686200

// qcb is the shared state of a queue. mu is the monitor: it guards every
// field below it, the pool, the wait object and the reference counts of
// the queue's messages.
type qcb struct {
	mu      sync.Mutex
	magic   uint32
	name    string
	mode    Mode
	limit   int
	pending list.List[*Message]
	pool    *pool.Pool
	sobj    *syncobj.Object[*waitDesc]
	session *Session
	metrics telemetry.QueueMetrics
}

// waitDesc is filled in by the task granting a waiter. A grant either
// hands over msg, or copies into buf and records the length in n.
type waitDesc struct {
	msg *Message
	buf []byte
	n   int
}

// Queue is a handle on a queue. Handles are cheap; several may refer to
// the same queue, and Unbind only invalidates the handle it is called on.
type Queue struct {
	q atomic.Pointer[qcb]
}

// lock returns the queue behind h with its monitor held.
func (h *Queue) lock() (*qcb, error) {
	if h == nil {
		return nil, ErrInvalid
	}
	q := h.q.Load()
	if q == nil {
		return nil, ErrInvalid
	}
	q.mu.Lock()
	if q.magic != qcbMagic {
		q.mu.Unlock()
		return nil, ErrStaleHandle
	}
	return q, nil
}

// Name returns the registered name of the queue, or "" for an unbound handle.
func (h *Queue) Name() string {
	if h == nil {
		return ""
	}
	if q := h.q.Load(); q != nil {
		return q.name
	}
	return ""
}

// Unbind invalidates h. The queue itself is unaffected.
func (h *Queue) Unbind() error {
	if h == nil || h.q.Swap(nil) == nil {
		return ErrInvalid
	}
	return nil
}

// Delete unregisters the queue, wakes every waiter with ErrRemoved, drops
// the pending messages and releases the pool. Messages still held by
// tasks become invalid.
func (h *Queue) Delete(ctx context.Context) error {
	if isAsync(ctx) {
		return ErrPermission
	}
	q, err := h.lock()
	if err != nil {
		return err
	}
	defer q.mu.Unlock()

	q.session.registry.Remove(q.name)
	q.magic = 0
	woken := q.sobj.Destroy()
	dropped := q.pending.Drain(func(m *Message) { m.owner = nil })
	q.pool.Destroy()

	if woken > 0 {
		q.session.log.Info().
			Str("queue", q.name).
			Int("waiters", woken).
			Log("waiters released by queue deletion")
	}
	q.session.log.Debug().
		Str("queue", q.name).
		Int("dropped", dropped).
		Log("queue deleted")
	return nil
}

// Info is a snapshot of a queue's state.
type Info struct {
	Waiters  int
	Messages int
	Mode     Mode
	Limit    int
	PoolSize int
	UsedMem  int
	Name     string
}

// Inquire returns the current state of the queue.
func (h *Queue) Inquire() (Info, error) {
	q, err := h.lock()
	if err != nil {
		return Info{}, err
	}
	defer q.mu.Unlock()

	return Info{
		Waiters:  q.sobj.CountGrant(),
		Messages: q.pending.Len(),
		Mode:     q.mode,
		Limit:    q.limit,
		PoolSize: q.pool.Size(),
		UsedMem:  q.pool.Usage(),
		Name:     q.name,
	}, nil
}

// Flush discards every pending message and returns how many were dropped.
// Waiting tasks are not affected.
func (h *Queue) Flush() (int, error) {
	q, err := h.lock()
	if err != nil {
		return 0, err
	}
	defer q.mu.Unlock()

	n := q.pending.Drain(q.release)
	q.metrics.RecordFlush(n)
	if n > 0 {
		q.session.log.Debug().
			Str("queue", q.name).
			Int("flushed", n).
			Log("pending messages flushed")
	}
	return n, nil
}

// Stats holds the traffic counters of a queue.
type Stats = telemetry.QueueSnapshot

// Stats returns the traffic counters of the queue. They stay readable
// after the queue is deleted.
func (h *Queue) Stats() (Stats, error) {
	if h == nil {
		return Stats{}, ErrInvalid
	}
	q := h.q.Load()
	if q == nil {
		return Stats{}, ErrInvalid
	}
	return q.metrics.Snapshot(), nil
}

func (q *qcb) full() bool {
	return q.limit != Unlimited && q.pending.Len() >= q.limit
}

func (q *qcb) enqueue(m *Message, mode SendMode) {
	if mode&Urgent != 0 {
		q.pending.PushFront(m)
	} else {
		q.pending.PushBack(m)
	}
}

// dispatch grants waiters the message in wait order, one reference each,
// and stops after the first unless broadcasting. It returns the number of
// waiters woken.
func (q *qcb) dispatch(m *Message, mode SendMode) int {
	woken := 0
	for {
		w := q.sobj.PeekGrant()
		if w == nil {
			return woken
		}
		w.Data.msg = m
		m.refs++
		q.sobj.GrantOne()
		woken++
		if mode&Broadcast == 0 {
			return woken
		}
	}
}
