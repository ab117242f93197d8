package rtqueue

import (
	"github.com/pkg/errors"

	"github.com/timzifer/rtqueue/internal/pool"
)

// Message is a buffer carved out of a queue's pool. Its memory stays
// valid until the last reference is released.
type Message struct {
	owner *qcb
	block pool.Block
	data  []byte
	size  int
	refs  int
}

// Bytes returns the payload. After Alloc it spans the requested size,
// after Receive the size the sender announced.
func (m *Message) Bytes() []byte { return m.data[:m.size:m.size] }

// Size returns the payload size.
func (m *Message) Size() int { return m.size }

// Cap returns the largest payload the message can carry.
func (m *Message) Cap() int { return len(m.data) }

func (q *qcb) alloc(size int) (*Message, error) {
	if size > q.pool.Size() {
		return nil, errors.Wrapf(ErrNoMemory, "queue %q: %d byte message exceeds the pool", q.name, size)
	}
	if bs := q.pool.BlockSize(); bs > 0 && size > bs-EnvelopeSize {
		return nil, errors.Wrapf(ErrNoMemory, "queue %q: %d byte message exceeds the %d byte block", q.name, size, bs)
	}
	b, err := q.pool.Alloc(size + EnvelopeSize)
	if err != nil {
		return nil, errors.Wrapf(translate(err), "queue %q: %d byte message", q.name, size)
	}
	return &Message{
		owner: q,
		block: b,
		data:  q.pool.Bytes(b)[EnvelopeSize:],
		size:  size,
	}, nil
}

// owns reports whether m is a live message of q.
func (q *qcb) owns(m *Message) bool {
	return m != nil && m.owner == q && q.pool.Validate(m.block)
}

// release drops one reference, returning the block to the pool once none
// remain. Queued messages hold no counted reference and are freed directly.
// A message granted before the queue was deleted has nothing to return.
func (q *qcb) release(m *Message) {
	if m.refs > 0 {
		m.refs--
		if m.refs > 0 {
			return
		}
	}
	if q.pool.Destroyed() {
		q.session.log.Debug().
			Str("pool", q.pool.Name()).
			Log("message released after queue deletion")
		return
	}
	if err := q.pool.Free(m.block); err != nil {
		q.session.log.Debug().
			Str("pool", q.pool.Name()).
			Err(err).
			Log("message block not returned to pool")
	}
}
