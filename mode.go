package rtqueue

import "time"

// Mode is the creation mode of a queue.
type Mode int

const (
	// FIFO queues waiting tasks in arrival order.
	FIFO Mode = 0
	// Prio queues waiting tasks by priority, arrival order among equals.
	Prio Mode = 1 << 0
)

func (m Mode) String() string {
	if m&Prio != 0 {
		return "prio"
	}
	return "fifo"
}

// SendMode is a set of flags for Send and Write.
type SendMode int

const (
	// Normal appends the message to the pending list.
	Normal SendMode = 0
	// Urgent prepends the message to the pending list.
	Urgent SendMode = 1 << 0
	// Broadcast delivers the message to every waiting task and never queues it.
	Broadcast SendMode = 1 << 1
)

const (
	// NonBlock makes a call return ErrWouldBlock instead of waiting. Any
	// negative timeout behaves the same.
	NonBlock time.Duration = -1
	// Infinite waits until the call can complete.
	Infinite time.Duration = 0
)

const (
	// Unlimited disables the pending message limit of a queue.
	Unlimited = 0
	// MaxNameLen bounds queue names; longer names are truncated to
	// MaxNameLen-1 bytes.
	MaxNameLen = 32
	// EnvelopeSize is the pool space charged to every message on top of its
	// payload.
	EnvelopeSize = 32
)
