package rtqueue

import (
	"github.com/pkg/errors"

	"github.com/timzifer/rtqueue/internal/pool"
	"github.com/timzifer/rtqueue/internal/registry"
	"github.com/timzifer/rtqueue/internal/syncobj"
)

var (
	// ErrInvalidArgument is returned for out of range sizes, limits or mode bits.
	ErrInvalidArgument = errors.New("rtqueue: invalid argument")
	// ErrInvalid is returned for nil or unbound handles, and for messages
	// that are foreign, already released or still queued.
	ErrInvalid = errors.New("rtqueue: invalid handle")
	// ErrStaleHandle is returned when the queue behind a handle was deleted.
	ErrStaleHandle = errors.New("rtqueue: queue deleted")
	// ErrExists is returned by Create when the name is already registered.
	ErrExists = errors.New("rtqueue: name already in use")
	// ErrNoMemory is returned when the pool is exhausted or the queue limit is reached.
	ErrNoMemory = errors.New("rtqueue: out of memory")
	// ErrWouldBlock is returned by non-blocking calls that would have to wait.
	ErrWouldBlock = errors.New("rtqueue: operation would block")
	// ErrTimedOut is returned when a timeout or a context deadline expires.
	ErrTimedOut = errors.New("rtqueue: timed out")
	// ErrInterrupted is returned when a wait is broken by Task.Unblock or
	// context cancellation.
	ErrInterrupted = errors.New("rtqueue: interrupted")
	// ErrRemoved is returned to waiters of a queue that gets deleted.
	ErrRemoved = errors.New("rtqueue: queue removed while waiting")
	// ErrPermission is returned when the calling context may not perform
	// the operation.
	ErrPermission = errors.New("rtqueue: operation not permitted in this context")
)

// translate maps errors of the internal packages onto the exported sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syncobj.ErrTimedOut), errors.Is(err, registry.ErrTimedOut):
		return ErrTimedOut
	case errors.Is(err, syncobj.ErrInterrupted), errors.Is(err, registry.ErrInterrupted):
		return ErrInterrupted
	case errors.Is(err, syncobj.ErrRemoved):
		return ErrRemoved
	case errors.Is(err, registry.ErrWouldBlock):
		return ErrWouldBlock
	case errors.Is(err, registry.ErrExists):
		return ErrExists
	case errors.Is(err, pool.ErrNoSpace):
		return ErrNoMemory
	case errors.Is(err, pool.ErrSize):
		return ErrInvalidArgument
	case errors.Is(err, pool.ErrInvalid):
		return ErrInvalid
	}
	return err
}
