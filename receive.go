package rtqueue

import (
	"context"
	"time"

	"github.com/timzifer/rtqueue/internal/syncobj"
	"github.com/timzifer/rtqueue/internal/telemetry"
)

// Receive takes the next message off the queue, waiting up to timeout for
// one to arrive. The caller owns a reference to the returned message and
// must release it with Free.
//
// A negative timeout polls. Blocking requires a Task in ctx. Cancelling ctx
// interrupts the wait and a ctx deadline acts as a timeout.
func (h *Queue) Receive(ctx context.Context, timeout time.Duration) (*Message, error) {
	task, _ := TaskFromContext(ctx)
	if timeout >= 0 && task == nil {
		return nil, ErrPermission
	}
	q, err := h.lock()
	if err != nil {
		return nil, err
	}
	defer q.mu.Unlock()

	if m, ok := q.pending.PopFront(); ok {
		m.refs++
		q.metrics.RecordReceive()
		return m, nil
	}
	if timeout < 0 {
		return nil, ErrWouldBlock
	}

	desc := &waitDesc{}
	if err := q.wait(ctx, task, desc, timeout); err != nil {
		return nil, err
	}
	q.metrics.RecordReceive()
	return desc.msg, nil
}

// Read copies the next message into buf and releases it, waiting up to
// timeout for one to arrive. Payloads longer than buf are truncated. It
// returns the number of bytes copied.
func (h *Queue) Read(ctx context.Context, buf []byte, timeout time.Duration) (int, error) {
	task, _ := TaskFromContext(ctx)
	if timeout >= 0 && task == nil {
		return 0, ErrPermission
	}
	if len(buf) == 0 {
		return 0, nil
	}
	q, err := h.lock()
	if err != nil {
		return 0, err
	}
	defer q.mu.Unlock()

	if m, ok := q.pending.PopFront(); ok {
		m.refs++
		q.metrics.RecordRead()
		return q.transfer(m, buf), nil
	}
	if timeout < 0 {
		return 0, ErrWouldBlock
	}

	desc := &waitDesc{buf: buf}
	if err := q.wait(ctx, task, desc, timeout); err != nil {
		return 0, err
	}
	q.metrics.RecordRead()
	if desc.msg == nil {
		return desc.n, nil
	}
	return q.transfer(desc.msg, buf), nil
}

// transfer copies m into buf and drops the reader's reference.
func (q *qcb) transfer(m *Message, buf []byte) int {
	n := copy(buf, m.data[:m.size])
	q.release(m)
	return n
}

// wait parks the calling task on the queue until desc is granted. The
// monitor is held on entry and on return.
func (q *qcb) wait(ctx context.Context, task *Task, desc *waitDesc, timeout time.Duration) error {
	interrupt := task.arm()
	defer task.disarm()

	done := q.metrics.TraceWait()
	w := syncobj.NewWaiter(task.Priority(), desc)
	err := q.sobj.Wait(ctx, &q.mu, w, q.session.deadline(timeout), interrupt)
	switch {
	case err == nil:
		done(telemetry.OutcomeGranted)
	case err == syncobj.ErrTimedOut:
		done(telemetry.OutcomeTimedOut)
	case err == syncobj.ErrRemoved:
		done(telemetry.OutcomeRemoved)
	default:
		done(telemetry.OutcomeInterrupted)
	}
	return translate(err)
}
