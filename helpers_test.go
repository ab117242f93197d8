package rtqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s := NewSession(append([]Option{WithLogger(nil)}, opts...)...)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func taskContext(name string, priority int) (context.Context, *Task) {
	task := NewTask(name, priority)
	return WithTask(context.Background(), task), task
}

func mustCreate(t *testing.T, s *Session, name string, poolSize, limit int, mode Mode) *Queue {
	t.Helper()
	q, err := s.Create(context.Background(), name, poolSize, limit, mode)
	require.NoError(t, err)
	return q
}

func mustInquire(t *testing.T, q *Queue) Info {
	t.Helper()
	info, err := q.Inquire()
	require.NoError(t, err)
	return info
}

func waitForWaiters(t *testing.T, q *Queue, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		info, err := q.Inquire()
		return err == nil && info.Waiters == n
	}, 2*time.Second, time.Millisecond, "expected %d waiters", n)
}

type result struct {
	name string
	data string
	err  error
}
