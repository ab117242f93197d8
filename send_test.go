package rtqueue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocSendReceiveFree(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "basic", 1024, Unlimited, FIFO)
	ctx, _ := taskContext("rx", 1)

	m, err := q.Alloc(5)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Size())
	assert.GreaterOrEqual(t, m.Cap(), 5)
	copy(m.Bytes(), "hello")

	woken, err := q.Send(m, 5, Normal)
	require.NoError(t, err)
	assert.Equal(t, 0, woken)
	assert.Equal(t, 1, mustInquire(t, q).Messages)

	got, err := q.Receive(ctx, NonBlock)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got.Bytes()))
	assert.Equal(t, 0, mustInquire(t, q).Messages)

	require.NoError(t, q.Free(got))
	assert.Equal(t, 0, mustInquire(t, q).UsedMem)
}

func TestAllocRejectsBadSizes(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "sizes", 1024, Unlimited, FIFO)

	_, err := q.Alloc(-1)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = q.Alloc(4096)
	require.ErrorIs(t, err, ErrNoMemory)
}

func TestPoolExhaustion(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "tight", 128, Unlimited, FIFO)

	// 128 + 6 slack rounds to 136 bytes, four 32 byte envelopes
	var held []*Message
	for {
		m, err := q.Alloc(0)
		if err != nil {
			require.ErrorIs(t, err, ErrNoMemory)
			break
		}
		held = append(held, m)
	}
	assert.Len(t, held, 4)

	require.NoError(t, q.Free(held[0]))
	_, err := q.Alloc(0)
	require.NoError(t, err)
}

func TestLimitInvariant(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "limited", 256, 2, FIFO)

	for i := 0; i < 2; i++ {
		_, err := q.Write([]byte{byte(i)}, Normal)
		require.NoError(t, err)
	}
	_, err := q.Write([]byte{2}, Normal)
	require.ErrorIs(t, err, ErrNoMemory)
	_, err = q.Alloc(1)
	require.ErrorIs(t, err, ErrNoMemory)
	assert.Equal(t, 2, mustInquire(t, q).Messages)

	buf := make([]byte, 1)
	n, err := q.Read(context.Background(), buf, NonBlock)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	assert.Equal(t, byte(0), buf[0])

	_, err = q.Write([]byte{3}, Normal)
	require.NoError(t, err)
	assert.Equal(t, 2, mustInquire(t, q).Messages)
}

func TestSendLimitCheck(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "send-limit", 256, 2, FIFO)
	state := q.q.Load()

	m, err := q.Alloc(1)
	require.NoError(t, err)

	// shrink the limit below the blocks the pool can hand out
	state.mu.Lock()
	state.limit = 1
	state.mu.Unlock()

	_, err = q.Write([]byte("x"), Normal)
	require.NoError(t, err)
	_, err = q.Send(m, 1, Normal)
	require.ErrorIs(t, err, ErrNoMemory)

	// a failed send leaves the caller's reference intact
	require.NoError(t, q.Free(m))
}

func TestConservation(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "conserve", 4096, Unlimited, FIFO)
	ctx, _ := taskContext("rx", 1)

	for round := 0; round < 3; round++ {
		for i := 0; i < 10; i++ {
			m, err := q.Alloc(i * 7)
			require.NoError(t, err)
			_, err = q.Send(m, i*7, Normal)
			require.NoError(t, err)
		}
		for i := 0; i < 10; i++ {
			m, err := q.Receive(ctx, NonBlock)
			require.NoError(t, err)
			assert.Equal(t, i*7, m.Size())
			require.NoError(t, q.Free(m))
		}
		assert.Equal(t, 0, mustInquire(t, q).UsedMem)
	}
}

func TestNoDoubleFree(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "double", 1024, Unlimited, FIFO)
	other := mustCreate(t, s, "other", 1024, Unlimited, FIFO)

	m, err := q.Alloc(8)
	require.NoError(t, err)
	require.ErrorIs(t, other.Free(m), ErrInvalid)
	require.NoError(t, q.Free(m))
	require.ErrorIs(t, q.Free(m), ErrInvalid)
	require.ErrorIs(t, q.Free(nil), ErrInvalid)

	// the block is reused, the old handle stays dead
	reused, err := q.Alloc(8)
	require.NoError(t, err)
	require.ErrorIs(t, q.Free(m), ErrInvalid)
	require.NoError(t, q.Free(reused))

	// queued messages are held by the queue
	queued, err := q.Alloc(8)
	require.NoError(t, err)
	_, err = q.Send(queued, 8, Normal)
	require.NoError(t, err)
	require.ErrorIs(t, q.Free(queued), ErrInvalid)
	_, err = q.Send(queued, 8, Normal)
	require.ErrorIs(t, err, ErrInvalid)
	assert.Equal(t, 1, mustInquire(t, q).Messages)
}

func TestSendRejectsBadArguments(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "args", 1024, Unlimited, FIFO)

	m, err := q.Alloc(8)
	require.NoError(t, err)

	_, err = q.Send(m, m.Cap()+1, Normal)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = q.Send(m, -1, Normal)
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = q.Send(m, 8, SendMode(8))
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = q.Write([]byte("x"), SendMode(8))
	require.ErrorIs(t, err, ErrInvalidArgument)
	_, err = q.Send(nil, 0, Normal)
	require.ErrorIs(t, err, ErrInvalid)

	require.NoError(t, q.Free(m))
}

func TestUrgentMessagesGoFirst(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "urgent", 1024, Unlimited, FIFO)

	_, err := q.Write([]byte("A"), Normal)
	require.NoError(t, err)
	_, err = q.Write([]byte("B"), Urgent)
	require.NoError(t, err)

	buf := make([]byte, 4)
	var order []string
	for i := 0; i < 2; i++ {
		n, err := q.Read(context.Background(), buf, NonBlock)
		require.NoError(t, err)
		order = append(order, string(buf[:n]))
	}
	assert.Equal(t, []string{"B", "A"}, order)
}

func TestZeroSizeRoundTrip(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "zero", 1024, Unlimited, FIFO)
	ctx, _ := taskContext("rx", 1)

	m, err := q.Alloc(0)
	require.NoError(t, err)
	_, err = q.Send(m, 0, Normal)
	require.NoError(t, err)

	got, err := q.Receive(ctx, NonBlock)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Size())
	assert.Empty(t, got.Bytes())
	require.NoError(t, q.Free(got))

	n, err := q.Write(nil, Normal)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 0, mustInquire(t, q).Messages)
}

func TestNonBlockingContract(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "poll", 1024, Unlimited, FIFO)
	bare := context.Background()
	async := WithAsync(WithTask(bare, NewTask("isr", 99)))

	_, err := q.Receive(bare, NonBlock)
	require.ErrorIs(t, err, ErrWouldBlock)
	_, err = q.Read(async, make([]byte, 1), NonBlock)
	require.ErrorIs(t, err, ErrWouldBlock)

	_, err = q.Receive(bare, Infinite)
	require.ErrorIs(t, err, ErrPermission)
	_, err = q.Receive(async, 0)
	require.ErrorIs(t, err, ErrPermission)
	_, err = q.Read(async, nil, 10)
	require.ErrorIs(t, err, ErrPermission)

	// async callers may still send
	_, err = q.Write([]byte("from isr"), Normal)
	require.NoError(t, err)
	buf := make([]byte, 16)
	n, err := q.Read(async, buf, NonBlock)
	require.NoError(t, err)
	assert.Equal(t, "from isr", string(buf[:n]))

	n, err = q.Read(bare, nil, NonBlock)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestReadTruncatesAndReleases(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "truncate", 1024, Unlimited, FIFO)

	_, err := q.Write([]byte("abcdef"), Normal)
	require.NoError(t, err)

	buf := make([]byte, 3)
	n, err := q.Read(context.Background(), buf, NonBlock)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, "abc", string(buf))
	assert.Equal(t, 0, mustInquire(t, q).UsedMem)
}

func TestBroadcastWithoutWaiters(t *testing.T) {
	s := newTestSession(t)
	q := mustCreate(t, s, "lonely", 1024, Unlimited, FIFO)

	n, err := q.Write([]byte("nobody"), Broadcast)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	m, err := q.Alloc(6)
	require.NoError(t, err)
	n, err = q.Send(m, 6, Broadcast)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	info := mustInquire(t, q)
	assert.Equal(t, 0, info.Messages)
	assert.Equal(t, 40, info.UsedMem, "the sender still holds the message")

	require.NoError(t, q.Free(m))
	assert.Equal(t, 0, mustInquire(t, q).UsedMem)
}
