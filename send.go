package rtqueue

// Alloc reserves a message able to carry size bytes. It never blocks.
func (h *Queue) Alloc(size int) (*Message, error) {
	if size < 0 {
		return nil, ErrInvalidArgument
	}
	q, err := h.lock()
	if err != nil {
		return nil, err
	}
	defer q.mu.Unlock()

	m, err := q.alloc(size)
	if err != nil {
		return nil, err
	}
	m.refs = 1
	return m, nil
}

// Free drops the caller's reference to m. The message returns to the pool
// when the last reference goes.
func (h *Queue) Free(m *Message) error {
	q, err := h.lock()
	if err != nil {
		return err
	}
	defer q.mu.Unlock()

	if !q.owns(m) || m.refs == 0 {
		q.session.log.Warning().
			Str("queue", q.name).
			Log("free of a message that is not held")
		return ErrInvalid
	}
	q.release(m)
	return nil
}

// Send hands m over to the queue with a payload of size bytes. Waiting
// tasks are served first: one, or all of them with Broadcast. Without
// waiters the message is queued, at the head with Urgent. Broadcast
// messages are never queued and the sender keeps its reference.
//
// Send returns the number of tasks woken.
func (h *Queue) Send(m *Message, size int, mode SendMode) (int, error) {
	if mode&^(Urgent|Broadcast) != 0 {
		return 0, ErrInvalidArgument
	}
	q, err := h.lock()
	if err != nil {
		return 0, err
	}
	defer q.mu.Unlock()

	if !q.owns(m) {
		return 0, ErrInvalid
	}
	if size < 0 || size > m.Cap() {
		return 0, ErrInvalidArgument
	}
	broadcast := mode&Broadcast != 0
	if !broadcast && q.sobj.CountGrant() == 0 && q.full() {
		return 0, ErrNoMemory
	}
	if m.refs == 0 {
		return 0, ErrInvalid
	}

	m.refs--
	m.size = size

	woken := q.dispatch(m, mode)
	switch {
	case broadcast:
		m.refs++
	case woken == 0:
		q.enqueue(m, mode)
	}
	q.metrics.RecordSend(woken, broadcast)
	return woken, nil
}

// Write copies data into a new message and sends it like Send. A task
// blocked in Read at the head of the wait queue gets the data copied
// straight into its buffer, truncated to fit. Broadcasting with nobody
// waiting drops the data. Empty data is ignored.
//
// Write returns the number of tasks woken.
func (h *Queue) Write(data []byte, mode SendMode) (int, error) {
	if mode&^(Urgent|Broadcast) != 0 {
		return 0, ErrInvalidArgument
	}
	if len(data) == 0 {
		return 0, nil
	}
	q, err := h.lock()
	if err != nil {
		return 0, err
	}
	defer q.mu.Unlock()

	broadcast := mode&Broadcast != 0
	if w := q.sobj.PeekGrant(); w != nil && len(w.Data.buf) > 0 {
		w.Data.n = copy(w.Data.buf, data)
		q.sobj.GrantTo(w)
		q.metrics.RecordWrite(1, broadcast, true)
		return 1, nil
	}

	waiters := q.sobj.CountGrant()
	if waiters == 0 {
		if broadcast {
			return 0, nil
		}
		if q.full() {
			return 0, ErrNoMemory
		}
	}

	m, err := q.alloc(len(data))
	if err != nil {
		return 0, err
	}
	copy(m.data, data)

	if waiters == 0 {
		q.enqueue(m, mode)
		q.metrics.RecordWrite(0, broadcast, false)
		return 0, nil
	}
	woken := q.dispatch(m, mode)
	q.metrics.RecordWrite(woken, broadcast, false)
	return woken, nil
}
