package list

type node[T any] struct {
	value T
	prev  *node[T]
	next  *node[T]
}

// List is a doubly linked sequence. The zero value is an empty list.
type List[T any] struct {
	head *node[T]
	tail *node[T]
	len  int
}

// Len returns the number of linked nodes.
func (l *List[T]) Len() int { return l.len }

// PushBack appends value.
func (l *List[T]) PushBack(value T) {
	n := &node[T]{value: value}
	if l.len == 0 {
		l.head = n
		l.tail = n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.len++
}

// PushFront prepends value.
func (l *List[T]) PushFront(value T) {
	n := &node[T]{value: value}
	if l.len == 0 {
		l.head = n
		l.tail = n
	} else {
		n.next = l.head
		l.head.prev = n
		l.head = n
	}
	l.len++
}

// PopFront unlinks and returns the head value.
func (l *List[T]) PopFront() (zero T, _ bool) {
	if l.len == 0 {
		return zero, false
	}
	n := l.head
	l.head = n.next
	if l.head != nil {
		l.head.prev = nil
	} else {
		l.tail = nil
	}
	n.next = nil
	l.len--
	return n.value, true
}

// Drain unlinks every node, head first, passing each value to fn, and
// returns how many were removed.
func (l *List[T]) Drain(fn func(T)) int {
	count := 0
	for l.len > 0 {
		v, _ := l.PopFront()
		if fn != nil {
			fn(v)
		}
		count++
	}
	return count
}
