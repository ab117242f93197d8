// Package rtqueue provides named message queues for exchanging
// variable-length messages between real-time tasks.
//
// A Session holds a namespace of queues. Each queue owns a fixed memory
// pool sized at creation; messages are carved out of it with Alloc and
// handed over with Send, or copied in and out with Write and Read.
// Receivers block until a message arrives, the timeout passes, the task is
// unblocked, or the queue is deleted. Waiting tasks are served in arrival
// order, or by task priority for queues created with Prio.
//
// Messages are reference counted. Send gives up the sender's reference
// unless broadcasting; Broadcast hands one reference to every waiting
// task, and the message returns to the pool when the last one is freed.
// A message sitting in the pending list holds no counted reference and
// cannot be freed.
//
// Blocking calls take a context carrying the calling Task (see WithTask).
// Contexts marked with WithAsync stand for interrupt handlers: they may
// send and poll, but never wait, create or delete.
package rtqueue
