// Package list provides the ordered container holding a queue's pending
// messages. Elements are inserted at either end and always removed from
// the front, so urgent insertion changes where a message lands, never the
// order in which the front is drained.
//
// A List performs no locking of its own. The owning queue serialises every
// call under its monitor.
package list
