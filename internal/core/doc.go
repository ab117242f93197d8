// Package core sequences the multi-step construction of queue objects.
// Every step that reserves a resource supplies its own undo, so a failure in
// a later step leaves nothing half built.
package core
