// Package telemetry collects lock-free counters for queue construction and
// queue traffic.
package telemetry
