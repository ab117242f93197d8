package telemetry

import (
	"sync/atomic"
	"time"
)

// BuildMetrics fasst Messwerte zu Aufbau-Versuchen zusammen.
type BuildMetrics struct {
	totalDuration atomic.Int64
	attempts      atomic.Uint64
	failures      atomic.Uint64
}

// Trace startet eine Messung und liefert eine Abschlussfunktion, die Dauer
// und Fehlerzustand meldet. Ein nil-Empfänger misst nichts.
func (m *BuildMetrics) Trace() func(error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	m.attempts.Add(1)
	return func(err error) {
		m.totalDuration.Add(time.Since(start).Nanoseconds())
		if err != nil {
			m.failures.Add(1)
		}
	}
}

// Snapshot gibt die gesammelten Werte zurück.
func (m *BuildMetrics) Snapshot() (attempts uint64, failures uint64, average time.Duration) {
	attempts = m.attempts.Load()
	failures = m.failures.Load()
	if attempts == 0 {
		return attempts, failures, 0
	}
	average = time.Duration(m.totalDuration.Load() / int64(attempts))
	return attempts, failures, average
}

// Reset setzt alle Zähler zurück.
func (m *BuildMetrics) Reset() {
	m.totalDuration.Store(0)
	m.attempts.Store(0)
	m.failures.Store(0)
}
