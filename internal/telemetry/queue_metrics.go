package telemetry

import (
	"sync/atomic"
	"time"
)

// Outcome klassifiziert das Ende eines Warteaufrufs.
type Outcome int

const (
	OutcomeGranted Outcome = iota
	OutcomeTimedOut
	OutcomeInterrupted
	OutcomeRemoved
)

// QueueMetrics zählt die Operationen einer einzelnen Queue. Alle Felder sind
// atomar und dürfen ohne den Monitor der Queue gelesen werden.
type QueueMetrics struct {
	sends      atomic.Uint64
	writes     atomic.Uint64
	fastCopies atomic.Uint64
	receives   atomic.Uint64
	reads      atomic.Uint64
	fanout     atomic.Uint64
	flushed    atomic.Uint64
	waits      atomic.Uint64
	granted    atomic.Uint64
	timeouts   atomic.Uint64
	interrupts atomic.Uint64
	removals   atomic.Uint64
	waitNanos  atomic.Int64
}

// QueueSnapshot ist eine Momentaufnahme von QueueMetrics.
type QueueSnapshot struct {
	Sends           uint64
	Writes          uint64
	FastPathCopies  uint64
	Receives        uint64
	Reads           uint64
	BroadcastFanout uint64
	Flushed         uint64
	Waits           uint64
	Granted         uint64
	Timeouts        uint64
	Interrupts      uint64
	Removals        uint64
	AverageWait     time.Duration
}

// RecordSend zählt einen Send-Aufruf und die Zahl der direkt belieferten Empfänger.
func (m *QueueMetrics) RecordSend(woken int, broadcast bool) {
	m.sends.Add(1)
	if broadcast {
		m.fanout.Add(uint64(woken))
	}
}

// RecordWrite zählt einen Write-Aufruf.
func (m *QueueMetrics) RecordWrite(woken int, broadcast, fastPath bool) {
	m.writes.Add(1)
	if fastPath {
		m.fastCopies.Add(1)
	}
	if broadcast {
		m.fanout.Add(uint64(woken))
	}
}

// RecordReceive zählt eine erfolgreiche Entnahme per Receive.
func (m *QueueMetrics) RecordReceive() { m.receives.Add(1) }

// RecordRead zählt eine erfolgreiche Entnahme per Read.
func (m *QueueMetrics) RecordRead() { m.reads.Add(1) }

// RecordFlush zählt verworfene Nachrichten.
func (m *QueueMetrics) RecordFlush(n int) { m.flushed.Add(uint64(n)) }

// TraceWait startet die Messung eines blockierenden Aufrufs.
func (m *QueueMetrics) TraceWait() func(Outcome) {
	start := time.Now()
	m.waits.Add(1)
	return func(o Outcome) {
		m.waitNanos.Add(time.Since(start).Nanoseconds())
		switch o {
		case OutcomeGranted:
			m.granted.Add(1)
		case OutcomeTimedOut:
			m.timeouts.Add(1)
		case OutcomeInterrupted:
			m.interrupts.Add(1)
		case OutcomeRemoved:
			m.removals.Add(1)
		}
	}
}

// Snapshot gibt die gesammelten Werte zurück.
func (m *QueueMetrics) Snapshot() QueueSnapshot {
	s := QueueSnapshot{
		Sends:           m.sends.Load(),
		Writes:          m.writes.Load(),
		FastPathCopies:  m.fastCopies.Load(),
		Receives:        m.receives.Load(),
		Reads:           m.reads.Load(),
		BroadcastFanout: m.fanout.Load(),
		Flushed:         m.flushed.Load(),
		Waits:           m.waits.Load(),
		Granted:         m.granted.Load(),
		Timeouts:        m.timeouts.Load(),
		Interrupts:      m.interrupts.Load(),
		Removals:        m.removals.Load(),
	}
	if s.Waits > 0 {
		s.AverageWait = time.Duration(m.waitNanos.Load() / int64(s.Waits))
	}
	return s
}
