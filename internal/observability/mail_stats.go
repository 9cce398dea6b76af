package observability

import (
	"sync/atomic"
	"time"
)

// MailStats are in-process counters the worker logs on shutdown, next to the
// Prometheus series.
type MailStats struct {
	received atomic.Uint64
	sent     atomic.Uint64
	retried  atomic.Uint64
	dropped  atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewMailStats() *MailStats {
	return &MailStats{}
}

func (m *MailStats) IncReceived() {
	m.received.Add(1)
}

func (m *MailStats) IncSent() {
	m.sent.Add(1)
}

func (m *MailStats) IncRetried() {
	m.retried.Add(1)
}

func (m *MailStats) IncDropped() {
	m.dropped.Add(1)
}

func (m *MailStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	m.durationCount.Add(1)
	m.durationTotal.Add(ns)

	for {
		curr := m.durationMax.Load()

		if ns <= curr {
			return
		}

		if m.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type MailStatsSnapshot struct {
	Received        uint64
	Sent            uint64
	Retried         uint64
	Dropped         uint64
	DurationCount   uint64
	AverageDuration time.Duration
	MaxDuration     time.Duration
}

func (m *MailStats) Snapshot() MailStatsSnapshot {
	count := m.durationCount.Load()
	total := m.durationTotal.Load()

	var avg time.Duration
	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return MailStatsSnapshot{
		Received:        m.received.Load(),
		Sent:            m.sent.Load(),
		Retried:         m.retried.Load(),
		Dropped:         m.dropped.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(m.durationMax.Load()),
	}
}
