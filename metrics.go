package goAuthFlow

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricSessionCreated counts sessions opened.
	MetricSessionCreated MetricID = iota
	// MetricSessionSucceeded counts sessions finished with every challenge succeeded.
	MetricSessionSucceeded
	// MetricSessionFinishRejected counts finish attempts rejected for incomplete challenges.
	MetricSessionFinishRejected
	// MetricChallengeCreated counts challenge rows created.
	MetricChallengeCreated
	// MetricChallengeSucceeded counts challenges that completed their sequence.
	MetricChallengeSucceeded
	// MetricChallengeAborted counts challenges aborted by a failed message.
	MetricChallengeAborted
	// MetricMessageDrafted counts messages drafted and persisted.
	MetricMessageDrafted
	// MetricMessageOk counts messages resolved Ok.
	MetricMessageOk
	// MetricMessageError counts messages resolved with an error status.
	MetricMessageError
	// MetricUpsertApplied counts batch upserts committed.
	MetricUpsertApplied
	// MetricUpsertRejected counts batch upserts rejected by an integrity guard.
	MetricUpsertRejected
	// MetricIntegrityFailure counts writes rejected by a state integrity
	// guard, wherever they surface: batch upserts, outcome updates, message
	// resolution, session finish.
	MetricIntegrityFailure
	// MetricRateLimitHit counts submissions refused by the attempt limiter.
	MetricRateLimitHit

	metricCount
)

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// Metrics is the lock-free engine counter set.
type Metrics struct {
	counters [metricCount]atomic.Uint64
}

func newMetrics(cfg MetricsConfig) *Metrics {
	if !cfg.Enabled {
		return nil
	}
	return &Metrics{}
}

// Inc adds one to a counter. Safe on a nil receiver (metrics disabled).
func (m *Metrics) Inc(id MetricID) {
	if m == nil || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot copies every counter.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		snap.Counters[id] = m.counters[id].Load()
	}
	return snap
}
