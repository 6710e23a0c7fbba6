package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// initVaultMetrics initializes secure-store metrics.
func (m *Manager) initVaultMetrics(cfg Config) {
	m.opTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_operations_total",
			Help: "Total number of store operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	m.opDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_operation_duration_seconds",
			Help:    "Store operation duration in seconds",
			Buckets: cfg.OpDurationBuckets,
		},
		[]string{"operation"},
	)

	m.dedupHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_dedup_hits_total",
			Help: "Total number of store calls resolved by content deduplication",
		},
	)

	m.denials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_denials_total",
			Help: "Total number of denied reads by internal reason",
		},
		[]string{"reason"},
	)

	m.purgeRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_purge_removed_total",
			Help: "Total number of expired entries removed by the purge sweep",
		},
	)

	m.purgeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "vault_purge_duration_seconds",
			Help:    "Purge sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	m.auditRecords = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_audit_records_total",
			Help: "Total number of audit records appended",
		},
	)

	m.auditFlushes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_audit_flushes_total",
			Help: "Total number of audit log flushes to storage",
		},
	)

	m.cacheHitRate = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_cache_hit_rate",
			Help: "Encrypted-entry cache hit rate (0.0-1.0)",
		},
	)

	m.registry.MustRegister(m.opTotal)
	m.registry.MustRegister(m.opDuration)
	m.registry.MustRegister(m.dedupHits)
	m.registry.MustRegister(m.denials)
	m.registry.MustRegister(m.purgeRemoved)
	m.registry.MustRegister(m.purgeDuration)
	m.registry.MustRegister(m.auditRecords)
	m.registry.MustRegister(m.auditFlushes)
	m.registry.MustRegister(m.cacheHitRate)
}

// RecordOperation records one store operation outcome with its duration.
func (m *Manager) RecordOperation(operation string, success bool, duration time.Duration) {
	if !m.enabled {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	m.opTotal.WithLabelValues(operation, status).Inc()
	m.opDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDedupHit records a store call resolved by deduplication.
func (m *Manager) RecordDedupHit() {
	if !m.enabled {
		return
	}
	m.dedupHits.Inc()
}

// RecordDenied records a denied read by internal reason.
func (m *Manager) RecordDenied(reason string) {
	if !m.enabled {
		return
	}
	m.denials.WithLabelValues(reason).Inc()
}

// RecordPurge records one purge sweep.
func (m *Manager) RecordPurge(removed int, duration time.Duration) {
	if !m.enabled {
		return
	}
	m.purgeRemoved.Add(float64(removed))
	m.purgeDuration.Observe(duration.Seconds())
}

// RecordAuditRecord records one audit append.
func (m *Manager) RecordAuditRecord() {
	if !m.enabled {
		return
	}
	m.auditRecords.Inc()
}

// RecordAuditFlush records one audit log flush.
func (m *Manager) RecordAuditFlush() {
	if !m.enabled {
		return
	}
	m.auditFlushes.Inc()
}

// SetCacheHitRate publishes the current cache hit rate.
func (m *Manager) SetCacheHitRate(rate float64) {
	if !m.enabled {
		return
	}
	m.cacheHitRate.Set(rate)
}
