package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения метки result для публикации outbox.
const (
	PublishSent       = "sent"
	PublishRetryError = "retry_error"
	PublishFailed     = "failed"
	PublishDLQFailed  = "dlq_failed"
)

// WorkerMetrics содержит метрики фоновых воркеров: outbox и очистки idempotency-ключей.
// Nil-значение безопасно.
type WorkerMetrics struct {
	publishAttempts *prometheus.CounterVec
	pendingRecords  prometheus.Gauge
	oldestPending   prometheus.Gauge

	cleanupRuns        *prometheus.CounterVec
	cleanupDeleted     prometheus.Counter
	cleanupLastDeleted prometheus.Gauge
}

// NewWorkerMetrics создаёт метрики воркеров в DefaultRegisterer.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWithRegisterer создаёт метрики воркеров в указанном registerer.
func NewWorkerMetricsWithRegisterer(registerer prometheus.Registerer) *WorkerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &WorkerMetrics{
		publishAttempts: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "foodcart_outbox_publish_attempts_total",
			Help: "Total number of outbox publish attempts grouped by event type and result.",
		}, []string{"event_type", "result"}),
		pendingRecords: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "foodcart_outbox_pending_records",
			Help: "Current number of pending records in transactional outbox.",
		}),
		oldestPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "foodcart_outbox_oldest_pending_age_seconds",
			Help: "Age in seconds of the oldest pending outbox record.",
		}),
		cleanupRuns: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "foodcart_idempotency_cleanup_runs_total",
			Help: "Total number of idempotency cleanup runs grouped by result.",
		}, []string{"result"}),
		cleanupDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "foodcart_idempotency_cleanup_deleted_total",
			Help: "Total number of deleted expired idempotency records.",
		}),
		cleanupLastDeleted: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "foodcart_idempotency_cleanup_last_deleted",
			Help: "Number of deleted records during the last cleanup run.",
		}),
	}
}

// RecordPublish фиксирует попытку публикации события.
func (m *WorkerMetrics) RecordPublish(eventType, result string) {
	if m == nil {
		return
	}
	m.publishAttempts.WithLabelValues(eventType, result).Inc()
}

// SetOutboxBacklog обновляет размер backlog и возраст самого старого сообщения.
func (m *WorkerMetrics) SetOutboxBacklog(pending int, oldestAge time.Duration) {
	if m == nil {
		return
	}
	if oldestAge < 0 {
		oldestAge = 0
	}
	m.pendingRecords.Set(float64(pending))
	m.oldestPending.Set(oldestAge.Seconds())
}

// RecordCleanupRun фиксирует завершённый цикл очистки.
func (m *WorkerMetrics) RecordCleanupRun(result string, deleted int) {
	if m == nil {
		return
	}
	m.cleanupRuns.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.cleanupLastDeleted.Set(float64(deleted))
	}
}

// AddCleanupDeleted добавляет число удалённых записей.
func (m *WorkerMetrics) AddCleanupDeleted(deleted int) {
	if m == nil || deleted <= 0 {
		return
	}
	m.cleanupDeleted.Add(float64(deleted))
}
