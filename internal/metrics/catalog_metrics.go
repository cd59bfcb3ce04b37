package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	catalogOperationDuration *prometheus.HistogramVec
	catalogOperationsTotal   *prometheus.CounterVec
	loginAttemptsTotal       *prometheus.CounterVec
	approvalsTotal           *prometheus.CounterVec
	backfillPatchedTotal     prometheus.Counter
	ingestDocumentsTotal     *prometheus.CounterVec
	ingestDuration           *prometheus.HistogramVec
	catalogMetricsOnce       sync.Once
)

func initializeCatalogMetrics() {
	catalogMetricsOnce.Do(func() {
		catalogOperationDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "catalog_operation_duration_seconds",
				Help:    "Time spent in catalog store operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		)

		catalogOperationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_operations_total",
				Help: "Total number of catalog store operations",
			},
			[]string{"operation", "status"},
		)

		loginAttemptsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "admin_login_attempts_total",
				Help: "Admin login attempts by outcome",
			},
			[]string{"result"}, // "success", "invalid_credentials", "locked_out", "error"
		)

		approvalsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "request_approvals_total",
				Help: "Request approvals by outcome",
			},
			[]string{"result"}, // "created", "resumed", "failed"
		)

		backfillPatchedTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "visibility_backfill_patched_total",
				Help: "Items patched with a default visibility flag",
			},
		)

		ingestDocumentsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ingest_documents_total",
				Help: "Documents processed by catalog ingest",
			},
			[]string{"collection", "result"},
		)

		ingestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ingest_duration_seconds",
				Help:    "Time spent ingesting a catalog bundle",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		)

		GetInstance().registry.MustRegister(
			catalogOperationDuration,
			catalogOperationsTotal,
			loginAttemptsTotal,
			approvalsTotal,
			backfillPatchedTotal,
			ingestDocumentsTotal,
			ingestDuration,
		)
	})
}

// RecordCatalogOperation records the outcome and latency of a store operation
func RecordCatalogOperation(operation string, start time.Time, err error) {
	if !businessMetricsEnabled() {
		return
	}
	initializeCatalogMetrics()

	status := "success"
	if err != nil {
		status = "failed"
	}
	catalogOperationDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	catalogOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordLoginAttempt records an admin login outcome
func RecordLoginAttempt(result string) {
	if !businessMetricsEnabled() {
		return
	}
	initializeCatalogMetrics()
	loginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordApproval records a request approval outcome
func RecordApproval(result string) {
	if !businessMetricsEnabled() {
		return
	}
	initializeCatalogMetrics()
	approvalsTotal.WithLabelValues(result).Inc()
}

// RecordBackfill records how many items a visibility backfill patched
func RecordBackfill(patched int) {
	if !businessMetricsEnabled() {
		return
	}
	initializeCatalogMetrics()
	backfillPatchedTotal.Add(float64(patched))
}

// RecordIngestion records a finished ingest run
func RecordIngestion(collection string, start time.Time, status string, stored, failed int) {
	if !businessMetricsEnabled() {
		return
	}
	initializeCatalogMetrics()

	ingestDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	ingestDocumentsTotal.WithLabelValues(collection, "stored").Add(float64(stored))
	ingestDocumentsTotal.WithLabelValues(collection, "failed").Add(float64(failed))
}
