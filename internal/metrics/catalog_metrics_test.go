package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordCatalogOperation(t *testing.T) {
	t.Setenv("ENABLE_BUSINESS_METRICS", "true")

	RecordCatalogOperation("metrics_test_op", time.Now(), nil)
	RecordCatalogOperation("metrics_test_op", time.Now(), nil)
	RecordCatalogOperation("metrics_test_op", time.Now(), errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(catalogOperationsTotal.WithLabelValues("metrics_test_op", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(catalogOperationsTotal.WithLabelValues("metrics_test_op", "failed")))
}

func TestRecordersAreNoopsWhenDisabled(t *testing.T) {
	t.Setenv("ENABLE_BUSINESS_METRICS", "false")

	assert.NotPanics(t, func() {
		RecordLoginAttempt("success")
		RecordApproval("created")
		RecordBackfill(3)
		RecordIngestion("locations", time.Now(), "success", 1, 0)
		RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	})
}
