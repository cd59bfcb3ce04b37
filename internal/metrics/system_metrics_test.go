package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCollectSamplesProcessGauges(t *testing.T) {
	mm := GetInstance()
	mm.InitializeMetrics()
	mm.InitializeMetrics()

	mm.collect()

	assert.Greater(t, testutil.ToFloat64(mm.process.WithLabelValues("heap_alloc_bytes")), 0.0)
	assert.Same(t, mm.registry, Registry())
}

func TestStartSystemMetricsDisabled(t *testing.T) {
	t.Setenv("ENABLE_SYSTEM_METRICS", "")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.NotPanics(t, func() {
		StartSystemMetrics(ctx, time.Millisecond)
	})
}
