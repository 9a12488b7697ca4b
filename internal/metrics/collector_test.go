package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	c := NewCollector("outfitflow", reg, zap.NewNop())
	require.NotNil(t, c)
	return c, reg
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestRecordHTTPRequest(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordHTTPRequest("POST", "/api/v1/outfits/suggest", "200", 0.05)
	c.RecordHTTPRequest("POST", "/api/v1/outfits/suggest", "200", 0.08)
	c.RecordHTTPRequest("POST", "/api/v1/outfits/suggest", "429", 0.01)

	ok := c.httpRequestsTotal.WithLabelValues("POST", "/api/v1/outfits/suggest", "200")
	assert.Equal(t, 2.0, testutil.ToFloat64(ok))

	limited := c.httpRequestsTotal.WithLabelValues("POST", "/api/v1/outfits/suggest", "429")
	assert.Equal(t, 1.0, testutil.ToFloat64(limited))
}

func TestRecordDedup(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordDedup(true)
	c.RecordDedup(true)
	c.RecordDedup(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.dedupTotal.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dedupTotal.WithLabelValues("miss")))
}

func TestRecordFlush(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordFlush("timer")
	c.RecordFlush("priority")
	c.RecordFlush("priority")
	c.RecordFlush("size")

	assert.Equal(t, 1.0, testutil.ToFloat64(c.flushesTotal.WithLabelValues("timer")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.flushesTotal.WithLabelValues("priority")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.flushesTotal.WithLabelValues("size")))
}

func TestRecordUpstreamCall(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordUpstreamCall("combined", nil)
	c.RecordUpstreamCall("combined", errors.New("boom"))
	c.RecordUpstreamCall("single", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues("combined", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues("combined", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upstreamCalls.WithLabelValues("single", "ok")))
}

func TestRecordDispatchCountsWaiters(t *testing.T) {
	c, _ := newTestCollector(t)

	// One record can carry several deduplicated waiters.
	c.RecordDispatch(true, 3)
	c.RecordDispatch(false, 2)

	assert.Equal(t, 3.0, testutil.ToFloat64(c.dispatchedTotal.WithLabelValues("resolved")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.dispatchedTotal.WithLabelValues("rejected")))
}

func TestRecordCounters(t *testing.T) {
	c, _ := newTestCollector(t)

	c.RecordSplit("exact")
	c.RecordSplit("broadcast")
	c.RecordSplit("exact")
	c.RecordFallbackPayload()
	c.RecordCacheWriteFailure()
	c.RecordCacheWriteFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.splitOutcomes.WithLabelValues("exact")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.splitOutcomes.WithLabelValues("broadcast")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fallbackPayloads))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheWriteFailures))
}

func TestRecordSubBatchObservations(t *testing.T) {
	c, reg := newTestCollector(t)

	c.RecordSubBatch(3, 1200)
	c.RecordSubBatch(5, 4800)

	// Both histograms are registered and collect samples.
	n, err := testutil.GatherAndCount(reg,
		"outfitflow_batch_subbatch_size",
		"outfitflow_batch_subbatch_estimated_tokens",
	)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestIsolatedRegistriesDoNotConflict(t *testing.T) {
	// Two collectors with the same namespace must not panic when
	// each gets its own registry.
	_ = NewCollector("outfitflow", prometheus.NewRegistry(), zap.NewNop())
	_ = NewCollector("outfitflow", prometheus.NewRegistry(), zap.NewNop())
}
