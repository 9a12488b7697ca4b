// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 批处理核心与 HTTP 层的指标收集器。
type Collector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 批处理指标
	dedupTotal        *prometheus.CounterVec // hit / miss
	flushesTotal      *prometheus.CounterVec // trigger: timer / priority / size / shutdown
	subBatchSize      prometheus.Histogram
	subBatchTokens    prometheus.Histogram
	upstreamCalls     *prometheus.CounterVec // mode: single / combined / fallback
	splitOutcomes     *prometheus.CounterVec // outcome: exact / truncated / broadcast / reexec
	dispatchedTotal   *prometheus.CounterVec // status: resolved / rejected
	fallbackPayloads  prometheus.Counter

	// 缓存指标
	cacheWriteFailures prometheus.Counter

	logger *zap.Logger
}

// NewCollector 创建指标收集器并注册到给定 Registerer。
// 测试传入独立的 prometheus.NewRegistry() 避免重复注册。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.dedupTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_dedup_total",
			Help:      "Enqueue outcomes by dedup result",
		},
		[]string{"result"},
	)

	c.flushesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_flushes_total",
			Help:      "Flush cycles by trigger",
		},
		[]string{"trigger"},
	)

	c.subBatchSize = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_subbatch_size",
			Help:      "Number of records per sub-batch",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		},
	)

	c.subBatchTokens = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_subbatch_estimated_tokens",
			Help:      "Estimated token cost per sub-batch",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 8),
		},
	)

	c.upstreamCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_upstream_calls_total",
			Help:      "Upstream generation calls by mode",
		},
		[]string{"mode", "status"},
	)

	c.splitOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_split_outcomes_total",
			Help:      "Combined response split outcomes",
		},
		[]string{"outcome"},
	)

	c.dispatchedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_dispatched_total",
			Help:      "Waiter dispatch outcomes",
		},
		[]string{"status"},
	)

	c.fallbackPayloads = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_fallback_payloads_total",
			Help:      "Results substituted with the deterministic fallback payload",
		},
	)

	c.cacheWriteFailures = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_write_failures_total",
			Help:      "Best-effort result cache writes that failed",
		},
	)

	return c
}

// =============================================================================
// 🎯 记录方法
// =============================================================================

// RecordHTTPRequest 记录一次 HTTP 请求。
func (c *Collector) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordDedup 记录一次入队的去重结果。
func (c *Collector) RecordDedup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.dedupTotal.WithLabelValues(result).Inc()
}

// RecordFlush 记录一次 flush 周期及触发原因。
func (c *Collector) RecordFlush(trigger string) {
	c.flushesTotal.WithLabelValues(trigger).Inc()
}

// RecordSubBatch 记录一个子批的规模与预算占用。
func (c *Collector) RecordSubBatch(size, estTokens int) {
	c.subBatchSize.Observe(float64(size))
	c.subBatchTokens.Observe(float64(estTokens))
}

// RecordUpstreamCall 记录一次上游调用。
func (c *Collector) RecordUpstreamCall(mode string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.upstreamCalls.WithLabelValues(mode, status).Inc()
}

// RecordSplit 记录合并响应的切分结局。
func (c *Collector) RecordSplit(outcome string) {
	c.splitOutcomes.WithLabelValues(outcome).Inc()
}

// RecordDispatch 记录派发结果。
func (c *Collector) RecordDispatch(resolved bool, waiters int) {
	status := "rejected"
	if resolved {
		status = "resolved"
	}
	c.dispatchedTotal.WithLabelValues(status).Add(float64(waiters))
}

// RecordFallbackPayload 记录一次兜底内容替换。
func (c *Collector) RecordFallbackPayload() {
	c.fallbackPayloads.Inc()
}

// RecordCacheWriteFailure 记录一次缓存写失败。
func (c *Collector) RecordCacheWriteFailure() {
	c.cacheWriteFailures.Inc()
}
