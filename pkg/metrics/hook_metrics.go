package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const hookMetricSubsystem = "hook"

var (
	SerializeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: jsonhookNamespace,
			Subsystem: hookMetricSubsystem,
			Name:      "serialize_total",
			Help:      "按类型与结果统计的自定义序列化回调次数",
		}, []string{typeLabelName, resultLabelName})

	SerializeLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: jsonhookNamespace,
			Subsystem: hookMetricSubsystem,
			Name:      "serialize_latency",
			Help:      "单次自定义序列化回调耗时，单位微秒",
			Buckets:   microBuckets,
		}, []string{typeLabelName})

	RegisteredTypes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: jsonhookNamespace,
			Subsystem: hookMetricSubsystem,
			Name:      "registered_types",
			Help:      "每个 Module 中注册了自定义序列化的类型数量",
		}, []string{moduleLabelName})
)

// ObserveSerialize 记录一次序列化回调的结果与耗时。
// 未配置的 Adapter 不计入耗时。
func ObserveSerialize(typeName string, result string, start time.Time) {
	SerializeTotal.WithLabelValues(typeName, result).Inc()
	if result == UnconfiguredLabel {
		return
	}
	SerializeLatency.WithLabelValues(typeName).Observe(float64(time.Since(start).Microseconds()))
}
