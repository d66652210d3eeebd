// Package metrics 将分层缓存统计导出为 Prometheus 指标
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"vrcache/pkg/cache"
)

// Namespace 指标名前缀
const Namespace = "vrcache"

// StatsSource 提供分层统计的缓存，*cache.Tiered 满足此接口
type StatsSource interface {
	GetStats() []cache.TierStats
	Promotions() int64
}

type tierMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(cache.Stats) float64
}

// Collector 在每次抓取时读取缓存统计，不在内部保存计数
type Collector struct {
	source     StatsSource
	tier       []tierMetric
	promotions *prometheus.Desc
}

// NewCollector 创建指标收集器
func NewCollector(source StatsSource) *Collector {
	labels := []string{"tier", "store"}
	gauge := func(name, help string, value func(cache.Stats) float64) tierMetric {
		return tierMetric{
			desc:      prometheus.NewDesc(prometheus.BuildFQName(Namespace, "", name), help, labels, nil),
			valueType: prometheus.GaugeValue,
			value:     value,
		}
	}
	counter := func(name, help string, value func(cache.Stats) float64) tierMetric {
		m := gauge(name, help, value)
		m.valueType = prometheus.CounterValue
		return m
	}

	return &Collector{
		source: source,
		tier: []tierMetric{
			gauge("entries", "Number of live entries in the tier.", func(s cache.Stats) float64 { return float64(s.Size) }),
			gauge("memory_bytes", "Estimated bytes held by the tier.", func(s cache.Stats) float64 { return float64(s.MemoryUsed) }),
			gauge("max_entries", "Configured entry limit of the tier.", func(s cache.Stats) float64 { return float64(s.MaxSize) }),
			gauge("max_memory_bytes", "Configured memory limit of the tier.", func(s cache.Stats) float64 { return float64(s.MaxMemory) }),
			gauge("hit_ratio", "Hits divided by hits plus misses.", func(s cache.Stats) float64 { return s.HitRate }),
			counter("hits_total", "Lookups that found a live entry.", func(s cache.Stats) float64 { return float64(s.Hits) }),
			counter("misses_total", "Lookups that found nothing.", func(s cache.Stats) float64 { return float64(s.Misses) }),
			counter("sets_total", "Accepted writes.", func(s cache.Stats) float64 { return float64(s.Sets) }),
			counter("evictions_total", "Entries removed to satisfy limits.", func(s cache.Stats) float64 { return float64(s.Evictions) }),
			counter("invalidations_total", "Entries removed by pattern invalidation.", func(s cache.Stats) float64 { return float64(s.Invalidations) }),
			counter("expirations_total", "Entries removed after their TTL elapsed.", func(s cache.Stats) float64 { return float64(s.Expirations) }),
		},
		promotions: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "", "promotions_total"),
			"Lower-tier hits copied into faster tiers.",
			nil, nil,
		),
	}
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.tier {
		ch <- m.desc
	}
	ch <- c.promotions
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.source.GetStats() {
		tier := strconv.Itoa(st.Tier)
		for _, m := range c.tier {
			ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(st.Stats), tier, st.Name)
		}
	}
	ch <- prometheus.MustNewConstMetric(c.promotions, prometheus.CounterValue, float64(c.source.Promotions()))
}

// NewRegistry 创建包含缓存指标和 Go 运行时指标的独立注册表
func NewRegistry(source StatsSource) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		NewCollector(source),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

var _ prometheus.Collector = (*Collector)(nil)
