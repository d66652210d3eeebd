package cache

import (
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSweepInterval 未配置清扫间隔时使用的默认值
const DefaultSweepInterval = time.Minute

// StoreConfig 单层缓存配置
type StoreConfig struct {
	Name          string          `mapstructure:"name" yaml:"name" json:"name"`
	MaxSize       int             `mapstructure:"max_size" yaml:"max_size" json:"max_size"`                   // 最大条目数
	MaxMemory     int64           `mapstructure:"max_memory" yaml:"max_memory" json:"max_memory"`             // 最大内存（字节）
	DefaultTTL    time.Duration   `mapstructure:"default_ttl" yaml:"default_ttl" json:"default_ttl"`          // 默认TTL，0 表示永不过期
	Strategy      Strategy        `mapstructure:"strategy" yaml:"strategy" json:"strategy"`                   // 淘汰策略，为空时使用 lru
	SweepInterval time.Duration   `mapstructure:"sweep_interval" yaml:"sweep_interval" json:"sweep_interval"` // 清扫间隔，0 表示默认值
	Adaptive      AdaptiveWeights `mapstructure:"adaptive" yaml:"adaptive" json:"adaptive"`                   // adaptive 策略权重
}

// AdaptiveWeights adaptive 策略打分权重，全部为零时使用默认权重。
type AdaptiveWeights struct {
	Hits    float64 `mapstructure:"hits" yaml:"hits" json:"hits"`
	Recency float64 `mapstructure:"recency" yaml:"recency" json:"recency"`
	Age     float64 `mapstructure:"age" yaml:"age" json:"age"`
}

// DefaultAdaptiveWeights 默认打分权重
var DefaultAdaptiveWeights = AdaptiveWeights{Hits: 0.5, Recency: 0.3, Age: 0.2}

func (w AdaptiveWeights) isZero() bool {
	return w.Hits == 0 && w.Recency == 0 && w.Age == 0
}

// DefaultStoreConfig 默认单层缓存配置
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		MaxSize:       1000,
		MaxMemory:     16 << 20,
		DefaultTTL:    5 * time.Minute,
		Strategy:      StrategyLRU,
		SweepInterval: DefaultSweepInterval,
	}
}

// Validate 验证配置，错误类型为 *CacheError。
func (c StoreConfig) Validate() error {
	if c.MaxSize <= 0 {
		return configError("max_size must be positive, got %d", c.MaxSize)
	}
	if c.MaxMemory <= 0 {
		return configError("max_memory must be positive, got %d", c.MaxMemory)
	}
	if c.DefaultTTL < 0 {
		return configError("default_ttl cannot be negative")
	}
	if c.SweepInterval < 0 {
		return configError("sweep_interval cannot be negative")
	}
	if c.Strategy != "" && !c.Strategy.Valid() {
		return configError("unknown eviction strategy %q", c.Strategy)
	}
	if c.Adaptive.Hits < 0 || c.Adaptive.Recency < 0 || c.Adaptive.Age < 0 {
		return configError("adaptive weights cannot be negative")
	}
	return nil
}

// withDefaults 填充可省略字段
func (c StoreConfig) withDefaults() StoreConfig {
	if c.Strategy == "" {
		c.Strategy = StrategyLRU
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = DefaultSweepInterval
	}
	if c.Adaptive.isZero() {
		c.Adaptive = DefaultAdaptiveWeights
	}
	return c
}

// StoreOption 构造 Store 时的可选项
type StoreOption func(*Store)

// WithLogger 指定日志条目
func WithLogger(entry *logrus.Entry) StoreOption {
	return func(s *Store) {
		if entry != nil {
			s.logger = entry
		}
	}
}

// WithClock 替换时间源，主要用于测试
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// SetOption 写入时的可选项
type SetOption func(*setOptions)

type setOptions struct {
	ttl      time.Duration
	metadata interface{}
}

// WithTTL 覆盖默认TTL，ttl <= 0 时仍使用默认TTL
func WithTTL(ttl time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = ttl
	}
}

// WithMetadata 附加调用方元数据，随条目一起保存
func WithMetadata(metadata interface{}) SetOption {
	return func(o *setOptions) {
		o.metadata = metadata
	}
}
