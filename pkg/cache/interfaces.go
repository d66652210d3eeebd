// Package cache 实现进程内多级缓存：带淘汰策略、内存计量、ETag 校验和定期清扫的
// 单层 Store，以及按顺序组合多个 Store 并在读取时向上层提升数据的 Tiered。
package cache

import (
	"regexp"
	"time"
)

// Cache 是 Store 与 Tiered 共同遵循的接口。
// 调用方（HTTP 层、指标采集等）只依赖这个接口。
type Cache interface {
	// Set 写入或覆盖一个键值对，缓存已停止时返回 false。
	Set(key string, value interface{}, opts ...SetOption) bool
	// Get 读取一个未过期的值。
	Get(key string) (interface{}, bool)
	// Has 判断键是否存在且未过期，不影响统计和访问顺序。
	Has(key string) bool
	// Delete 删除一个键，返回删除前是否存在。
	Delete(key string) bool
	// Clear 清空所有条目。
	Clear()
	// GetETag 返回当前值的内容哈希。
	GetETag(key string) (string, bool)
	// ValidateETag 判断候选 ETag 是否与当前值一致。
	ValidateETag(key, candidate string) bool
	// Invalidate 删除所有匹配通配符模式的键，返回删除数量。
	Invalidate(pattern string) int
	// InvalidateRegexp 删除所有匹配正则表达式的键，返回删除数量。
	InvalidateRegexp(re *regexp.Regexp) int
	// Stop 停止后台清扫，可重复调用。
	Stop()
}

// Stats 单个 Store 的统计快照。
type Stats struct {
	Name          string        `json:"name"`
	Strategy      Strategy      `json:"strategy"`
	Size          int           `json:"size"`           // 当前条目数（含尚未清扫的过期条目）
	MaxSize       int           `json:"max_size"`       // 最大条目数
	MemoryUsed    int64         `json:"memory_used"`    // 当前估算内存（字节）
	MaxMemory     int64         `json:"max_memory"`     // 最大内存（字节）
	Hits          int64         `json:"hits"`           // 命中次数
	Misses        int64         `json:"misses"`         // 未命中次数
	Sets          int64         `json:"sets"`           // 写入次数
	Evictions     int64         `json:"evictions"`      // 因容量淘汰的条目数
	Invalidations int64         `json:"invalidations"`  // 因模式失效删除的条目数
	Expirations   int64         `json:"expirations"`    // 因过期被移除的条目数
	HitRate       float64       `json:"hit_rate"`       // Hits / (Hits + Misses)
	DefaultTTL    time.Duration `json:"default_ttl"`    // 默认TTL
	LastSweep     time.Time     `json:"last_sweep"`     // 最后一次清扫时间
	Stopped       bool          `json:"stopped"`        // 是否已停止
}

// TierStats 带层级序号的统计信息。
type TierStats struct {
	Tier int `json:"tier"`
	Stats
}

// EntryInfo 条目的只读快照，Inspect 返回。
type EntryInfo struct {
	Key            string      `json:"key"`
	Value          interface{} `json:"value"`
	Metadata       interface{} `json:"metadata,omitempty"`
	ExpiresAt      time.Time   `json:"expires_at"` // 零值表示永不过期
	InsertedAt     time.Time   `json:"inserted_at"`
	LastAccessedAt time.Time   `json:"last_accessed_at"`
	Hits           int64       `json:"hits"`
	Size           int64       `json:"size"`
}

// TTL 返回相对 now 的剩余生存时间，永不过期时返回 0。
func (i EntryInfo) TTL(now time.Time) time.Duration {
	if i.ExpiresAt.IsZero() {
		return 0
	}
	if d := i.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
