package cache

import (
	"errors"
	"fmt"
	"regexp"
	"sync/atomic"
)

// Tiered 分层缓存实现，层按从快到慢排列。
//
// 写入依次落到每一层；读取按顺序探测，在第 i 层命中时把值提升到 0..i-1 层。
// Tiered 自身不加锁，跨层操作不是原子的：并发读者可能短暂看到某个键只存在于部分层中。
type Tiered struct {
	tiers      []*Store
	promotions int64
}

// NewTiered 按给定顺序组合多个 Store
func NewTiered(tiers ...*Store) (*Tiered, error) {
	if len(tiers) == 0 {
		return nil, configError("at least one tier is required")
	}
	seen := make(map[*Store]int, len(tiers))
	for i, tier := range tiers {
		if tier == nil {
			return nil, configError("tier %d is nil", i)
		}
		if j, dup := seen[tier]; dup {
			return nil, configError("tier %d is the same store as tier %d", i, j)
		}
		seen[tier] = i
	}

	return &Tiered{tiers: append([]*Store(nil), tiers...)}, nil
}

// NewTieredFromConfig 按配置逐层创建 Store 并组合。
// 任意一层创建失败时，已创建的层会被停止。
func NewTieredFromConfig(configs []StoreConfig, opts ...StoreOption) (*Tiered, error) {
	tiers := make([]*Store, 0, len(configs))
	for i, cfg := range configs {
		if cfg.Name == "" {
			cfg.Name = fmt.Sprintf("l%d", i+1)
		}
		store, err := NewStore(cfg, opts...)
		if err != nil {
			for _, built := range tiers {
				built.Stop()
			}
			var ce *CacheError
			if errors.As(err, &ce) {
				ce.WithContext("tier", i)
			}
			return nil, err
		}
		tiers = append(tiers, store)
	}
	return NewTiered(tiers...)
}

// Tiers 返回层数
func (t *Tiered) Tiers() int {
	return len(t.tiers)
}

// Tier 返回第 i 层
func (t *Tiered) Tier(i int) *Store {
	return t.tiers[i]
}

// Promotions 返回累计提升次数（每次命中下层的读取计一次）
func (t *Tiered) Promotions() int64 {
	return atomic.LoadInt64(&t.promotions)
}

// Set 写入所有层，某一层因此淘汰其他条目不视为错误。
// 至少有一层接受写入时返回 true。
func (t *Tiered) Set(key string, value interface{}, opts ...SetOption) bool {
	accepted := false
	for _, tier := range t.tiers {
		if tier.Set(key, value, opts...) {
			accepted = true
		}
	}
	return accepted
}

// Get 按层顺序探测，命中下层时向上提升
func (t *Tiered) Get(key string) (interface{}, bool) {
	for i, tier := range t.tiers {
		info, ok := tier.lookup(key)
		if !ok {
			continue
		}
		if i > 0 {
			t.promote(key, info, i)
		}
		return info.Value, true
	}
	return nil, false
}

// promote 把命中的值写入 0..hit-1 中尚未持有该键的层。
// 提升的副本沿用命中条目的剩余TTL和元数据；命中条目永不过期时使用目标层的默认TTL。
func (t *Tiered) promote(key string, info EntryInfo, hit int) {
	opts := []SetOption{WithMetadata(info.Metadata)}
	if !info.ExpiresAt.IsZero() {
		remaining := info.TTL(t.tiers[hit].now())
		if remaining <= 0 {
			return
		}
		opts = append(opts, WithTTL(remaining))
	}

	for i := hit - 1; i >= 0; i-- {
		if t.tiers[i].Has(key) {
			continue
		}
		t.tiers[i].Set(key, info.Value, opts...)
	}
	atomic.AddInt64(&t.promotions, 1)
}

// Has 任意一层持有未过期的键即返回 true
func (t *Tiered) Has(key string) bool {
	for _, tier := range t.tiers {
		if tier.Has(key) {
			return true
		}
	}
	return false
}

// Inspect 返回第一个持有该键的层的条目快照及层序号
func (t *Tiered) Inspect(key string) (EntryInfo, int, bool) {
	for i, tier := range t.tiers {
		if info, ok := tier.Inspect(key); ok {
			return info, i, true
		}
	}
	return EntryInfo{}, -1, false
}

// GetETag 返回第一个持有该键的层中的 ETag，不触发提升
func (t *Tiered) GetETag(key string) (string, bool) {
	for _, tier := range t.tiers {
		if etag, ok := tier.GetETag(key); ok {
			return etag, true
		}
	}
	return "", false
}

// ValidateETag 校验第一个持有该键的层中的 ETag
func (t *Tiered) ValidateETag(key, candidate string) bool {
	etag, ok := t.GetETag(key)
	return ok && etag == candidate
}

// Delete 从所有层删除，任意一层持有时返回 true
func (t *Tiered) Delete(key string) bool {
	deleted := false
	for _, tier := range t.tiers {
		if tier.Delete(key) {
			deleted = true
		}
	}
	return deleted
}

// Invalidate 在所有层执行模式失效
func (t *Tiered) Invalidate(pattern string) int {
	return t.InvalidateRegexp(CompilePattern(pattern))
}

// InvalidateRegexp 在所有层执行失效，返回被删除的不同键的数量
func (t *Tiered) InvalidateRegexp(re *regexp.Regexp) int {
	distinct := make(map[string]struct{})
	for _, tier := range t.tiers {
		for _, key := range tier.invalidateKeys(re) {
			distinct[key] = struct{}{}
		}
	}
	return len(distinct)
}

// Clear 清空所有层
func (t *Tiered) Clear() {
	for _, tier := range t.tiers {
		tier.Clear()
	}
}

// GetStats 按配置顺序返回每一层的统计，不做跨层汇总
func (t *Tiered) GetStats() []TierStats {
	stats := make([]TierStats, len(t.tiers))
	for i, tier := range t.tiers {
		stats[i] = TierStats{Tier: i, Stats: tier.Stats()}
	}
	return stats
}

// Stop 停止所有层
func (t *Tiered) Stop() {
	for _, tier := range t.tiers {
		tier.Stop()
	}
}

var _ Cache = (*Tiered)(nil)
