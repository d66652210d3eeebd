package cache

import (
	"container/list"
	"math"
)

// Strategy 淘汰策略类型
type Strategy string

const (
	StrategyLRU      Strategy = "lru"      // Least Recently Used
	StrategyLFU      Strategy = "lfu"      // Least Frequently Used
	StrategyTTL      Strategy = "ttl"      // Soonest expiry first
	StrategyAdaptive Strategy = "adaptive" // 综合命中次数、访问新近度和写入时间
)

// Valid 判断是否为已知策略
func (s Strategy) Valid() bool {
	switch s {
	case StrategyLRU, StrategyLFU, StrategyTTL, StrategyAdaptive:
		return true
	}
	return false
}

// EvictionPolicy 缓存淘汰策略。
// 所有方法都在 Store 持锁时调用，实现无需自行加锁。
type EvictionPolicy interface {
	Strategy() Strategy
	// SelectVictim 选出一个待淘汰的键，entries 为空时返回空字符串
	SelectVictim(entries map[string]*Entry) string
	OnAdd(entry *Entry)
	OnAccess(entry *Entry)
	OnRemove(entry *Entry)
	Reset()
}

// NewEvictionPolicy 创建淘汰策略
func NewEvictionPolicy(strategy Strategy, weights AdaptiveWeights) (EvictionPolicy, error) {
	switch strategy {
	case StrategyLRU, "":
		return NewLRUPolicy(), nil
	case StrategyLFU:
		return &scanPolicy{strategy: StrategyLFU, less: lfuLess}, nil
	case StrategyTTL:
		return &scanPolicy{strategy: StrategyTTL, less: ttlLess}, nil
	case StrategyAdaptive:
		if weights.isZero() {
			weights = DefaultAdaptiveWeights
		}
		return NewAdaptivePolicy(weights), nil
	default:
		return nil, configError("unknown eviction strategy %q", strategy)
	}
}

// LRUPolicy LRU淘汰策略，链表头部为最近使用
type LRUPolicy struct {
	lruList  *list.List
	lruIndex map[string]*list.Element
}

// NewLRUPolicy 创建LRU策略
func NewLRUPolicy() *LRUPolicy {
	return &LRUPolicy{
		lruList:  list.New(),
		lruIndex: make(map[string]*list.Element),
	}
}

func (lru *LRUPolicy) Strategy() Strategy { return StrategyLRU }

// SelectVictim 返回链表尾部的键
func (lru *LRUPolicy) SelectVictim(entries map[string]*Entry) string {
	if elem := lru.lruList.Back(); elem != nil {
		return elem.Value.(*Entry).Key
	}
	// 链表与 entries 不一致时退化为扫描
	return scanMin(entries, func(a, b *Entry) bool { return a.accessSeq < b.accessSeq })
}

// OnAdd 新条目放到链表头部
func (lru *LRUPolicy) OnAdd(entry *Entry) {
	if elem, exists := lru.lruIndex[entry.Key]; exists {
		lru.lruList.Remove(elem)
	}
	lru.lruIndex[entry.Key] = lru.lruList.PushFront(entry)
}

// OnAccess 移动到链表头部
func (lru *LRUPolicy) OnAccess(entry *Entry) {
	if elem, exists := lru.lruIndex[entry.Key]; exists {
		lru.lruList.MoveToFront(elem)
	}
}

// OnRemove 从链表中移除
func (lru *LRUPolicy) OnRemove(entry *Entry) {
	if elem, exists := lru.lruIndex[entry.Key]; exists {
		lru.lruList.Remove(elem)
		delete(lru.lruIndex, entry.Key)
	}
}

func (lru *LRUPolicy) Reset() {
	lru.lruList.Init()
	lru.lruIndex = make(map[string]*list.Element)
}

// scanPolicy 通过一次全量扫描选出 less 意义下最小的条目
type scanPolicy struct {
	strategy Strategy
	less     func(a, b *Entry) bool
}

func (p *scanPolicy) Strategy() Strategy { return p.strategy }

func (p *scanPolicy) SelectVictim(entries map[string]*Entry) string {
	return scanMin(entries, p.less)
}

func (p *scanPolicy) OnAdd(*Entry)    {}
func (p *scanPolicy) OnAccess(*Entry) {}
func (p *scanPolicy) OnRemove(*Entry) {}
func (p *scanPolicy) Reset()          {}

// lfuLess 命中次数少的优先，相同时先写入的优先
func lfuLess(a, b *Entry) bool {
	if a.Hits != b.Hits {
		return a.Hits < b.Hits
	}
	return a.insertSeq < b.insertSeq
}

// ttlLess 最早过期的优先，永不过期的排在最后
func ttlLess(a, b *Entry) bool {
	switch {
	case a.ExpiresAt.IsZero() && b.ExpiresAt.IsZero():
	case a.ExpiresAt.IsZero():
		return false
	case b.ExpiresAt.IsZero():
		return true
	case !a.ExpiresAt.Equal(b.ExpiresAt):
		return a.ExpiresAt.Before(b.ExpiresAt)
	}
	return a.insertSeq < b.insertSeq
}

// AdaptivePolicy 综合打分淘汰：
//
//	score = w.Hits*log1p(e.Hits) + w.Recency*e.accessSeq/latest + w.Age*e.insertSeq/latest
//
// w 为 AdaptiveWeights，latest 为观察到的最大访问序号。
//
// 权重非负，因此分数对命中次数、访问新近度和写入新近度都单调不减，分数最低者被淘汰。
type AdaptivePolicy struct {
	weights AdaptiveWeights
	latest  uint64
}

// NewAdaptivePolicy 创建 adaptive 策略
func NewAdaptivePolicy(weights AdaptiveWeights) *AdaptivePolicy {
	return &AdaptivePolicy{weights: weights}
}

func (p *AdaptivePolicy) Strategy() Strategy { return StrategyAdaptive }

func (p *AdaptivePolicy) score(e *Entry) float64 {
	latest := float64(p.latest)
	if latest == 0 {
		latest = 1
	}
	return p.weights.Hits*math.Log1p(float64(e.Hits)) +
		p.weights.Recency*float64(e.accessSeq)/latest +
		p.weights.Age*float64(e.insertSeq)/latest
}

func (p *AdaptivePolicy) SelectVictim(entries map[string]*Entry) string {
	return scanMin(entries, func(a, b *Entry) bool {
		sa, sb := p.score(a), p.score(b)
		if sa != sb {
			return sa < sb
		}
		return a.insertSeq < b.insertSeq
	})
}

func (p *AdaptivePolicy) observe(e *Entry) {
	if e.accessSeq > p.latest {
		p.latest = e.accessSeq
	}
	if e.insertSeq > p.latest {
		p.latest = e.insertSeq
	}
}

func (p *AdaptivePolicy) OnAdd(entry *Entry)    { p.observe(entry) }
func (p *AdaptivePolicy) OnAccess(entry *Entry) { p.observe(entry) }
func (p *AdaptivePolicy) OnRemove(*Entry)       {}
func (p *AdaptivePolicy) Reset()                { p.latest = 0 }

func scanMin(entries map[string]*Entry, less func(a, b *Entry) bool) string {
	var victim *Entry
	for _, e := range entries {
		if victim == nil || less(e, victim) {
			victim = e
		}
	}
	if victim == nil {
		return ""
	}
	return victim.Key
}
