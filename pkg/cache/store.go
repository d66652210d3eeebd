package cache

import (
	"regexp"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"vrcache/pkg/logger"
)

// Store 线程安全的单层内存缓存。
//
// 所有公开方法在执行期间持有同一把互斥锁，后台清扫每一轮也获取这把锁。
// Store 拥有一个后台清扫任务，使用完毕后必须调用一次 Stop 释放它。
type Store struct {
	mu sync.Mutex

	name       string
	maxSize    int
	maxMemory  int64
	defaultTTL time.Duration
	policy     EvictionPolicy

	entries    map[string]*Entry
	memoryUsed int64
	seq        uint64

	// 统计
	hits          int64
	misses        int64
	sets          int64
	evictions     int64
	invalidations int64
	expirations   int64
	lastSweep     time.Time

	sweeper *sweeper
	stopped bool

	now    func() time.Time
	logger *logrus.Entry
}

// NewStore 校验配置并创建缓存，同时启动后台清扫。
func NewStore(config StoreConfig, opts ...StoreOption) (*Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	policy, err := NewEvictionPolicy(config.Strategy, config.Adaptive)
	if err != nil {
		return nil, err
	}

	name := config.Name
	if name == "" {
		name = "store-" + uuid.NewString()[:8]
	}

	s := &Store{
		name:       name,
		maxSize:    config.MaxSize,
		maxMemory:  config.MaxMemory,
		defaultTTL: config.DefaultTTL,
		policy:     policy,
		entries:    make(map[string]*Entry),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.WithComponent("cache")
	}
	s.logger = s.logger.WithField("store", name)
	s.lastSweep = s.now()

	s.sweeper = startSweeper(config.SweepInterval, func() { s.Sweep() }, s.logger)

	s.logger.WithFields(logrus.Fields{
		"strategy":       config.Strategy,
		"max_size":       config.MaxSize,
		"max_memory":     config.MaxMemory,
		"default_ttl":    config.DefaultTTL,
		"sweep_interval": config.SweepInterval,
	}).Info("缓存已创建")

	return s, nil
}

// Name 返回缓存名称
func (s *Store) Name() string {
	return s.name
}

// Strategy 返回淘汰策略
func (s *Store) Strategy() Strategy {
	return s.policy.Strategy()
}

// Set 写入或覆盖一个条目，然后同步淘汰直到条目数和内存都不超限。
// 单个值的估算大小超过 MaxMemory 时，它会在本次调用中被立即淘汰。
func (s *Store) Set(key string, value interface{}, opts ...SetOption) bool {
	var o setOptions
	for _, opt := range opts {
		opt(&o)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}

	now := s.now()
	ttl := s.defaultTTL
	if o.ttl > 0 {
		ttl = o.ttl
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	if old, exists := s.entries[key]; exists {
		s.removeLocked(old)
	}

	s.seq++
	entry := &Entry{
		Key:            key,
		Value:          value,
		Metadata:       o.metadata,
		ExpiresAt:      expiresAt,
		InsertedAt:     now,
		LastAccessedAt: now,
		Size:           EstimateSize(value),
		insertSeq:      s.seq,
		accessSeq:      s.seq,
	}
	s.entries[key] = entry
	s.memoryUsed += entry.Size
	s.policy.OnAdd(entry)
	s.sets++

	// 单个值就超过内存上限时无论淘汰多少其他条目都放不下，直接淘汰它自己
	if entry.Size > s.maxMemory {
		s.evictLocked(entry)
		return true
	}

	s.enforceBoundsLocked(now)
	return true
}

// Get 读取一个未过期的值。过期条目在此处被惰性删除。
func (s *Store) Get(key string) (interface{}, bool) {
	info, ok := s.lookup(key)
	if !ok {
		return nil, false
	}
	return info.Value, true
}

// lookup 执行 Get 的全部语义并返回条目快照
func (s *Store) lookup(key string) (EntryInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return EntryInfo{}, false
	}

	entry, exists := s.entries[key]
	if !exists {
		s.misses++
		return EntryInfo{}, false
	}

	now := s.now()
	if entry.expired(now) {
		s.removeLocked(entry)
		s.expirations++
		s.misses++
		return EntryInfo{}, false
	}

	s.seq++
	entry.Hits++
	entry.LastAccessedAt = now
	entry.accessSeq = s.seq
	s.policy.OnAccess(entry)
	s.hits++

	return entry.info(), true
}

// Has 判断键是否存在且未过期，不改变统计和访问顺序
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.liveLocked(key)
	return ok
}

// Inspect 返回条目快照（含元数据），不改变统计和访问顺序
func (s *Store) Inspect(key string) (EntryInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(key)
	if !ok {
		return EntryInfo{}, false
	}
	return entry.info(), true
}

// Delete 删除一个键
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	entry, exists := s.entries[key]
	if !exists {
		return false
	}
	s.removeLocked(entry)
	return true
}

// Clear 清空所有条目，统计计数保持不变
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	s.entries = make(map[string]*Entry)
	s.memoryUsed = 0
	s.policy.Reset()
}

// GetETag 返回当前值的 ETag，只在写入后第一次请求时计算
func (s *Store) GetETag(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.liveLocked(key)
	if !ok {
		return "", false
	}
	if entry.etag == "" {
		entry.etag = ComputeETag(entry.Value)
	}
	return entry.etag, true
}

// ValidateETag 判断键存在、未过期且 ETag 与 candidate 相同
func (s *Store) ValidateETag(key, candidate string) bool {
	etag, ok := s.GetETag(key)
	return ok && etag == candidate
}

// Invalidate 删除所有匹配通配符模式的键
func (s *Store) Invalidate(pattern string) int {
	return s.InvalidateRegexp(CompilePattern(pattern))
}

// InvalidateRegexp 删除所有匹配正则表达式的键
func (s *Store) InvalidateRegexp(re *regexp.Regexp) int {
	return len(s.invalidateKeys(re))
}

func (s *Store) invalidateKeys(re *regexp.Regexp) []string {
	if re == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}

	var removed []string
	for key, entry := range s.entries {
		if re.MatchString(key) {
			s.removeLocked(entry)
			removed = append(removed, key)
		}
	}
	s.invalidations += int64(len(removed))

	if len(removed) > 0 {
		s.logger.WithFields(logrus.Fields{
			"pattern": re.String(),
			"count":   len(removed),
		}).Debug("缓存条目已失效")
	}
	return removed
}

// Keys 返回所有未过期的键（已排序）
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return nil
	}
	now := s.now()
	keys := make([]string, 0, len(s.entries))
	for key, entry := range s.entries {
		if !entry.expired(now) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Len 返回当前条目数（含尚未清扫的过期条目）
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// MemoryUsage 返回当前估算内存
func (s *Store) MemoryUsage() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.memoryUsed
}

// Stats 获取缓存统计信息
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var hitRate float64
	if total := s.hits + s.misses; total > 0 {
		hitRate = float64(s.hits) / float64(total)
	}

	return Stats{
		Name:          s.name,
		Strategy:      s.policy.Strategy(),
		Size:          len(s.entries),
		MaxSize:       s.maxSize,
		MemoryUsed:    s.memoryUsed,
		MaxMemory:     s.maxMemory,
		Hits:          s.hits,
		Misses:        s.misses,
		Sets:          s.sets,
		Evictions:     s.evictions,
		Invalidations: s.invalidations,
		Expirations:   s.expirations,
		HitRate:       hitRate,
		DefaultTTL:    s.defaultTTL,
		LastSweep:     s.lastSweep,
		Stopped:       s.stopped,
	}
}

// Sweep 执行一轮清扫，删除所有已过期条目并返回删除数量
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0
	}

	now := s.now()
	removed := s.purgeExpiredLocked(now)
	s.lastSweep = now

	if removed > 0 {
		s.logger.WithField("removed", removed).Debug("清扫过期条目")
	}
	return removed
}

// Stop 停止后台清扫。重复调用是空操作。
// 停止后写入返回 false，读取一律未命中。
func (s *Store) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	sw := s.sweeper
	s.mu.Unlock()

	// 在锁外等待，正在执行的清扫需要获取锁才能结束
	if sw != nil {
		sw.stop()
	}
	s.logger.Info("缓存已停止")
}

// liveLocked 返回未过期的条目，不修改任何状态
func (s *Store) liveLocked(key string) (*Entry, bool) {
	if s.stopped {
		return nil, false
	}
	entry, exists := s.entries[key]
	if !exists || entry.expired(s.now()) {
		return nil, false
	}
	return entry, true
}

func (s *Store) removeLocked(entry *Entry) {
	delete(s.entries, entry.Key)
	s.memoryUsed -= entry.Size
	s.policy.OnRemove(entry)
}

func (s *Store) purgeExpiredLocked(now time.Time) int {
	removed := 0
	for _, entry := range s.entries {
		if entry.expired(now) {
			s.removeLocked(entry)
			removed++
		}
	}
	s.expirations += int64(removed)
	return removed
}

func (s *Store) overLimitLocked() bool {
	return len(s.entries) > s.maxSize || s.memoryUsed > s.maxMemory
}

// enforceBoundsLocked 先回收已过期条目，仍超限时按策略逐个淘汰
func (s *Store) enforceBoundsLocked(now time.Time) {
	if !s.overLimitLocked() {
		return
	}
	s.purgeExpiredLocked(now)

	for s.overLimitLocked() {
		key := s.policy.SelectVictim(s.entries)
		victim, exists := s.entries[key]
		if !exists {
			return
		}
		s.evictLocked(victim)
	}
}

func (s *Store) evictLocked(victim *Entry) {
	s.removeLocked(victim)
	s.evictions++

	s.logger.WithFields(logrus.Fields{
		"key":      victim.Key,
		"strategy": s.policy.Strategy(),
		"size":     victim.Size,
	}).Debug("淘汰缓存条目")
}

var _ Cache = (*Store)(nil)
