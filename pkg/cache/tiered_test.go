package cache

import (
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTiered 创建三层缓存：l1 小、l2 中、l3 大
func newTestTiered(t *testing.T, opts ...StoreOption) *Tiered {
	t.Helper()
	sizes := []int{2, 10, 100}
	strategies := []Strategy{StrategyLRU, StrategyLFU, StrategyAdaptive}

	tiers := make([]*Store, len(sizes))
	for i := range sizes {
		cfg := testConfig(sizes[i], strategies[i])
		cfg.Name = fmt.Sprintf("l%d", i+1)
		tiers[i] = newTestStore(t, cfg, opts...)
	}

	tc, err := NewTiered(tiers...)
	require.NoError(t, err)
	return tc
}

func TestNewTiered_Invalid(t *testing.T) {
	_, err := NewTiered()
	assert.Error(t, err)

	s := newTestStore(t, testConfig(10, StrategyLRU))
	_, err = NewTiered(s, nil)
	assert.Error(t, err)

	_, err = NewTiered(s, s)
	var cacheErr *CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, ErrConfigInvalid, cacheErr.Code)
}

func TestNewTieredFromConfig(t *testing.T) {
	configs := []StoreConfig{
		{MaxSize: 10, MaxMemory: 1024, Strategy: StrategyLRU},
		{Name: "cold", MaxSize: 100, MaxMemory: 1 << 20, Strategy: StrategyTTL},
	}
	tc, err := NewTieredFromConfig(configs, WithLogger(quietLogger()))
	require.NoError(t, err)
	defer tc.Stop()

	assert.Equal(t, 2, tc.Tiers())
	assert.Equal(t, "l1", tc.Tier(0).Name())
	assert.Equal(t, "cold", tc.Tier(1).Name())
	assert.Equal(t, StrategyTTL, tc.Tier(1).Strategy())
}

// 后面的层配置无效时，前面已创建的层被停止
func TestNewTieredFromConfig_StopsBuiltTiers(t *testing.T) {
	var built *Store
	configs := []StoreConfig{
		{MaxSize: 10, MaxMemory: 1024},
		{MaxSize: 0, MaxMemory: 1024},
	}
	capture := func(s *Store) {
		if built == nil {
			built = s
		}
	}

	tc, err := NewTieredFromConfig(configs, WithLogger(quietLogger()), capture)
	assert.Nil(t, tc)
	require.Error(t, err)

	var cacheErr *CacheError
	require.ErrorAs(t, err, &cacheErr)
	assert.Equal(t, 1, cacheErr.Context["tier"])

	require.NotNil(t, built)
	assert.True(t, built.Stats().Stopped)
}

// 写入落到每一层
func TestTiered_SetFansOut(t *testing.T) {
	tc := newTestTiered(t)

	assert.True(t, tc.Set("key1", "value1", WithMetadata("m")))
	for i := 0; i < tc.Tiers(); i++ {
		info, ok := tc.Tier(i).Inspect("key1")
		require.True(t, ok, "tier %d", i)
		assert.Equal(t, "value1", info.Value)
		assert.Equal(t, "m", info.Metadata)
	}

	// l1 容量为 2，写入第三个键时 l1 自行淘汰，不影响调用结果
	assert.True(t, tc.Set("key2", "value2"))
	assert.True(t, tc.Set("key3", "value3"))
	assert.False(t, tc.Tier(0).Has("key1"))
	assert.True(t, tc.Tier(2).Has("key1"))
}

// 值只存在于最后一层时，一次 Get 后三层都有，再次 Get 命中第 0 层且不再提升
func TestTiered_Promotion(t *testing.T) {
	tc := newTestTiered(t)

	require.True(t, tc.Tier(2).Set("scene", "payload"))

	value, ok := tc.Get("scene")
	require.True(t, ok)
	assert.Equal(t, "payload", value)
	for i := 0; i < tc.Tiers(); i++ {
		assert.True(t, tc.Tier(i).Has("scene"), "tier %d", i)
	}
	assert.Equal(t, int64(1), tc.Promotions())

	before := tc.GetStats()

	value, ok = tc.Get("scene")
	require.True(t, ok)
	assert.Equal(t, "payload", value)

	after := tc.GetStats()
	assert.Equal(t, before[0].Hits+1, after[0].Hits)
	for i := range after {
		assert.Equal(t, before[i].Sets, after[i].Sets, "tier %d", i)
	}
	assert.Equal(t, before[1].Hits, after[1].Hits)
	assert.Equal(t, before[2].Hits, after[2].Hits)
	assert.Equal(t, int64(1), tc.Promotions())
}

// 提升只写入命中层之上的层，命中层之下的层不受影响
func TestTiered_PromotionOnlyUpward(t *testing.T) {
	tc := newTestTiered(t)

	tc.Tier(1).Set("k", "middle")

	value, ok := tc.Get("k")
	require.True(t, ok)
	assert.Equal(t, "middle", value)

	stats := tc.GetStats()
	assert.Equal(t, int64(1), stats[0].Sets)
	assert.Equal(t, int64(1), stats[1].Sets)
	assert.Equal(t, int64(0), stats[2].Sets)
	assert.True(t, tc.Tier(0).Has("k"))
	assert.False(t, tc.Tier(2).Has("k"))
}

// 提升的副本沿用剩余TTL
func TestTiered_PromotionKeepsRemainingTTL(t *testing.T) {
	clock := newFakeClock()
	tc := newTestTiered(t, WithClock(clock.Now))

	tc.Tier(2).Set("k", "v", WithTTL(time.Minute), WithMetadata("origin"))
	origin, _ := tc.Tier(2).Inspect("k")

	clock.Advance(30 * time.Second)
	_, ok := tc.Get("k")
	require.True(t, ok)

	promoted, ok := tc.Tier(0).Inspect("k")
	require.True(t, ok)
	assert.Equal(t, origin.ExpiresAt, promoted.ExpiresAt)
	assert.Equal(t, "origin", promoted.Metadata)

	clock.Advance(30 * time.Second)
	_, ok = tc.Get("k")
	assert.False(t, ok)
}

// 永不过期的条目提升后使用目标层默认TTL
func TestTiered_PromotionDefaultTTL(t *testing.T) {
	clock := newFakeClock()
	l1 := newTestStore(t, StoreConfig{Name: "l1", MaxSize: 10, MaxMemory: 1024, DefaultTTL: time.Minute}, WithClock(clock.Now))
	l2 := newTestStore(t, StoreConfig{Name: "l2", MaxSize: 10, MaxMemory: 1024}, WithClock(clock.Now))
	tc, err := NewTiered(l1, l2)
	require.NoError(t, err)

	l2.Set("k", "v")
	_, ok := tc.Get("k")
	require.True(t, ok)

	info, ok := l1.Inspect("k")
	require.True(t, ok)
	assert.Equal(t, clock.Now().Add(time.Minute), info.ExpiresAt)
}

// 全部未命中时不修改任何层
func TestTiered_TotalMiss(t *testing.T) {
	tc := newTestTiered(t)

	_, ok := tc.Get("missing")
	assert.False(t, ok)

	for i, st := range tc.GetStats() {
		assert.Equal(t, 0, st.Size, "tier %d", i)
		assert.Equal(t, int64(0), st.Sets, "tier %d", i)
		assert.Equal(t, int64(1), st.Misses, "tier %d", i)
	}
	assert.Equal(t, int64(0), tc.Promotions())
	assert.False(t, tc.Has("missing"))
}

func TestTiered_DeleteInvalidateClear(t *testing.T) {
	tc := newTestTiered(t)

	tc.Tier(2).Set("only-l3", 1)
	assert.True(t, tc.Delete("only-l3"))
	assert.False(t, tc.Delete("only-l3"))

	tc.Set("user:1", "a")
	tc.Tier(1).Set("user:2", "b")
	tc.Tier(2).Set("user:3", "c")
	tc.Set("post:9", "p")

	assert.Equal(t, 3, tc.Invalidate("user:*"))
	assert.False(t, tc.Has("user:1"))
	assert.True(t, tc.Has("post:9"))
	assert.Equal(t, 0, tc.InvalidateRegexp(regexp.MustCompile(`^user:`)))

	tc.Clear()
	for i := 0; i < tc.Tiers(); i++ {
		assert.Equal(t, 0, tc.Tier(i).Len())
	}
}

func TestTiered_ETag(t *testing.T) {
	tc := newTestTiered(t)

	tc.Tier(2).Set("k", map[string]int{"lod": 2})
	etag, ok := tc.GetETag("k")
	require.True(t, ok)
	assert.True(t, tc.ValidateETag("k", etag))
	assert.False(t, tc.ValidateETag("k", "stale"))

	// GetETag 不触发提升
	assert.False(t, tc.Tier(0).Has("k"))

	info, tier, ok := tc.Inspect("k")
	require.True(t, ok)
	assert.Equal(t, 2, tier)
	assert.Equal(t, map[string]int{"lod": 2}, info.Value)

	_, tier, ok = tc.Inspect("missing")
	assert.False(t, ok)
	assert.Equal(t, -1, tier)
}

// GetStats 按配置顺序返回并标注层序号
func TestTiered_GetStats(t *testing.T) {
	tc := newTestTiered(t)
	tc.Set("k", "v")

	stats := tc.GetStats()
	require.Len(t, stats, 3)
	for i, st := range stats {
		assert.Equal(t, i, st.Tier)
		assert.Equal(t, fmt.Sprintf("l%d", i+1), st.Name)
		assert.Equal(t, 1, st.Size)
	}
	assert.Equal(t, StrategyLRU, stats[0].Strategy)
	assert.Equal(t, StrategyLFU, stats[1].Strategy)
	assert.Equal(t, StrategyAdaptive, stats[2].Strategy)
}

func TestTiered_Stop(t *testing.T) {
	tc := newTestTiered(t)
	tc.Stop()
	tc.Stop()

	assert.False(t, tc.Set("k", "v"))
	_, ok := tc.Get("k")
	assert.False(t, ok)
	for _, st := range tc.GetStats() {
		assert.True(t, st.Stopped)
	}
}
