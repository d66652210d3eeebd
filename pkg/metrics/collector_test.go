package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vrcache/pkg/cache"
)

type staticSource struct {
	stats      []cache.TierStats
	promotions int64
}

func (s staticSource) GetStats() []cache.TierStats { return s.stats }
func (s staticSource) Promotions() int64 { return s.promotions }

func TestCollector_StaticStats(t *testing.T) {
	source := staticSource{
		stats: []cache.TierStats{
			{Tier: 0, Stats: cache.Stats{Name: "l1", Size: 3, MaxSize: 10, Hits: 7, Misses: 3, HitRate: 0.7}},
			{Tier: 1, Stats: cache.Stats{Name: "l2", Size: 5, MaxSize: 100, Evictions: 2}},
		},
		promotions: 4,
	}
	c := NewCollector(source)

	expected := `
# HELP vrcache_entries Number of live entries in the tier.
# TYPE vrcache_entries gauge
vrcache_entries{store="l1",tier="0"} 3
vrcache_entries{store="l2",tier="1"} 5
# HELP vrcache_hits_total Lookups that found a live entry.
# TYPE vrcache_hits_total counter
vrcache_hits_total{store="l1",tier="0"} 7
vrcache_hits_total{store="l2",tier="1"} 0
# HELP vrcache_hit_ratio Hits divided by hits plus misses.
# TYPE vrcache_hit_ratio gauge
vrcache_hit_ratio{store="l1",tier="0"} 0.7
vrcache_hit_ratio{store="l2",tier="1"} 0
# HELP vrcache_promotions_total Lower-tier hits copied into faster tiers.
# TYPE vrcache_promotions_total counter
vrcache_promotions_total 4
`
	err := testutil.CollectAndCompare(c, strings.NewReader(expected),
		"vrcache_entries", "vrcache_hits_total", "vrcache_hit_ratio", "vrcache_promotions_total")
	assert.NoError(t, err)

	// 每层 11 个指标加一个提升计数
	assert.Equal(t, 2*11+1, testutil.CollectAndCount(c))
}

func TestCollector_LiveTiered(t *testing.T) {
	quiet := logrus.New()
	quiet.SetLevel(logrus.PanicLevel)

	tc, err := cache.NewTieredFromConfig([]cache.StoreConfig{
		{MaxSize: 10, MaxMemory: 1 << 20, DefaultTTL: time.Minute},
		{MaxSize: 100, MaxMemory: 1 << 20, DefaultTTL: time.Hour, Strategy: cache.StrategyAdaptive},
	}, cache.WithLogger(logrus.NewEntry(quiet)))
	require.NoError(t, err)
	defer tc.Stop()

	tc.Tier(1).Set("mesh", "payload")
	_, ok := tc.Get("mesh")
	require.True(t, ok)

	c := NewCollector(tc)
	expected := `
# HELP vrcache_promotions_total Lower-tier hits copied into faster tiers.
# TYPE vrcache_promotions_total counter
vrcache_promotions_total 1
# HELP vrcache_sets_total Accepted writes.
# TYPE vrcache_sets_total counter
vrcache_sets_total{store="l1",tier="0"} 1
vrcache_sets_total{store="l2",tier="1"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"vrcache_promotions_total", "vrcache_sets_total"))
}

func TestNewRegistry(t *testing.T) {
	registry := NewRegistry(staticSource{stats: []cache.TierStats{{Tier: 0, Stats: cache.Stats{Name: "l1"}}}})

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["vrcache_entries"])
	assert.True(t, names["vrcache_promotions_total"])
	assert.True(t, names["go_goroutines"])
}
