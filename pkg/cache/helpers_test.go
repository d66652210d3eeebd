package cache

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时间源
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func testConfig(maxSize int, strategy Strategy) StoreConfig {
	return StoreConfig{
		Name:       "test",
		MaxSize:    maxSize,
		MaxMemory:  1 << 20,
		DefaultTTL: 5 * time.Minute,
		Strategy:   strategy,
	}
}

// newTestStore 创建测试用缓存并在测试结束时停止
func newTestStore(t testing.TB, config StoreConfig, opts ...StoreOption) *Store {
	t.Helper()
	opts = append([]StoreOption{WithLogger(quietLogger())}, opts...)
	s, err := NewStore(config, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Stop)
	return s
}
